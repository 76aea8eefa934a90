// Package domain holds the plain value types shared by every scrape-core
// package: sports taxonomy, events, bookmakers, odds snapshots, scrape
// runs and risk alerts. Types here carry no back-references and no
// persistence-framework annotations — lookups that need a graph are built
// at the call site (internal/coordinator, internal/store).
package domain

import "time"

// Sport is the taxonomy root. Unique on Name and Slug.
type Sport struct {
	ID   int64
	Name string
	Slug string
}

// Tournament belongs to one Sport. CanonicalID is the cross-system
// identifier used to match tournaments across bookmakers; it is optional
// because not every tournament has been reconciled yet.
type Tournament struct {
	ID          int64
	SportID     int64
	Name        string
	Country     *string
	CanonicalID *string
}

// CompetitorTournament is a bookmaker-native view of a Tournament for a
// bookmaker whose taxonomy has not (yet) been reconciled to the canonical
// one. DeletedAt models a soft delete, matching the source system's
// cascade/soft-delete split.
type CompetitorTournament struct {
	ID            int64
	Source        BookmakerSlug
	SportID       int64
	Name          string
	CountryRaw    *string
	ExternalID    string
	SportradarID  *string
	DeletedAt     *time.Time
}

// BookmakerSlug is the closed set of bookmakers this system scrapes.
type BookmakerSlug string

const (
	// SlugBetpawa is the reference bookmaker; its market taxonomy is
	// treated as canonical.
	SlugBetpawa BookmakerSlug = "bp"
	// SlugSportyBet is competitor A.
	SlugSportyBet BookmakerSlug = "s1"
	// SlugBet9ja is competitor B.
	SlugBet9ja BookmakerSlug = "s2"
)

// Bookmaker is one of the closed set {bp, s1, s2}.
type Bookmaker struct {
	ID       int64
	Name     string
	Slug     BookmakerSlug
	Active   bool
	BaseURL  *string
	LogoURL  *string
}
