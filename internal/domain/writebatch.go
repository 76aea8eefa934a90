package domain

import "time"

// ChangedSnapshot is a fresh OddsSnapshot/CompetitorOddsSnapshot pair
// the change detector marked CHANGED: a new row, written in full.
// CanonicalEventID and BookmakerSlug identify the odds-cache entry the
// freshly assigned row ID is written back to after the insert flushes.
type ChangedSnapshot struct {
	EventID          int64 // canonical event id, or competitor event id for competitor snapshots
	BookmakerID      int64 // zero for competitor snapshots
	IsCompetitor     bool
	CanonicalEventID string
	BookmakerSlug    BookmakerSlug
	CapturedAt       time.Time
	ScrapeRunID      *int64
	RawResponse      []byte // competitor snapshots only
	Markets          []MarketOdds
}

// UnchangedSnapshot is an existing snapshot the change detector found no
// difference for: only last_confirmed_at advances, on the reference or
// competitor snapshot table depending on IsCompetitor.
type UnchangedSnapshot struct {
	SnapshotID   int64
	IsCompetitor bool
	ConfirmedAt  time.Time
}

// AvailabilityUpdate stamps unavailable_at on one market row of an
// already-persisted snapshot when that market disappears from a later
// scrape. Line disambiguates markets sharing a
// canonical ID.
type AvailabilityUpdate struct {
	SnapshotID        int64
	IsCompetitor      bool
	CanonicalMarketID string
	Line              *float64
	UnavailableAt     time.Time
}

// WriteBatch is everything one write-queue worker iteration commits in a
// single transaction: changed and unchanged snapshots,
// availability flips, and risk alerts.
type WriteBatch struct {
	ScrapeRunID         int64
	BatchIndex          int
	Changed             []ChangedSnapshot
	Unchanged           []UnchangedSnapshot
	AvailabilityUpdates []AvailabilityUpdate
	Alerts              []RiskAlert
}
