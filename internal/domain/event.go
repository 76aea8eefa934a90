package domain

import "time"

// Event is the canonical cross-platform event. Unique on CanonicalID.
// Once matched, its kickoff and home/away ordering are authoritative —
// competitor variants may carry different strings but never override it.
type Event struct {
	ID           int64
	TournamentID int64
	Name         string
	HomeTeam     string
	AwayTeam     string
	Kickoff      time.Time // UTC
	CanonicalID  string
}

// CompetitorEvent is a bookmaker-native view of an Event, linked back to
// the canonical Event once matched (EventID may be nil before matching).
type CompetitorEvent struct {
	ID             int64
	Source         BookmakerSlug
	TournamentID   int64
	EventID        *int64
	Name           string
	HomeTeam       string
	AwayTeam       string
	Kickoff        time.Time
	ExternalID     string
	SportradarID   string
	DeletedAt      *time.Time
}

// EventBookmaker links an Event to a Bookmaker that carries it, with the
// bookmaker-specific event ID and a public URL. Unique on (EventID,
// BookmakerID).
type EventBookmaker struct {
	ID             int64
	EventID        int64
	BookmakerID    int64
	NativeEventID  string
	URL            string
}

// DiscoveredEvent is what an adapter's DiscoverEvents returns: the bare
// minimum needed to merge into the coordinator's per-cycle event map.
type DiscoveredEvent struct {
	CanonicalID   string
	Kickoff       time.Time
	NativeEventID string
}

// MergedEvent is one canonical event after discovery-merge across all
// adapters: the union of platforms that carry it and their native IDs.
type MergedEvent struct {
	CanonicalID string
	Kickoff     time.Time
	Platforms   map[BookmakerSlug]struct{}
	PlatformIDs map[BookmakerSlug]string
}
