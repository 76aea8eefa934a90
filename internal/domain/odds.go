package domain

import (
	"encoding/json"
	"time"
)

// HandicapType distinguishes Asian (2-way) from European (3-way)
// handicap markets, inferred from the canonical market ID.
type HandicapType string

const (
	HandicapAsian    HandicapType = "asian"
	HandicapEuropean HandicapType = "european"
)

// Handicap is the (type, home, away) triple carried by handicap markets.
type Handicap struct {
	Type HandicapType
	Home float64
	Away float64
}

// Outcome is one selectable option inside a market.
type Outcome struct {
	Name     string
	Odds     float64
	IsActive bool
}

// MarketOdds is one market within a snapshot: the normalized canonical
// market ID/name, optional line/handicap parameterization, the outcome
// list, optional category tags, and an optional suspension timestamp.
type MarketOdds struct {
	ID              int64
	CanonicalID     string
	Name            string
	Line            *float64
	Handicap        *Handicap
	Outcomes        []Outcome
	Categories      []string
	UnavailableAt   *time.Time
}

// Key returns the (canonicalID, line) identity the change detector and
// risk detector use to align markets across snapshots.
func (m MarketOdds) Key() MarketKey {
	var line float64
	hasLine := false
	if m.Line != nil {
		line, hasLine = *m.Line, true
	}
	return MarketKey{CanonicalID: m.CanonicalID, Line: line, HasLine: hasLine}
}

// MarketKey identifies a market within an event+bookmaker regardless of
// snapshot, used as a cache/comparison key. Line is only meaningful when
// HasLine is true (nil line and line==0 must not collide).
type MarketKey struct {
	CanonicalID string
	Line        float64
	HasLine     bool
}

// OddsSnapshot is one scrape of one (event, bookmaker) tuple.
type OddsSnapshot struct {
	ID              int64
	EventID         int64
	BookmakerID     int64
	CapturedAt      time.Time
	LastConfirmedAt time.Time
	ScrapeRunID     *int64
	Markets         []MarketOdds
}

// CompetitorOddsSnapshot mirrors OddsSnapshot for a competitor event,
// plus the unparsed upstream payload kept for forensic replay.
type CompetitorOddsSnapshot struct {
	ID                 int64
	CompetitorEventID  int64
	CapturedAt         time.Time
	LastConfirmedAt    time.Time
	ScrapeRunID        *int64
	RawResponse        json.RawMessage
	Markets            []MarketOdds
}

// NormalizedMarket is the output of the market mapping layer: a raw
// bookmaker market translated into the canonical taxonomy.
type NormalizedMarket struct {
	CanonicalMarketID   string
	CanonicalMarketName string
	Line                *float64
	Handicap            *Handicap
	Outcomes            []NormalizedOutcome
}

// NormalizedOutcome carries both the canonical name and the bookmaker's
// own name for the same selection, useful for debugging mapping drift.
type NormalizedOutcome struct {
	CanonicalOutcomeName string
	SourceNativeName     string
	Odds                 float64
	IsActive             bool
}

// RawMarket is what a bookmaker adapter extracts from the wire payload
// before any mapping: native market ID/name, optional parameterization,
// and the raw outcome list.
type RawMarket struct {
	NativeMarketID   string
	NativeMarketName string
	Line             *float64
	HandicapValue    *float64
	Outcomes         []RawOutcome
}

// RawOutcome is one outcome as extracted from a bookmaker's raw payload.
type RawOutcome struct {
	Name     string
	Odds     float64
	IsActive bool
}

// RawEventPayload is a bookmaker adapter's parsed fetch result for one
// event: every market found on the page/response.
type RawEventPayload struct {
	NativeEventID string
	Markets       []RawMarket
}
