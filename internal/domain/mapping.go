package domain

import "time"

// MarketMapping translates one bookmaker-native market into the canonical
// (betpawa) taxonomy. Up to three source-specific keys (one per
// bookmaker) and an ordered list of outcome mappings.
type MarketMapping struct {
	CanonicalID      string
	Name             string
	BetpawaID        *string
	SportyBetID      *string
	Bet9jaKey        *string
	OutcomeMappings  []OutcomeMapping
	Source           MappingSource // "code" or "db"
	Active           bool
}

// MappingSource distinguishes compiled-in defaults from DB overrides.
type MappingSource string

const (
	MappingSourceCode MappingSource = "code"
	MappingSourceDB   MappingSource = "db"
)

// OutcomeMapping is one row of a MarketMapping's outcome list.
type OutcomeMapping struct {
	CanonicalOutcomeID string
	BetpawaName        *string
	SportyBetDesc      *string
	Bet9jaSuffix       *string
	Position           int
}

// UnmappedMarketLog is the discovery log for a bookmaker market with no
// matching mapping. Unique on (Source, ExternalMarketID).
type UnmappedMarketLog struct {
	ID                int64
	Source            BookmakerSlug
	ExternalMarketID  string
	ExternalMarketName string
	SampleOutcomes    []string
	FirstSeenAt       time.Time
	LastSeenAt        time.Time
	OccurrenceCount   int
	Status            UnmappedStatus
}

// UnmappedStatus is the lifecycle of an UnmappedMarketLog row.
type UnmappedStatus string

const (
	UnmappedStatusNew          UnmappedStatus = "new"
	UnmappedStatusAcknowledged UnmappedStatus = "acknowledged"
	UnmappedStatusMapped       UnmappedStatus = "mapped"
	UnmappedStatusIgnored      UnmappedStatus = "ignored"
)

// MappingErrorKind enumerates the market-mapping-layer error taxonomy
// raised by the per-bookmaker mappers.
type MappingErrorKind string

const (
	ErrUnknownMarket       MappingErrorKind = "UNKNOWN_MARKET"
	ErrUnsupportedPlatform MappingErrorKind = "UNSUPPORTED_PLATFORM"
	ErrInvalidSpecifier    MappingErrorKind = "INVALID_SPECIFIER"
	ErrUnknownParamMarket  MappingErrorKind = "UNKNOWN_PARAM_MARKET"
	ErrNoMatchingOutcomes  MappingErrorKind = "NO_MATCHING_OUTCOMES"
	ErrInvalidOdds         MappingErrorKind = "INVALID_ODDS"
	ErrInvalidKeyFormat    MappingErrorKind = "INVALID_KEY_FORMAT"
)

// MappingError is the typed error returned by a Mapper when a raw market
// cannot be translated into the canonical taxonomy.
type MappingError struct {
	Kind             MappingErrorKind
	Source           BookmakerSlug
	ExternalMarketID string
	Message          string
}

func (e *MappingError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
