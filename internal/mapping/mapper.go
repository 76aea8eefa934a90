package mapping

import "github.com/palimpsest-sports/scrapecore/internal/domain"

// Mapper translates one bookmaker's raw market into the canonical
// taxonomy. BetpawaMapper and SportyBetMapper implement it;
// Bet9jaMapper maps a whole flattened odds dict through MapOdds instead.
type Mapper interface {
	MapMarket(raw domain.RawMarket) (domain.NormalizedMarket, error)
}

// resolveOutcomeByName finds an OutcomeMapping whose source-specific
// descriptor case-insensitively matches name.
func resolveOutcomeByName(mappings []domain.OutcomeMapping, name string, descriptor func(domain.OutcomeMapping) *string) (domain.OutcomeMapping, bool) {
	lower := lowerASCII(name)
	for _, m := range mappings {
		d := descriptor(m)
		if d != nil && lowerASCII(*d) == lower {
			return m, true
		}
	}
	return domain.OutcomeMapping{}, false
}

// resolveOutcomeByPosition finds an OutcomeMapping whose Position
// matches pos, used as the fallback when name matching fails.
func resolveOutcomeByPosition(mappings []domain.OutcomeMapping, pos int) (domain.OutcomeMapping, bool) {
	for _, m := range mappings {
		if m.Position == pos {
			return m, true
		}
	}
	return domain.OutcomeMapping{}, false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func mappingError(kind domain.MappingErrorKind, source domain.BookmakerSlug, externalMarketID, msg string) error {
	return &domain.MappingError{Kind: kind, Source: source, ExternalMarketID: externalMarketID, Message: msg}
}
