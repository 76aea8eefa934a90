package mapping

import "github.com/palimpsest-sports/scrapecore/internal/domain"

// BetpawaMapper passes markets through unchanged: betpawa is the
// reference bookmaker, so its native market/outcome naming already is
// the canonical taxonomy. It still validates the market ID
// is a known one so unmapped markets get logged the same as everywhere
// else.
type BetpawaMapper struct {
	cache *Cache
}

func NewBetpawaMapper(cache *Cache) *BetpawaMapper {
	return &BetpawaMapper{cache: cache}
}

func (m *BetpawaMapper) MapMarket(raw domain.RawMarket) (domain.NormalizedMarket, error) {
	mapping, ok := m.cache.ByBetpawaID(raw.NativeMarketID)
	if !ok {
		return domain.NormalizedMarket{}, mappingError(domain.ErrUnknownMarket, domain.SlugBetpawa, raw.NativeMarketID,
			"no mapping for betpawa market id "+raw.NativeMarketID)
	}

	outcomes := make([]domain.NormalizedOutcome, 0, len(raw.Outcomes))
	for _, o := range raw.Outcomes {
		outcomes = append(outcomes, domain.NormalizedOutcome{
			CanonicalOutcomeName: o.Name,
			SourceNativeName:     o.Name,
			Odds:                 o.Odds,
			IsActive:             o.IsActive,
		})
	}
	if len(outcomes) == 0 {
		return domain.NormalizedMarket{}, mappingError(domain.ErrNoMatchingOutcomes, domain.SlugBetpawa, raw.NativeMarketID,
			"betpawa market carried no outcomes")
	}

	return domain.NormalizedMarket{
		CanonicalMarketID:   mapping.CanonicalID,
		CanonicalMarketName: mapping.Name,
		Line:                raw.Line,
		Handicap:            handicapFromRaw(mapping.CanonicalID, raw.HandicapValue),
		Outcomes:            outcomes,
	}, nil
}

// handicapFromRaw infers a Handicap triple from a raw handicap value,
// when present, using the canonical ID to decide asian vs european.
func handicapFromRaw(canonicalID string, value *float64) *domain.Handicap {
	if value == nil {
		return nil
	}
	t := domain.HandicapAsian
	if isEuropeanHandicapID(canonicalID) {
		t = domain.HandicapEuropean
	}
	return &domain.Handicap{Type: t, Home: *value, Away: -*value}
}

func isEuropeanHandicapID(canonicalID string) bool {
	return canonicalID == "EU_HND_FT"
}
