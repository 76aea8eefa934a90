package mapping

import "github.com/palimpsest-sports/scrapecore/internal/domain"

// SportyBetMapper maps competitor-A markets by exact market-ID match.
type SportyBetMapper struct {
	cache *Cache
}

func NewSportyBetMapper(cache *Cache) *SportyBetMapper {
	return &SportyBetMapper{cache: cache}
}

func (m *SportyBetMapper) MapMarket(raw domain.RawMarket) (domain.NormalizedMarket, error) {
	mapping, ok := m.cache.BySportyBetID(raw.NativeMarketID)
	if !ok {
		return domain.NormalizedMarket{}, mappingError(domain.ErrUnknownMarket, domain.SlugSportyBet, raw.NativeMarketID,
			"no mapping for sportybet market id "+raw.NativeMarketID)
	}
	if mapping.BetpawaID == nil {
		return domain.NormalizedMarket{}, mappingError(domain.ErrUnsupportedPlatform, domain.SlugSportyBet, raw.NativeMarketID,
			"market "+mapping.Name+" has no betpawa counterpart")
	}

	outcomes := make([]domain.NormalizedOutcome, 0, len(raw.Outcomes))
	for pos, o := range raw.Outcomes {
		om, ok := resolveOutcomeByName(mapping.OutcomeMappings, o.Name, func(x domain.OutcomeMapping) *string { return x.SportyBetDesc })
		if !ok {
			om, ok = resolveOutcomeByPosition(mapping.OutcomeMappings, pos)
		}
		if !ok || om.BetpawaName == nil {
			continue
		}
		outcomes = append(outcomes, domain.NormalizedOutcome{
			CanonicalOutcomeName: *om.BetpawaName,
			SourceNativeName:     o.Name,
			Odds:                 o.Odds,
			IsActive:             o.IsActive,
		})
	}
	if len(outcomes) == 0 {
		return domain.NormalizedMarket{}, mappingError(domain.ErrNoMatchingOutcomes, domain.SlugSportyBet, raw.NativeMarketID,
			"no outcomes resolved for market "+mapping.Name)
	}

	return domain.NormalizedMarket{
		CanonicalMarketID:   mapping.CanonicalID,
		CanonicalMarketName: mapping.Name,
		Line:                raw.Line,
		Handicap:            handicapFromRaw(mapping.CanonicalID, raw.HandicapValue),
		Outcomes:            outcomes,
	}, nil
}
