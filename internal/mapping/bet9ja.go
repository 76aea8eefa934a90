package mapping

import (
	"strconv"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// bet9jaOverUnderKeys are market keys whose param is a total-goals
// line.
var bet9jaOverUnderKeys = map[string]bool{
	"OU": true, "OU1T": true, "OU2T": true,
	"HAOU": true, "HA1HOU": true, "HA2HOU": true,
	"OUCORNERS": true, "OUCORNERS1T": true,
	"CORNERSHOMEOU": true, "CORNERSAWAYOU": true,
	"OUBOOK": true, "OUBOOK1T": true,
	"OUBOOKHOME": true, "OUBOOKAWAY": true,
	"HTFTOU": true,
}

// bet9jaHandicapKeys are market keys whose param is a handicap value;
// the handicap type (asian vs european) is inferred from the canonical
// ID the key maps to.
var bet9jaHandicapKeys = map[string]bool{
	"AH": true, "AH1T": true, "AH2T": true,
	"1X2HND": true, "1X2HNDHT": true, "1X2HND2TN": true,
	"AHCORNERS": true, "AHCORNERS1T": true,
}

// bet9jaHAOUCombinedKeys carry both home and away team totals in one
// flattened market and must be split into separate home/away canonical
// markets.
var bet9jaHAOUCombinedKeys = map[string]bool{
	"HAOU": true, "HA1HOU": true, "HA2HOU": true,
}

type haouSplitTarget struct {
	homeCanonicalID string
	awayCanonicalID string
}

var haouSplitConfig = map[string]haouSplitTarget{
	"HAOU":   {homeCanonicalID: "HOME_OU_FT", awayCanonicalID: "AWAY_OU_FT"},
	"HA1HOU": {homeCanonicalID: "HOME_OU_1T", awayCanonicalID: "AWAY_OU_1T"},
	"HA2HOU": {homeCanonicalID: "HOME_OU_2T", awayCanonicalID: "AWAY_OU_2T"},
}

// Bet9jaMapper maps competitor-B's flattened key-value odds format
// into canonical markets.
type Bet9jaMapper struct {
	cache *Cache
}

func NewBet9jaMapper(cache *Cache) *Bet9jaMapper {
	return &Bet9jaMapper{cache: cache}
}

// MapOdds maps a full Bet9ja odds dict into zero or more normalized
// markets. Unlike betpawa/sportybet (one RawMarket in, one
// NormalizedMarket out), Bet9ja's wire format only makes sense grouped
// across the whole payload, so this does not implement the Mapper
// interface — the coordinator calls it directly for bet9ja responses.
func (m *Bet9jaMapper) MapOdds(odds map[string]string) ([]domain.NormalizedMarket, []error) {
	var results []domain.NormalizedMarket
	var errs []error

	for _, grouped := range groupBet9jaOdds(odds) {
		if bet9jaHAOUCombinedKeys[grouped.MarketKey] {
			results = append(results, m.mapHAOUCombined(grouped)...)
			continue
		}

		markets, err := m.mapGrouped(grouped)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, markets...)
	}
	return results, errs
}

func (m *Bet9jaMapper) mapGrouped(g groupedBet9jaMarket) ([]domain.NormalizedMarket, error) {
	lookupKey := "S_" + g.MarketKey
	mapping, prefix, ok := m.cache.ByBet9jaKey(lookupKey)
	if !ok || prefix != lookupKey {
		return nil, mappingError(domain.ErrUnknownMarket, domain.SlugBet9ja, g.MarketKey,
			"no mapping for bet9ja market key "+g.MarketKey)
	}
	if mapping.Bet9jaKey == nil {
		return nil, mappingError(domain.ErrUnknownMarket, domain.SlugBet9ja, g.MarketKey,
			"market "+mapping.Name+" has no bet9ja_key mapping")
	}
	if mapping.BetpawaID == nil {
		return nil, mappingError(domain.ErrUnsupportedPlatform, domain.SlugBet9ja, g.MarketKey,
			"market "+mapping.Name+" has no betpawa counterpart")
	}

	switch {
	case bet9jaOverUnderKeys[g.MarketKey]:
		return m.mapOverUnder(g, mapping)
	case bet9jaHandicapKeys[g.MarketKey]:
		return m.mapHandicap(g, mapping)
	default:
		if g.HasParam {
			return nil, mappingError(domain.ErrUnknownParamMarket, domain.SlugBet9ja, g.MarketKey,
				"unrecognized parameterized market type "+g.MarketKey)
		}
		return m.mapSimple(g, mapping)
	}
}

func (m *Bet9jaMapper) mapSimple(g groupedBet9jaMarket, mapping domain.MarketMapping) ([]domain.NormalizedMarket, error) {
	outcomes, err := m.mapOutcomes(g, mapping)
	if err != nil {
		return nil, err
	}
	return []domain.NormalizedMarket{{
		CanonicalMarketID:   mapping.CanonicalID,
		CanonicalMarketName: mapping.Name,
		Outcomes:            outcomes,
	}}, nil
}

func (m *Bet9jaMapper) mapOverUnder(g groupedBet9jaMarket, mapping domain.MarketMapping) ([]domain.NormalizedMarket, error) {
	if !g.HasParam {
		return nil, mappingError(domain.ErrInvalidSpecifier, domain.SlugBet9ja, g.MarketKey,
			"over/under market missing line parameter")
	}
	line, err := strconv.ParseFloat(g.Param, 64)
	if err != nil {
		return nil, mappingError(domain.ErrInvalidSpecifier, domain.SlugBet9ja, g.MarketKey,
			"could not parse line value from param "+g.Param)
	}
	outcomes, err := m.mapOutcomes(g, mapping)
	if err != nil {
		return nil, err
	}
	return []domain.NormalizedMarket{{
		CanonicalMarketID:   mapping.CanonicalID,
		CanonicalMarketName: mapping.Name,
		Line:                &line,
		Outcomes:            outcomes,
	}}, nil
}

func (m *Bet9jaMapper) mapHandicap(g groupedBet9jaMarket, mapping domain.MarketMapping) ([]domain.NormalizedMarket, error) {
	if !g.HasParam {
		return nil, mappingError(domain.ErrInvalidSpecifier, domain.SlugBet9ja, g.MarketKey,
			"handicap market missing handicap parameter")
	}
	value, err := strconv.ParseFloat(g.Param, 64)
	if err != nil {
		return nil, mappingError(domain.ErrInvalidSpecifier, domain.SlugBet9ja, g.MarketKey,
			"could not parse handicap value from param "+g.Param)
	}

	handicapType := domain.HandicapAsian
	if g.MarketKey == "1X2HND" || g.MarketKey == "1X2HNDHT" || g.MarketKey == "1X2HND2TN" {
		handicapType = domain.HandicapEuropean
	}

	outcomes, err := m.mapOutcomes(g, mapping)
	if err != nil {
		return nil, err
	}
	return []domain.NormalizedMarket{{
		CanonicalMarketID:   mapping.CanonicalID,
		CanonicalMarketName: mapping.Name,
		Handicap:            &domain.Handicap{Type: handicapType, Home: value, Away: -value},
		Outcomes:            outcomes,
	}}, nil
}

func (m *Bet9jaMapper) mapOutcomes(g groupedBet9jaMarket, mapping domain.MarketMapping) ([]domain.NormalizedOutcome, error) {
	var outcomes []domain.NormalizedOutcome
	for suffix, oddsStr := range g.Outcomes {
		om, ok := matchBet9jaSuffix(mapping.OutcomeMappings, suffix)
		if !ok || om.BetpawaName == nil {
			continue
		}
		odds, err := strconv.ParseFloat(oddsStr, 64)
		if err != nil {
			continue
		}
		outcomes = append(outcomes, domain.NormalizedOutcome{
			CanonicalOutcomeName: *om.BetpawaName,
			SourceNativeName:     suffix,
			Odds:                 odds,
			IsActive:             true, // bet9ja doesn't report availability; present implies active
		})
	}
	if len(outcomes) == 0 {
		return nil, mappingError(domain.ErrNoMatchingOutcomes, domain.SlugBet9ja, mapping.CanonicalID,
			"no outcomes could be mapped for market "+mapping.Name)
	}
	return outcomes, nil
}

func matchBet9jaSuffix(mappings []domain.OutcomeMapping, suffix string) (domain.OutcomeMapping, bool) {
	for _, m := range mappings {
		if m.Bet9jaSuffix != nil && *m.Bet9jaSuffix == suffix {
			return m, true
		}
	}
	return domain.OutcomeMapping{}, false
}

// mapHAOUCombined splits a combined Home/Away Over/Under market into
// separate home and away markets. Bet9ja uses inconsistent outcome
// suffixes between full-time ("OH"/"UH"/"OA"/"UA") and half markets
// ("HO"/"HU"/"AO"/"AU"); both are checked.
func (m *Bet9jaMapper) mapHAOUCombined(g groupedBet9jaMarket) []domain.NormalizedMarket {
	target, ok := haouSplitConfig[g.MarketKey]
	if !ok || !g.HasParam {
		return nil
	}
	line, err := strconv.ParseFloat(g.Param, 64)
	if err != nil {
		return nil
	}

	var results []domain.NormalizedMarket

	if home := m.splitSide(g, line, target.homeCanonicalID, "Home Team Over/Under",
		[]string{"HO", "OH"}, []string{"HU", "UH"}); home != nil {
		results = append(results, *home)
	}
	if away := m.splitSide(g, line, target.awayCanonicalID, "Away Team Over/Under",
		[]string{"AO", "OA"}, []string{"AU", "UA"}); away != nil {
		results = append(results, *away)
	}
	return results
}

func (m *Bet9jaMapper) splitSide(g groupedBet9jaMarket, line float64, canonicalID, fallbackName string, overKeys, underKeys []string) *domain.NormalizedMarket {
	mapping, _ := m.cache.ByCanonicalID(canonicalID)
	name := mapping.Name
	if name == "" {
		name = fallbackName
	}

	var outcomes []domain.NormalizedOutcome
	if suffix, ok := firstPresent(g.Outcomes, overKeys); ok {
		if odds, err := strconv.ParseFloat(g.Outcomes[suffix], 64); err == nil {
			outcomes = append(outcomes, domain.NormalizedOutcome{CanonicalOutcomeName: "Over", SourceNativeName: suffix, Odds: odds, IsActive: true})
		}
	}
	if suffix, ok := firstPresent(g.Outcomes, underKeys); ok {
		if odds, err := strconv.ParseFloat(g.Outcomes[suffix], 64); err == nil {
			outcomes = append(outcomes, domain.NormalizedOutcome{CanonicalOutcomeName: "Under", SourceNativeName: suffix, Odds: odds, IsActive: true})
		}
	}
	if len(outcomes) == 0 {
		return nil
	}

	return &domain.NormalizedMarket{
		CanonicalMarketID:   canonicalID,
		CanonicalMarketName: name,
		Line:                &line,
		Outcomes:            outcomes,
	}
}

func firstPresent(m map[string]string, keys []string) (string, bool) {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return k, true
		}
	}
	return "", false
}
