package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

func bet9jaCacheWith(mappings ...domain.MarketMapping) *Cache {
	return newTestCache(mappings)
}

func TestBet9jaMapperSimpleMarket(t *testing.T) {
	cache := bet9jaCacheWith(domain.MarketMapping{
		CanonicalID: "1X2_FT",
		Name:        "Match Result",
		BetpawaID:   str("1"),
		Bet9jaKey:   str("1X2"),
		OutcomeMappings: []domain.OutcomeMapping{
			{BetpawaName: str("1"), Bet9jaSuffix: str("1")},
			{BetpawaName: str("X"), Bet9jaSuffix: str("X")},
			{BetpawaName: str("2"), Bet9jaSuffix: str("2")},
		},
	})
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{
		"S_1X2_1": "2.10",
		"S_1X2_X": "3.20",
		"S_1X2_2": "3.50",
	})
	require.Empty(t, errs)
	require.Len(t, markets, 1)
	assert.Equal(t, "1X2_FT", markets[0].CanonicalMarketID)
	assert.Nil(t, markets[0].Line)
	assert.Len(t, markets[0].Outcomes, 3)
}

func TestBet9jaMapperOverUnderParsesLine(t *testing.T) {
	cache := bet9jaCacheWith(domain.MarketMapping{
		CanonicalID: "OU_FT",
		Name:        "Total Goals O/U",
		BetpawaID:   str("18"),
		Bet9jaKey:   str("OU"),
		OutcomeMappings: []domain.OutcomeMapping{
			{BetpawaName: str("Over"), Bet9jaSuffix: str("O")},
			{BetpawaName: str("Under"), Bet9jaSuffix: str("U")},
		},
	})
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{
		"S_OU@2.5_O": "1.90",
		"S_OU@2.5_U": "1.95",
	})
	require.Empty(t, errs)
	require.Len(t, markets, 1)
	require.NotNil(t, markets[0].Line)
	assert.Equal(t, 2.5, *markets[0].Line)
}

func TestBet9jaMapperHandicapInfersEuropeanType(t *testing.T) {
	cache := bet9jaCacheWith(domain.MarketMapping{
		CanonicalID: "EU_HND_FT",
		Name:        "European Handicap",
		BetpawaID:   str("50"),
		Bet9jaKey:   str("1X2HND"),
		OutcomeMappings: []domain.OutcomeMapping{
			{BetpawaName: str("1"), Bet9jaSuffix: str("1")},
			{BetpawaName: str("X"), Bet9jaSuffix: str("X")},
			{BetpawaName: str("2"), Bet9jaSuffix: str("2")},
		},
	})
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{
		"S_1X2HND@1_1": "2.00",
		"S_1X2HND@1_X": "3.10",
		"S_1X2HND@1_2": "3.80",
	})
	require.Empty(t, errs)
	require.Len(t, markets, 1)
	require.NotNil(t, markets[0].Handicap)
	assert.Equal(t, domain.HandicapEuropean, markets[0].Handicap.Type)
	assert.Equal(t, 1.0, markets[0].Handicap.Home)
	assert.Equal(t, -1.0, markets[0].Handicap.Away)
}

func TestBet9jaMapperHandicapDefaultsToAsianType(t *testing.T) {
	cache := bet9jaCacheWith(domain.MarketMapping{
		CanonicalID: "AH_FT",
		Name:        "Asian Handicap",
		BetpawaID:   str("51"),
		Bet9jaKey:   str("AH"),
		OutcomeMappings: []domain.OutcomeMapping{
			{BetpawaName: str("1"), Bet9jaSuffix: str("1")},
			{BetpawaName: str("2"), Bet9jaSuffix: str("2")},
		},
	})
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{
		"S_AH@-0.5_1": "1.85",
		"S_AH@-0.5_2": "1.95",
	})
	require.Empty(t, errs)
	require.Len(t, markets, 1)
	assert.Equal(t, domain.HandicapAsian, markets[0].Handicap.Type)
}

func TestBet9jaMapperHAOUCombinedSplitsHomeAndAway(t *testing.T) {
	cache := bet9jaCacheWith(
		domain.MarketMapping{CanonicalID: "HOME_OU_FT", Name: "Home Team O/U"},
		domain.MarketMapping{CanonicalID: "AWAY_OU_FT", Name: "Away Team O/U"},
	)
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{
		"S_HAOU@1.5_HO": "1.70",
		"S_HAOU@1.5_HU": "2.10",
		"S_HAOU@1.5_AO": "1.90",
		"S_HAOU@1.5_AU": "1.85",
	})
	require.Empty(t, errs)
	require.Len(t, markets, 2)

	byID := map[string]domain.NormalizedMarket{}
	for _, mk := range markets {
		byID[mk.CanonicalMarketID] = mk
	}
	require.Contains(t, byID, "HOME_OU_FT")
	require.Contains(t, byID, "AWAY_OU_FT")
	assert.Len(t, byID["HOME_OU_FT"].Outcomes, 2)
	assert.Len(t, byID["AWAY_OU_FT"].Outcomes, 2)
}

func TestBet9jaMapperUnknownMarketKeyReportsError(t *testing.T) {
	cache := bet9jaCacheWith()
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{"S_WEIRDMARKET_1": "2.0"})
	assert.Empty(t, markets)
	require.Len(t, errs, 1)
	var mapErr *domain.MappingError
	require.ErrorAs(t, errs[0], &mapErr)
	assert.Equal(t, domain.ErrUnknownMarket, mapErr.Kind)
}

func TestBet9jaMapperUnrecognizedParamMarketKind(t *testing.T) {
	cache := bet9jaCacheWith(domain.MarketMapping{
		CanonicalID: "WEIRD",
		Name:        "Weird",
		BetpawaID:   str("99"),
		Bet9jaKey:   str("WEIRD"),
	})
	m := NewBet9jaMapper(cache)

	markets, errs := m.MapOdds(map[string]string{"S_WEIRD@1_1": "2.0"})
	assert.Empty(t, markets)
	require.Len(t, errs, 1)
	var mapErr *domain.MappingError
	require.ErrorAs(t, errs[0], &mapErr)
	assert.Equal(t, domain.ErrUnknownParamMarket, mapErr.Kind)
}
