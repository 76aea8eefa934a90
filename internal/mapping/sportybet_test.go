package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

func sportyBetTestMapping() domain.MarketMapping {
	return domain.MarketMapping{
		CanonicalID: "1X2_FT",
		Name:        "Match Result",
		BetpawaID:   str("1"),
		SportyBetID: str("sr:1x2"),
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME", BetpawaName: str("1"), SportyBetDesc: str("Home"), Position: 0},
			{CanonicalOutcomeID: "DRAW", BetpawaName: str("X"), SportyBetDesc: str("Draw"), Position: 1},
			{CanonicalOutcomeID: "AWAY", BetpawaName: str("2"), SportyBetDesc: str("Away"), Position: 2},
		},
	}
}

func TestSportyBetMapperMatchesByName(t *testing.T) {
	cache := newTestCache([]domain.MarketMapping{sportyBetTestMapping()})
	m := NewSportyBetMapper(cache)

	raw := domain.RawMarket{
		NativeMarketID: "sr:1x2",
		Outcomes: []domain.RawOutcome{
			{Name: "Draw", Odds: 3.3, IsActive: true},
			{Name: "Home", Odds: 2.0, IsActive: true},
		},
	}

	out, err := m.MapMarket(raw)
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 2)
	assert.Equal(t, "X", out.Outcomes[0].CanonicalOutcomeName)
	assert.Equal(t, "1", out.Outcomes[1].CanonicalOutcomeName)
}

func TestSportyBetMapperFallsBackToPosition(t *testing.T) {
	cache := newTestCache([]domain.MarketMapping{sportyBetTestMapping()})
	m := NewSportyBetMapper(cache)

	raw := domain.RawMarket{
		NativeMarketID: "sr:1x2",
		Outcomes: []domain.RawOutcome{
			{Name: "Unexpected Label", Odds: 2.0, IsActive: true},
		},
	}

	out, err := m.MapMarket(raw)
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	assert.Equal(t, "1", out.Outcomes[0].CanonicalOutcomeName)
}

func TestSportyBetMapperUnknownMarketID(t *testing.T) {
	cache := newTestCache(nil)
	m := NewSportyBetMapper(cache)

	_, err := m.MapMarket(domain.RawMarket{NativeMarketID: "sr:unknown"})
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, domain.ErrUnknownMarket, mapErr.Kind)
}

func TestSportyBetMapperNoBetpawaCounterpart(t *testing.T) {
	cache := newTestCache([]domain.MarketMapping{
		{CanonicalID: "EXOTIC", SportyBetID: str("sr:exotic")},
	})
	m := NewSportyBetMapper(cache)

	_, err := m.MapMarket(domain.RawMarket{NativeMarketID: "sr:exotic"})
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, domain.ErrUnsupportedPlatform, mapErr.Kind)
}
