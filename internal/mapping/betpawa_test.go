package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

func TestBetpawaMapperMapMarket(t *testing.T) {
	cache := newTestCache([]domain.MarketMapping{
		{CanonicalID: "1X2_FT", Name: "Match Result", BetpawaID: str("1")},
	})
	m := NewBetpawaMapper(cache)

	raw := domain.RawMarket{
		NativeMarketID: "1",
		Outcomes: []domain.RawOutcome{
			{Name: "1", Odds: 2.1, IsActive: true},
			{Name: "X", Odds: 3.2, IsActive: true},
		},
	}

	out, err := m.MapMarket(raw)
	require.NoError(t, err)
	assert.Equal(t, "1X2_FT", out.CanonicalMarketID)
	require.Len(t, out.Outcomes, 2)
	assert.Equal(t, "1", out.Outcomes[0].CanonicalOutcomeName)
	assert.Equal(t, 2.1, out.Outcomes[0].Odds)
}

func TestBetpawaMapperUnknownMarket(t *testing.T) {
	cache := newTestCache(nil)
	m := NewBetpawaMapper(cache)

	_, err := m.MapMarket(domain.RawMarket{NativeMarketID: "999"})
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, domain.ErrUnknownMarket, mapErr.Kind)
}

func TestBetpawaMapperNoOutcomes(t *testing.T) {
	cache := newTestCache([]domain.MarketMapping{{CanonicalID: "1X2_FT", BetpawaID: str("1")}})
	m := NewBetpawaMapper(cache)

	_, err := m.MapMarket(domain.RawMarket{NativeMarketID: "1"})
	require.Error(t, err)
	var mapErr *domain.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, domain.ErrNoMatchingOutcomes, mapErr.Kind)
}

func TestHandicapFromRawInfersEuropeanForKnownID(t *testing.T) {
	value := 1.5
	h := handicapFromRaw("EU_HND_FT", &value)
	require.NotNil(t, h)
	assert.Equal(t, domain.HandicapEuropean, h.Type)
	assert.Equal(t, 1.5, h.Home)
	assert.Equal(t, -1.5, h.Away)
}

func TestHandicapFromRawDefaultsToAsian(t *testing.T) {
	value := 0.75
	h := handicapFromRaw("AH_FT", &value)
	require.NotNil(t, h)
	assert.Equal(t, domain.HandicapAsian, h.Type)
}

func TestHandicapFromRawNilValue(t *testing.T) {
	assert.Nil(t, handicapFromRaw("EU_HND_FT", nil))
}
