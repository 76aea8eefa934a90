package changedetect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
)

func cachedSnapshot(markets ...oddscache.CachedMarket) *oddscache.CachedSnapshot {
	return &oddscache.CachedSnapshot{SnapshotID: 42, Markets: markets}
}

func cachedMarket(id string, outcomes ...oddscache.CachedOutcome) oddscache.CachedMarket {
	return oddscache.CachedMarket{CanonicalMarketID: id, Outcomes: outcomes}
}

func marketOdds(id string, outcomes ...domain.Outcome) domain.MarketOdds {
	return domain.MarketOdds{CanonicalID: id, Outcomes: outcomes}
}

func TestClassify_NilCacheIsChanged(t *testing.T) {
	got := Classify(nil, []domain.MarketOdds{marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true})})
	assert.True(t, got.Changed)
}

func TestClassify_MarketCountMismatchIsChanged(t *testing.T) {
	cached := cachedSnapshot(cachedMarket("1X2_FT", oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true}))
	fresh := []domain.MarketOdds{
		marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true}),
		marketOdds("OU_FT", domain.Outcome{Name: "OVER", Odds: 1.9, IsActive: true}),
	}
	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}

func TestClassify_MissingMarketIsChanged(t *testing.T) {
	cached := cachedSnapshot(cachedMarket("1X2_FT", oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true}))
	fresh := []domain.MarketOdds{marketOdds("OU_FT", domain.Outcome{Name: "OVER", Odds: 1.9, IsActive: true})}
	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}

func TestClassify_IdenticalMarketsAreUnchanged(t *testing.T) {
	cached := cachedSnapshot(
		cachedMarket("1X2_FT",
			oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true},
			oddscache.CachedOutcome{Name: "AWAY", Odds: 3.4, IsActive: true},
		),
	)
	fresh := []domain.MarketOdds{
		marketOdds("1X2_FT",
			domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true},
			domain.Outcome{Name: "AWAY", Odds: 3.4, IsActive: true},
		),
	}
	got := Classify(cached, fresh)
	require.False(t, got.Changed)
	assert.Equal(t, int64(42), got.CachedSnapshotID)
}

func TestClassify_OutcomeOrderDoesNotCountAsChanged(t *testing.T) {
	cached := cachedSnapshot(
		cachedMarket("1X2_FT",
			oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true},
			oddscache.CachedOutcome{Name: "AWAY", Odds: 3.4, IsActive: true},
		),
	)
	fresh := []domain.MarketOdds{
		marketOdds("1X2_FT",
			domain.Outcome{Name: "AWAY", Odds: 3.4, IsActive: true},
			domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true},
		),
	}
	got := Classify(cached, fresh)
	assert.False(t, got.Changed)
}

func TestClassify_OddsDriftIsChanged(t *testing.T) {
	cached := cachedSnapshot(cachedMarket("1X2_FT", oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true}))
	fresh := []domain.MarketOdds{marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.15, IsActive: true})}
	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}

func TestClassify_AvailabilityFlipIsChanged(t *testing.T) {
	cached := cachedSnapshot(cachedMarket("1X2_FT", oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true}))
	fresh := []domain.MarketOdds{marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: false})}
	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}

func TestClassify_SuspendedTombstoneDoesNotForceChange(t *testing.T) {
	stamped := time.Now().UTC()
	cached := cachedSnapshot(
		cachedMarket("1X2_FT", oddscache.CachedOutcome{Name: "HOME", Odds: 2.1, IsActive: true}),
		oddscache.CachedMarket{
			CanonicalMarketID: "OU_FT",
			Outcomes:          []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}},
			UnavailableAt:     &stamped,
		},
	)
	fresh := []domain.MarketOdds{marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true})}

	got := Classify(cached, fresh)
	require.False(t, got.Changed, "a market already stamped unavailable is not part of the live set")
	assert.Equal(t, int64(42), got.CachedSnapshotID)
}

func TestClassify_SuspendedMarketReappearingIsChanged(t *testing.T) {
	stamped := time.Now().UTC()
	cached := cachedSnapshot(oddscache.CachedMarket{
		CanonicalMarketID: "1X2_FT",
		Outcomes:          []oddscache.CachedOutcome{{Name: "HOME", Odds: 2.1, IsActive: true}},
		UnavailableAt:     &stamped,
	})
	fresh := []domain.MarketOdds{marketOdds("1X2_FT", domain.Outcome{Name: "HOME", Odds: 2.1, IsActive: true})}

	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}

func TestClassify_LineDistinguishesMarketIdentity(t *testing.T) {
	line25 := 2.5
	line30 := 3.0
	cached := cachedSnapshot(oddscache.CachedMarket{
		CanonicalMarketID: "OU_FT",
		Line:              &line25,
		Outcomes:          []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}},
	})
	fresh := []domain.MarketOdds{{
		CanonicalID: "OU_FT",
		Line:        &line30,
		Outcomes:    []domain.Outcome{{Name: "OVER", Odds: 1.9, IsActive: true}},
	}}
	got := Classify(cached, fresh)
	assert.True(t, got.Changed)
}
