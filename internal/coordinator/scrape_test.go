package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
)

func TestSuspendedCarryoverStampsDisappearedMarket(t *testing.T) {
	now := time.Now().UTC()
	cached := &oddscache.CachedSnapshot{
		SnapshotID: 7,
		Markets: []oddscache.CachedMarket{
			{CanonicalMarketID: "1X2_FT", Outcomes: []oddscache.CachedOutcome{{Name: "HOME", Odds: 2.0, IsActive: true}}},
			{CanonicalMarketID: "OU_FT", Outcomes: []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}}},
		},
	}
	fresh := []domain.MarketOdds{
		{CanonicalID: "1X2_FT", Outcomes: []domain.Outcome{{Name: "HOME", Odds: 2.1, IsActive: true}}},
	}

	tombstones, updates := suspendedCarryover(cached, fresh, false, now)

	require.Len(t, tombstones, 1)
	assert.Equal(t, "OU_FT", tombstones[0].CanonicalMarketID)
	require.NotNil(t, tombstones[0].UnavailableAt)
	assert.Equal(t, now, *tombstones[0].UnavailableAt)

	require.Len(t, updates, 1)
	assert.Equal(t, int64(7), updates[0].SnapshotID)
	assert.Equal(t, "OU_FT", updates[0].CanonicalMarketID)
	assert.False(t, updates[0].IsCompetitor)
}

func TestSuspendedCarryoverKeepsExistingTombstoneWithoutNewUpdate(t *testing.T) {
	stamped := time.Now().Add(-10 * time.Minute).UTC()
	cached := &oddscache.CachedSnapshot{
		SnapshotID: 7,
		Markets: []oddscache.CachedMarket{
			{CanonicalMarketID: "1X2_FT", Outcomes: []oddscache.CachedOutcome{{Name: "HOME", Odds: 2.0, IsActive: true}}},
			{CanonicalMarketID: "OU_FT", UnavailableAt: &stamped, Outcomes: []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}}},
		},
	}
	fresh := []domain.MarketOdds{
		{CanonicalID: "1X2_FT", Outcomes: []domain.Outcome{{Name: "HOME", Odds: 2.1, IsActive: true}}},
	}

	tombstones, updates := suspendedCarryover(cached, fresh, false, time.Now().UTC())

	require.Len(t, tombstones, 1)
	assert.Equal(t, &stamped, tombstones[0].UnavailableAt, "existing stamp is preserved, not re-issued")
	assert.Empty(t, updates, "a market already flipped in the DB is not flipped again")
}

func TestSuspendedCarryoverDropsTombstoneWhenMarketReturns(t *testing.T) {
	stamped := time.Now().Add(-10 * time.Minute).UTC()
	cached := &oddscache.CachedSnapshot{
		SnapshotID: 7,
		Markets: []oddscache.CachedMarket{
			{CanonicalMarketID: "OU_FT", UnavailableAt: &stamped, Outcomes: []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}}},
		},
	}
	fresh := []domain.MarketOdds{
		{CanonicalID: "OU_FT", Outcomes: []domain.Outcome{{Name: "OVER", Odds: 1.85, IsActive: true}}},
	}

	tombstones, updates := suspendedCarryover(cached, fresh, false, time.Now().UTC())

	assert.Empty(t, tombstones, "the fresh market row replaces the tombstone")
	assert.Empty(t, updates)
}

func TestSuspendedCarryoverSkipsUnflushedSnapshot(t *testing.T) {
	cached := &oddscache.CachedSnapshot{
		SnapshotID: 0, // inserted this cycle, row ID not yet assigned
		Markets: []oddscache.CachedMarket{
			{CanonicalMarketID: "OU_FT", Outcomes: []oddscache.CachedOutcome{{Name: "OVER", Odds: 1.9, IsActive: true}}},
		},
	}

	tombstones, updates := suspendedCarryover(cached, nil, false, time.Now().UTC())

	require.Len(t, tombstones, 1, "the cache still learns about the suspension")
	assert.Empty(t, updates, "no DB row to flip yet")
}
