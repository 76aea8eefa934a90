package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderByPriorityUrgencyTiersBeatEverythingElse(t *testing.T) {
	now := time.Now()
	urgent := eventRow{canonicalID: "urgent", kickoff: now.Add(10 * time.Minute), coverage: 1}
	soon := eventRow{canonicalID: "soon", kickoff: now.Add(90 * time.Minute), coverage: 3}
	distant := eventRow{canonicalID: "distant", kickoff: now.Add(5 * time.Hour), coverage: 3}

	sorted := orderByPriority([]eventRow{distant, soon, urgent}, now)

	require.Len(t, sorted, 3)
	assert.Equal(t, "urgent", sorted[0].canonicalID)
	assert.Equal(t, "soon", sorted[1].canonicalID)
	assert.Equal(t, "distant", sorted[2].canonicalID)
}

func TestOrderByPriorityEarlierKickoffWinsWithinTier(t *testing.T) {
	now := time.Now()
	later := eventRow{canonicalID: "later", kickoff: now.Add(4 * time.Hour)}
	earlier := eventRow{canonicalID: "earlier", kickoff: now.Add(3 * time.Hour)}

	sorted := orderByPriority([]eventRow{later, earlier}, now)
	assert.Equal(t, "earlier", sorted[0].canonicalID)
	assert.Equal(t, "later", sorted[1].canonicalID)
}

func TestOrderByPriorityMoreCoverageWinsOnKickoffTie(t *testing.T) {
	now := time.Now()
	kickoff := now.Add(3 * time.Hour)
	low := eventRow{canonicalID: "low", kickoff: kickoff, coverage: 1}
	high := eventRow{canonicalID: "high", kickoff: kickoff, coverage: 3}

	sorted := orderByPriority([]eventRow{low, high}, now)
	assert.Equal(t, "high", sorted[0].canonicalID)
	assert.Equal(t, "low", sorted[1].canonicalID)
}

func TestOrderByPriorityReferencePresentWinsLastTiebreak(t *testing.T) {
	now := time.Now()
	kickoff := now.Add(3 * time.Hour)
	noRef := eventRow{canonicalID: "no-ref", kickoff: kickoff, coverage: 2, hasReference: false}
	withRef := eventRow{canonicalID: "with-ref", kickoff: kickoff, coverage: 2, hasReference: true}

	sorted := orderByPriority([]eventRow{noRef, withRef}, now)
	assert.Equal(t, "with-ref", sorted[0].canonicalID)
	assert.Equal(t, "no-ref", sorted[1].canonicalID)
}

func TestOrderByPriorityDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	events := []eventRow{
		{canonicalID: "b", kickoff: now.Add(2 * time.Hour)},
		{canonicalID: "a", kickoff: now.Add(time.Hour)},
	}
	_ = orderByPriority(events, now)
	assert.Equal(t, "b", events[0].canonicalID)
}

func TestBatchSplitsIntoFixedSizeChunks(t *testing.T) {
	events := make([]eventRow, 5)
	for i := range events {
		events[i] = eventRow{canonicalID: string(rune('a' + i))}
	}

	batches := batch(events, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestBatchDefaultsSizeWhenNonPositive(t *testing.T) {
	events := make([]eventRow, 3)
	batches := batch(events, 0)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}

func TestBatchEmptyInput(t *testing.T) {
	batches := batch(nil, 10)
	assert.Empty(t, batches)
}
