package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

func TestUnmappedLoggerDedupesWithinCycle(t *testing.T) {
	l := NewUnmappedLogger()
	now := time.Now()

	l.Record(domain.SlugBet9ja, "S_WEIRD_1", "Weird Market", []string{"1", "X"}, now)
	l.Record(domain.SlugBet9ja, "S_WEIRD_1", "Weird Market Renamed", []string{"2"}, now.Add(time.Second))

	assert.Len(t, l.entries, 1)
	entry := l.entries[unmappedKey{source: domain.SlugBet9ja, marketID: "S_WEIRD_1"}]
	assert.Equal(t, "Weird Market", entry.marketName, "first occurrence wins, second is deduped")
}

func TestUnmappedLoggerDistinguishesBySourceAndMarket(t *testing.T) {
	l := NewUnmappedLogger()
	now := time.Now()

	l.Record(domain.SlugBet9ja, "S_WEIRD_1", "Weird", nil, now)
	l.Record(domain.SlugSportyBet, "S_WEIRD_1", "Weird", nil, now)
	l.Record(domain.SlugBet9ja, "S_OTHER_1", "Other", nil, now)

	assert.Len(t, l.entries, 3)
}

// Flush needs a live *store.MappingRepo, so this test repeats Flush's
// swap of the entry set by hand instead of calling it.
func TestUnmappedLoggerEntrySwapClearsInMemorySet(t *testing.T) {
	l := NewUnmappedLogger()
	l.Record(domain.SlugBet9ja, "S_WEIRD_1", "Weird", nil, time.Now())
	assert.Len(t, l.entries, 1)

	l.mu.Lock()
	entries := l.entries
	l.entries = make(map[unmappedKey]unmappedEntry)
	l.mu.Unlock()

	assert.Len(t, entries, 1)
	assert.Empty(t, l.entries)
}
