package mapping

import (
	"context"
	"sync"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/store"
)

type unmappedKey struct {
	source   domain.BookmakerSlug
	marketID string
}

type unmappedEntry struct {
	marketName     string
	sampleOutcomes []string
	seenAt         time.Time
}

// UnmappedLogger deduplicates UNKNOWN_MARKET occurrences in-memory for
// the duration of one cycle, then flushes one upsert per distinct tuple
// at cycle end.
type UnmappedLogger struct {
	mu      sync.Mutex
	entries map[unmappedKey]unmappedEntry
}

func NewUnmappedLogger() *UnmappedLogger {
	return &UnmappedLogger{entries: make(map[unmappedKey]unmappedEntry)}
}

// Record notes one occurrence of an unmapped market, deduping against
// any already seen this cycle.
func (l *UnmappedLogger) Record(source domain.BookmakerSlug, marketID, marketName string, sampleOutcomes []string, seenAt time.Time) {
	key := unmappedKey{source: source, marketID: marketID}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; ok {
		return
	}
	l.entries[key] = unmappedEntry{marketName: marketName, sampleOutcomes: sampleOutcomes, seenAt: seenAt}
}

// Flush upserts every entry recorded this cycle into the
// unmapped_market_logs table and clears the in-memory set.
func (l *UnmappedLogger) Flush(ctx context.Context, repo *store.MappingRepo) error {
	l.mu.Lock()
	entries := l.entries
	l.entries = make(map[unmappedKey]unmappedEntry)
	l.mu.Unlock()

	for key, entry := range entries {
		if err := repo.UpsertUnmappedMarketLog(ctx, key.source, key.marketID, entry.marketName, entry.sampleOutcomes, entry.seenAt); err != nil {
			return err
		}
	}
	return nil
}
