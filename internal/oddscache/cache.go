// Package oddscache is the in-memory map from canonical event ID to the
// most recently observed snapshot per bookmaker (reference) or per
// source (competitor). Updates replace the whole CachedSnapshot
// atomically; the cache is otherwise immutable at the record level, so
// readers never observe a half-updated snapshot.
package oddscache

import (
	"sync"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// CachedOutcome is an immutable outcome reading.
type CachedOutcome struct {
	Name     string
	Odds     float64
	IsActive bool
}

// CachedMarket is an immutable market reading.
type CachedMarket struct {
	CanonicalMarketID string
	Name              string
	Line              *float64
	Handicap          *domain.Handicap
	Outcomes          []CachedOutcome
	UnavailableAt     *time.Time
}

// Key returns this market's identity within an event+bookmaker.
func (m CachedMarket) Key() domain.MarketKey {
	var line float64
	hasLine := false
	if m.Line != nil {
		line, hasLine = *m.Line, true
	}
	return domain.MarketKey{CanonicalID: m.CanonicalMarketID, Line: line, HasLine: hasLine}
}

// CachedSnapshot is the cache's unit of replacement: one (event,
// bookmaker|source) observation.
type CachedSnapshot struct {
	SnapshotID      int64
	EventID         string // canonical ID
	BookmakerSlug   domain.BookmakerSlug
	CapturedAt      time.Time
	LastConfirmedAt time.Time
	Markets         []CachedMarket
}

// MarketByKey returns the cached market matching key, if any.
func (s *CachedSnapshot) MarketByKey(key domain.MarketKey) (CachedMarket, bool) {
	for _, m := range s.Markets {
		if m.Key() == key {
			return m, true
		}
	}
	return CachedMarket{}, false
}

// Cache is the process-wide odds cache. One instance is constructed at
// startup and threaded explicitly into the coordinator — never a
// package-level global.
type Cache struct {
	mu          sync.RWMutex
	byReference map[string]map[domain.BookmakerSlug]*CachedSnapshot
	byCompetitor map[string]map[domain.BookmakerSlug]*CachedSnapshot
	kickoffs    map[string]time.Time
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		byReference:  make(map[string]map[domain.BookmakerSlug]*CachedSnapshot),
		byCompetitor: make(map[string]map[domain.BookmakerSlug]*CachedSnapshot),
		kickoffs:     make(map[string]time.Time),
	}
}

// GetReference returns the reference-bookmaker snapshots cached for an
// event, or nil if none.
func (c *Cache) GetReference(eventID string) map[domain.BookmakerSlug]*CachedSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byReference[eventID]
}

// GetCompetitor returns the competitor snapshots cached for an event, or
// nil if none.
func (c *Cache) GetCompetitor(eventID string) map[domain.BookmakerSlug]*CachedSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byCompetitor[eventID]
}

// PutReference atomically replaces the cached reference snapshot for
// (event, bookmaker).
func (c *Cache) PutReference(eventID string, bookmaker domain.BookmakerSlug, snap *CachedSnapshot, kickoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byReference[eventID]
	if !ok {
		m = make(map[domain.BookmakerSlug]*CachedSnapshot)
		c.byReference[eventID] = m
	}
	m[bookmaker] = snap
	c.kickoffs[eventID] = kickoff
}

// PutCompetitor atomically replaces the cached competitor snapshot for
// (event, source).
func (c *Cache) PutCompetitor(eventID string, source domain.BookmakerSlug, snap *CachedSnapshot, kickoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byCompetitor[eventID]
	if !ok {
		m = make(map[domain.BookmakerSlug]*CachedSnapshot)
		c.byCompetitor[eventID] = m
	}
	m[source] = snap
	c.kickoffs[eventID] = kickoff
}

// AssignSnapshotID records the row ID a changed snapshot received when
// the write worker flushed it, so the next cycle's UNCHANGED
// classification can target the real row. The entry is replaced with a
// copy rather than mutated — readers may hold the old pointer. A stale
// assignment (capturedAt no longer matching the cached entry, because a
// newer snapshot already replaced it) is dropped.
func (c *Cache) AssignSnapshotID(eventID string, bookmaker domain.BookmakerSlug, isCompetitor bool, capturedAt time.Time, snapshotID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.byReference
	if isCompetitor {
		target = c.byCompetitor
	}
	m, ok := target[eventID]
	if !ok {
		return
	}
	snap, ok := m[bookmaker]
	if !ok || !snap.CapturedAt.Equal(capturedAt) {
		return
	}
	cp := *snap
	cp.SnapshotID = snapshotID
	m[bookmaker] = &cp
}

// EvictBefore removes every event whose kickoff is strictly before
// instant, returning the number of events removed.
func (c *Cache) EvictBefore(instant time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for eventID, kickoff := range c.kickoffs {
		if kickoff.Before(instant) {
			delete(c.kickoffs, eventID)
			delete(c.byReference, eventID)
			delete(c.byCompetitor, eventID)
			removed++
		}
	}
	return removed
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byReference = make(map[string]map[domain.BookmakerSlug]*CachedSnapshot)
	c.byCompetitor = make(map[string]map[domain.BookmakerSlug]*CachedSnapshot)
	c.kickoffs = make(map[string]time.Time)
}

// WarmEntry is one row a warmup loader hands to LoadWarm: a previously
// persisted snapshot, already decoded into cache-shaped types, for one
// (event, bookmaker/source) pair.
type WarmEntry struct {
	IsCompetitor    bool
	CanonicalID     string
	BookmakerSlug   domain.BookmakerSlug
	Kickoff         time.Time
	SnapshotID      int64
	CapturedAt      time.Time
	LastConfirmedAt time.Time
	Markets         []CachedMarket
}

// LoadWarm populates the cache from a batch of warmup rows, used at
// startup to seed the cache from the persistent store before the first
// cycle runs. Takes the write lock once for the
// whole batch rather than once per row.
func (c *Cache) LoadWarm(entries []WarmEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		snap := &CachedSnapshot{
			SnapshotID:      e.SnapshotID,
			EventID:         e.CanonicalID,
			BookmakerSlug:   e.BookmakerSlug,
			CapturedAt:      e.CapturedAt,
			LastConfirmedAt: e.LastConfirmedAt,
			Markets:         e.Markets,
		}
		target := c.byReference
		if e.IsCompetitor {
			target = c.byCompetitor
		}
		m, ok := target[e.CanonicalID]
		if !ok {
			m = make(map[domain.BookmakerSlug]*CachedSnapshot)
			target[e.CanonicalID] = m
		}
		m[e.BookmakerSlug] = snap
		c.kickoffs[e.CanonicalID] = e.Kickoff
	}
}

// Kickoff returns the cached kickoff for an event, if known.
func (c *Cache) Kickoff(eventID string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.kickoffs[eventID]
	return t, ok
}
