// Package mapping translates bookmaker-native markets into the canonical
// (betpawa) taxonomy: one merged cache of MarketMapping rows, with a
// mapper per bookmaker that knows how to parse that bookmaker's wire
// format into the canonical shape.
package mapping

import (
	"context"
	"strings"
	"sync"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/store"
)

// Cache is the thread-safe, many-readers/occasional-writer merged view
// of compiled-in defaults and active DB overrides.
type Cache struct {
	mu sync.RWMutex

	byCanonicalID map[string]domain.MarketMapping
	byBetpawaID   map[string]string // betpawa market id -> canonical id
	bySportyBetID map[string]string // sportybet market id -> canonical id
	bet9jaKeys    []bet9jaKeyEntry  // sorted longest-prefix-first
}

type bet9jaKeyEntry struct {
	prefix      string // "S_<MARKET>"
	canonicalID string
}

// New builds an empty Cache. Call Reload before use.
func New() *Cache {
	return &Cache{
		byCanonicalID: make(map[string]domain.MarketMapping),
		byBetpawaID:   make(map[string]string),
		bySportyBetID: make(map[string]string),
	}
}

// Reload rebuilds the merged view: compiled-in defaults first, then
// active DB rows override on canonical-ID conflict.
func (c *Cache) Reload(ctx context.Context, repo *store.MappingRepo) error {
	merged := make(map[string]domain.MarketMapping, len(defaultMappings))
	for _, m := range defaultMappings {
		merged[m.CanonicalID] = m
	}

	dbRows, err := repo.ActiveMappings(ctx)
	if err != nil {
		return err
	}
	for _, m := range dbRows {
		merged[m.CanonicalID] = m
	}

	byBetpawa := make(map[string]string, len(merged))
	bySportyBet := make(map[string]string, len(merged))
	var bet9ja []bet9jaKeyEntry

	for id, m := range merged {
		if m.BetpawaID != nil {
			byBetpawa[*m.BetpawaID] = id
		}
		if m.SportyBetID != nil {
			bySportyBet[*m.SportyBetID] = id
		}
		if m.Bet9jaKey != nil {
			bet9ja = append(bet9ja, bet9jaKeyEntry{prefix: "S_" + *m.Bet9jaKey, canonicalID: id})
		}
	}
	// Longest prefix first so e.g. "S_OUCORNERS1T" is tried before "S_OUCORNERS".
	sortByPrefixLenDesc(bet9ja)

	c.mu.Lock()
	c.byCanonicalID = merged
	c.byBetpawaID = byBetpawa
	c.bySportyBetID = bySportyBet
	c.bet9jaKeys = bet9ja
	c.mu.Unlock()
	return nil
}

func sortByPrefixLenDesc(entries []bet9jaKeyEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && len(entries[j].prefix) > len(entries[j-1].prefix); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// ByCanonicalID returns the mapping for a canonical market ID, if any.
func (c *Cache) ByCanonicalID(id string) (domain.MarketMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byCanonicalID[id]
	return m, ok
}

// ByBetpawaID resolves a betpawa-native market ID.
func (c *Cache) ByBetpawaID(nativeID string) (domain.MarketMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byBetpawaID[nativeID]
	if !ok {
		return domain.MarketMapping{}, false
	}
	return c.byCanonicalID[id], true
}

// BySportyBetID resolves a sportybet-native market ID (exact match).
func (c *Cache) BySportyBetID(nativeID string) (domain.MarketMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.bySportyBetID[nativeID]
	if !ok {
		return domain.MarketMapping{}, false
	}
	return c.byCanonicalID[id], true
}

// ByBet9jaKey resolves a bet9ja market key by longest prefix match
// against "S_<MARKET>" — the key itself may carry a "@<param>_<outcome>"
// suffix that this lookup ignores.
func (c *Cache) ByBet9jaKey(key string) (domain.MarketMapping, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.bet9jaKeys {
		if strings.HasPrefix(key, e.prefix) {
			return c.byCanonicalID[e.canonicalID], e.prefix, true
		}
	}
	return domain.MarketMapping{}, "", false
}
