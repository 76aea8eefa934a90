// Package changedetect classifies a freshly scraped snapshot against
// the odds cache as CHANGED or UNCHANGED, deciding whether the write
// path inserts a new snapshot row or just confirms an existing one.
package changedetect

import (
	"sort"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
)

// Classification is the result of comparing one new snapshot's markets
// against the cached snapshot for the same (event, bookmaker/source).
type Classification struct {
	Changed          bool
	CachedSnapshotID int64 // valid only when !Changed
}

// Classify compares a fresh market set against the cached snapshot:
// no cache entry, a differing market count, a missing market, or any
// outcome-list difference means CHANGED. Cached
// markets carrying an unavailable_at stamp are excluded from the
// comparison: they are suspension tombstones the cache retains so a
// reappearance can be recognized, not part of the live market set. A
// stamped market showing up again in newMarkets therefore classifies as
// CHANGED (it is missing from the live set), while its continued
// absence classifies as UNCHANGED.
func Classify(cached *oddscache.CachedSnapshot, newMarkets []domain.MarketOdds) Classification {
	if cached == nil {
		return Classification{Changed: true}
	}

	live := make(map[domain.MarketKey]oddscache.CachedMarket, len(cached.Markets))
	for _, m := range cached.Markets {
		if m.UnavailableAt != nil {
			continue
		}
		live[m.Key()] = m
	}

	if len(live) != len(newMarkets) {
		return Classification{Changed: true}
	}

	for _, m := range newMarkets {
		cachedMarket, ok := live[m.Key()]
		if !ok {
			return Classification{Changed: true}
		}
		if outcomesDiffer(cachedMarket.Outcomes, m.Outcomes) {
			return Classification{Changed: true}
		}
	}

	return Classification{Changed: false, CachedSnapshotID: cached.SnapshotID}
}

type outcomeTriple struct {
	name     string
	odds     float64
	isActive bool
}

// outcomesDiffer compares two outcome lists order-insensitively by
// normalizing each to a sorted list of (name, odds, isActive) triples.
func outcomesDiffer(cached []oddscache.CachedOutcome, fresh []domain.Outcome) bool {
	if len(cached) != len(fresh) {
		return true
	}

	a := make([]outcomeTriple, len(cached))
	for i, o := range cached {
		a[i] = outcomeTriple{name: o.Name, odds: o.Odds, isActive: o.IsActive}
	}
	b := make([]outcomeTriple, len(fresh))
	for i, o := range fresh {
		b[i] = outcomeTriple{name: o.Name, odds: o.Odds, isActive: o.IsActive}
	}

	less := func(s []outcomeTriple) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].name != s[j].name {
				return s[i].name < s[j].name
			}
			if s[i].odds != s[j].odds {
				return s[i].odds < s[j].odds
			}
			return !s[i].isActive && s[j].isActive
		}
	}
	sort.Slice(a, less(a))
	sort.Slice(b, less(b))

	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
