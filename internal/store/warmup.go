package store

import (
	"context"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
)

// warmupLookback is how far into the past a completed event is still
// worth keeping warm.
const warmupLookback = -2 * time.Hour

// WarmupCache loads the latest persisted snapshot for every (event,
// bookmaker) and (event, competitor source) pair not yet kicked off (or
// kicked off within the last two hours) and seeds cache with it, so the
// first cycle after a restart compares against real prior state instead
// of treating everything as CHANGED.
func WarmupCache(ctx context.Context, writer *WriterSession, cache *oddscache.Cache, now time.Time) error {
	since := now.Add(warmupLookback)

	refRows, err := writer.WarmReferenceSnapshots(ctx, since)
	if err != nil {
		return err
	}
	compRows, err := writer.WarmCompetitorSnapshots(ctx, since)
	if err != nil {
		return err
	}

	entries := make([]oddscache.WarmEntry, 0, len(refRows)+len(compRows))
	for _, r := range refRows {
		entries = append(entries, toWarmEntry(r, false))
	}
	for _, r := range compRows {
		entries = append(entries, toWarmEntry(r, true))
	}

	cache.LoadWarm(entries)
	return nil
}

func toWarmEntry(r WarmSnapshot, isCompetitor bool) oddscache.WarmEntry {
	return oddscache.WarmEntry{
		IsCompetitor:    isCompetitor,
		CanonicalID:     r.CanonicalID,
		BookmakerSlug:   r.BookmakerSlug,
		Kickoff:         r.Kickoff,
		SnapshotID:      r.SnapshotID,
		CapturedAt:      r.CapturedAt,
		LastConfirmedAt: r.LastConfirmedAt,
		Markets:         toWarmMarkets(r.Markets),
	}
}

func toWarmMarkets(markets []domain.MarketOdds) []oddscache.CachedMarket {
	out := make([]oddscache.CachedMarket, 0, len(markets))
	for _, m := range markets {
		outcomes := make([]oddscache.CachedOutcome, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			outcomes = append(outcomes, oddscache.CachedOutcome{Name: o.Name, Odds: o.Odds, IsActive: o.IsActive})
		}
		out = append(out, oddscache.CachedMarket{
			CanonicalMarketID: m.CanonicalID,
			Name:              m.Name,
			Line:              m.Line,
			Handicap:          m.Handicap,
			Outcomes:          outcomes,
			UnavailableAt:     m.UnavailableAt,
		})
	}
	return out
}
