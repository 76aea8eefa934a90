package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/adapter"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// eventRow is one canonical event ready for scraping: its row IDs, its
// urgency inputs for orderByPriority, and the per-platform native IDs
// discover() found it under.
type eventRow struct {
	eventID            int64
	canonicalID        string
	kickoff            time.Time
	coverage           int
	hasReference       bool
	platforms          map[domain.BookmakerSlug]struct{}
	platformIDs        map[domain.BookmakerSlug]string
	competitorEventIDs map[domain.BookmakerSlug]int64
}

// discover fans out DiscoverEvents to all three adapters concurrently and
// merges the results by canonical ID. A single
// adapter's discovery failure never aborts the cycle — it just leaves
// that platform's events out of this cycle's coverage.
func (c *Coordinator) discover(ctx context.Context) (map[string]domain.MergedEvent, map[domain.BookmakerSlug]int64, error) {
	type discoverResult struct {
		slug   domain.BookmakerSlug
		events []domain.DiscoveredEvent
		ms     int64
		err    error
	}

	adapters := []adapter.Adapter{c.adapters.Betpawa, c.adapters.SportyBet, c.adapters.Bet9ja}
	results := make(chan discoverResult, len(adapters))
	for _, a := range adapters {
		a := a
		go func() {
			start := time.Now()
			events, err := a.DiscoverEvents(ctx)
			results <- discoverResult{slug: a.Slug(), events: events, ms: time.Since(start).Milliseconds(), err: err}
		}()
	}

	merged := make(map[string]domain.MergedEvent)
	latency := make(map[domain.BookmakerSlug]int64)
	for i := 0; i < len(adapters); i++ {
		r := <-results
		latency[r.slug] = r.ms
		if r.err != nil {
			c.log.Warn().Err(r.err).Str("platform", string(r.slug)).Msg("discovery failed for platform")
			continue
		}
		for _, ev := range r.events {
			m, ok := merged[ev.CanonicalID]
			if !ok {
				m = domain.MergedEvent{
					CanonicalID: ev.CanonicalID,
					Kickoff:     ev.Kickoff,
					Platforms:   make(map[domain.BookmakerSlug]struct{}),
					PlatformIDs: make(map[domain.BookmakerSlug]string),
				}
			}
			m.Platforms[r.slug] = struct{}{}
			m.PlatformIDs[r.slug] = ev.NativeEventID
			merged[ev.CanonicalID] = m
		}
	}

	return merged, latency, nil
}

// persistDiscovered lazily creates (or touches) the canonical Event,
// EventBookmaker, and CompetitorEvent rows for every merged event, per
// the lazy-creation lifecycle: betpawa is metadata-authoritative, competitor
// rows get a kickoff-only correction once matched.
func (c *Coordinator) persistDiscovered(ctx context.Context, merged map[string]domain.MergedEvent) ([]eventRow, error) {
	rows := make([]eventRow, 0, len(merged))

	for _, m := range merged {
		_, hasRef := m.Platforms[domain.SlugBetpawa]
		placeholderName := fmt.Sprintf("Event %s", m.CanonicalID)

		eventID, err := c.coordSession.EnsureEvent(ctx, c.tournamentID, placeholderName, "", "", m.Kickoff, m.CanonicalID, hasRef)
		if err != nil {
			return nil, fmt.Errorf("ensure event %s: %w", m.CanonicalID, err)
		}

		competitorEventIDs := make(map[domain.BookmakerSlug]int64)
		for slug := range m.Platforms {
			bookmakerID, ok := c.bookmakerIDs[slug]
			if !ok {
				continue
			}
			nativeID := m.PlatformIDs[slug]
			if err := c.coordSession.EnsureEventBookmaker(ctx, eventID, bookmakerID, nativeID, ""); err != nil {
				return nil, fmt.Errorf("ensure event bookmaker %s/%s: %w", m.CanonicalID, slug, err)
			}

			if slug == domain.SlugBetpawa {
				continue
			}
			eventIDCopy := eventID
			ceID, err := c.coordSession.EnsureCompetitorEvent(ctx, slug, c.tournamentID, &eventIDCopy, placeholderName, "", "", m.Kickoff, nativeID, m.CanonicalID)
			if err != nil {
				return nil, fmt.Errorf("ensure competitor event %s/%s: %w", m.CanonicalID, slug, err)
			}
			competitorEventIDs[slug] = ceID
		}

		rows = append(rows, eventRow{
			eventID:            eventID,
			canonicalID:        m.CanonicalID,
			kickoff:            m.Kickoff,
			coverage:           len(m.Platforms),
			hasReference:       hasRef,
			platforms:          m.Platforms,
			platformIDs:        m.PlatformIDs,
			competitorEventIDs: competitorEventIDs,
		})
	}

	return rows, nil
}
