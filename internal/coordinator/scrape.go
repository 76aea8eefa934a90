package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/changedetect"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
	"github.com/palimpsest-sports/scrapecore/internal/risk"
)

// processBatch scrapes every event in a batch with bounded per-event
// concurrency (c.eventGate), collecting the changed/unchanged snapshots
// and risk alerts into one domain.WriteBatch plus the batch's
// scraped/failed event totals.
func (c *Coordinator) processBatch(ctx context.Context, runRowID int64, batchIndex int, batch []eventRow, emit func(domain.ProgressEvent)) (domain.WriteBatch, int, int) {
	wb := domain.WriteBatch{ScrapeRunID: runRowID, BatchIndex: batchIndex}

	var mu sync.Mutex
	var wg sync.WaitGroup
	scraped, failed := 0, 0

	for _, ev := range batch {
		ev := ev
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.eventGate.Acquire(ctx); err != nil {
				return
			}
			defer c.eventGate.Release()

			res, status := c.scrapeEvent(ctx, runRowID, ev, emit)

			mu.Lock()
			wb.Changed = append(wb.Changed, res.changed...)
			wb.Unchanged = append(wb.Unchanged, res.unchanged...)
			wb.AvailabilityUpdates = append(wb.AvailabilityUpdates, res.availability...)
			wb.Alerts = append(wb.Alerts, res.alerts...)
			if len(status.Succeeded) > 0 {
				scraped++
			} else {
				failed++
			}
			mu.Unlock()

			if err := c.coordSession.InsertEventScrapeStatus(ctx, status); err != nil {
				c.log.Warn().Err(err).Str("event", ev.canonicalID).Msg("insert event scrape status failed")
			}
		}()
	}
	wg.Wait()

	return wb, scraped, failed
}

// eventScrapeResult is one event's contribution to the batch's write
// batch: fresh snapshots, confirm-only touches, availability flips, and
// detector alerts.
type eventScrapeResult struct {
	changed      []domain.ChangedSnapshot
	unchanged    []domain.UnchangedSnapshot
	availability []domain.AvailabilityUpdate
	alerts       []domain.RiskAlert
}

// scrapeEvent fetches one event from every platform that carries it
// (bounded by that platform's own concurrency gate), maps each response
// into canonical markets, classifies each against the odds cache, runs
// risk detection across the event's reference and competitor states, and
// returns everything processBatch needs to fold into the run's write
// batch.
func (c *Coordinator) scrapeEvent(ctx context.Context, runRowID int64, ev eventRow, emit func(domain.ProgressEvent)) (eventScrapeResult, domain.EventScrapeStatus) {
	start := time.Now()

	pending := make([]domain.BookmakerSlug, 0, len(ev.platforms))
	for slug := range ev.platforms {
		pending = append(pending, slug)
	}
	emit(domain.ProgressEvent{Type: domain.ProgressEventScraping, EventID: ev.canonicalID, PlatformsPending: pending})

	type platformResult struct {
		slug    domain.BookmakerSlug
		markets []domain.MarketOdds
		raw     []byte
		ms      int64
		err     error
	}

	resultsCh := make(chan platformResult, len(ev.platforms))
	for slug := range ev.platforms {
		slug := slug
		nativeID := ev.platformIDs[slug]
		go func() {
			fetchStart := time.Now()
			markets, raw, err := c.fetchAndMap(ctx, slug, nativeID)
			resultsCh <- platformResult{slug: slug, markets: markets, raw: raw, ms: time.Since(fetchStart).Milliseconds(), err: err}
		}()
	}

	perPlatformMs := make(map[domain.BookmakerSlug]int64)
	var succeeded, failedSlugs []domain.BookmakerSlug
	errMsgs := make(map[domain.BookmakerSlug]string)
	platformMarkets := make(map[domain.BookmakerSlug][]domain.MarketOdds)
	platformRaw := make(map[domain.BookmakerSlug][]byte)

	for i := 0; i < len(ev.platforms); i++ {
		r := <-resultsCh
		perPlatformMs[r.slug] = r.ms
		if r.err != nil {
			failedSlugs = append(failedSlugs, r.slug)
			errMsgs[r.slug] = r.err.Error()
			c.log.Warn().Err(r.err).Str("event", ev.canonicalID).Str("platform", string(r.slug)).Msg("fetch event failed")
			continue
		}
		succeeded = append(succeeded, r.slug)
		platformMarkets[r.slug] = r.markets
		platformRaw[r.slug] = r.raw
	}

	now := time.Now().UTC()
	var res eventScrapeResult

	refBM := newBookmakerMarkets()
	compBM := make(map[domain.BookmakerSlug]risk.BookmakerMarkets)

	for _, slug := range succeeded {
		markets := platformMarkets[slug]
		isCompetitor := slug != domain.SlugBetpawa

		var cached *oddscache.CachedSnapshot
		if isCompetitor {
			if m := c.cache.GetCompetitor(ev.canonicalID); m != nil {
				cached = m[slug]
			}
		} else {
			if m := c.cache.GetReference(ev.canonicalID); m != nil {
				cached = m[slug]
			}
		}

		cls := changedetect.Classify(cached, markets)
		bm := bookmakerMarketsFrom(cached, markets)
		if isCompetitor {
			compBM[slug] = bm
		} else {
			refBM = bm
		}

		var newSnap *oddscache.CachedSnapshot
		if cls.Changed {
			runRowIDCopy := runRowID
			if isCompetitor {
				res.changed = append(res.changed, domain.ChangedSnapshot{
					EventID:          ev.competitorEventIDs[slug],
					IsCompetitor:     true,
					CanonicalEventID: ev.canonicalID,
					BookmakerSlug:    slug,
					CapturedAt:       now,
					ScrapeRunID:      &runRowIDCopy,
					RawResponse:      platformRaw[slug],
					Markets:          markets,
				})
			} else {
				res.changed = append(res.changed, domain.ChangedSnapshot{
					EventID:          ev.eventID,
					BookmakerID:      c.bookmakerIDs[slug],
					IsCompetitor:     false,
					CanonicalEventID: ev.canonicalID,
					BookmakerSlug:    slug,
					CapturedAt:       now,
					ScrapeRunID:      &runRowIDCopy,
					Markets:          markets,
				})
			}
			tombstones, updates := suspendedCarryover(cached, markets, isCompetitor, now)
			res.availability = append(res.availability, updates...)
			newSnap = &oddscache.CachedSnapshot{
				EventID:         ev.canonicalID,
				BookmakerSlug:   slug,
				CapturedAt:      now,
				LastConfirmedAt: now,
				Markets:         append(toCachedMarkets(markets), tombstones...),
			}
		} else {
			res.unchanged = append(res.unchanged, domain.UnchangedSnapshot{SnapshotID: cls.CachedSnapshotID, IsCompetitor: isCompetitor, ConfirmedAt: now})
			cp := *cached
			cp.LastConfirmedAt = now
			newSnap = &cp
		}

		if isCompetitor {
			c.cache.PutCompetitor(ev.canonicalID, slug, newSnap, ev.kickoff)
		} else {
			c.cache.PutReference(ev.canonicalID, slug, newSnap, ev.kickoff)
		}
	}

	res.alerts = risk.Detect(risk.EventInput{
		EventID:      ev.eventID,
		EventKickoff: ev.kickoff,
		Reference:    refBM,
		Competitors:  compBM,
	}, c.thresholds, now)

	status := domain.EventScrapeStatus{
		ScrapeRunID:   runRowID,
		EventID:       ev.eventID,
		Attempted:     pending,
		Succeeded:     succeeded,
		Failed:        failedSlugs,
		TimingMs:      time.Since(start).Milliseconds(),
		ErrorMessages: errMsgs,
	}

	emit(domain.ProgressEvent{
		Type:          domain.ProgressEventScraped,
		EventID:       ev.canonicalID,
		Scraped:       len(succeeded),
		Failed:        len(failedSlugs),
		TimingMs:      status.TimingMs,
		PerPlatformMs: perPlatformMs,
	})

	return res, status
}

// suspendedCarryover keeps the cache aware of markets that vanished from
// a fresh scrape: each previously live cached market missing from the
// new market set is carried forward as a tombstone stamped unavailable
// (so a later reappearance can be recognized), and a DB-side
// availability flip is produced for its persisted market row. Already
// stamped tombstones whose market is still absent ride along unchanged;
// a tombstone whose market came back is dropped — the fresh market row
// replaces it.
func suspendedCarryover(cached *oddscache.CachedSnapshot, fresh []domain.MarketOdds, isCompetitor bool, now time.Time) ([]oddscache.CachedMarket, []domain.AvailabilityUpdate) {
	if cached == nil {
		return nil, nil
	}

	present := make(map[domain.MarketKey]bool, len(fresh))
	for _, m := range fresh {
		present[m.Key()] = true
	}

	var tombstones []oddscache.CachedMarket
	var updates []domain.AvailabilityUpdate
	for _, m := range cached.Markets {
		if present[m.Key()] {
			continue
		}
		if m.UnavailableAt != nil {
			tombstones = append(tombstones, m)
			continue
		}
		stamped := m
		stampedAt := now
		stamped.UnavailableAt = &stampedAt
		tombstones = append(tombstones, stamped)
		if cached.SnapshotID != 0 {
			updates = append(updates, domain.AvailabilityUpdate{
				SnapshotID:        cached.SnapshotID,
				IsCompetitor:      isCompetitor,
				CanonicalMarketID: m.CanonicalMarketID,
				Line:              m.Line,
				UnavailableAt:     now,
			})
		}
	}
	return tombstones, updates
}

// fetchAndMap fetches one platform's odds for one event (bounded by that
// platform's concurrency gate) and maps the response into canonical
// markets. Bet9ja routes through its distinct FetchOdds+MapOdds path
// and additionally waits out its pacing delay after every response,
// success or failure.
func (c *Coordinator) fetchAndMap(ctx context.Context, slug domain.BookmakerSlug, nativeID string) ([]domain.MarketOdds, []byte, error) {
	gate := c.gates[slug]
	if err := gate.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer gate.Release()

	// One slow platform is bounded independently of the others; timeout
	// expiry surfaces as that platform's
	// failure while the rest of the event continues.
	if c.settings.PerPlatformBatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.PerPlatformBatchTimeout)
		defer cancel()
	}

	switch slug {
	case domain.SlugBetpawa:
		payload, err := c.adapters.Betpawa.FetchEvent(ctx, nativeID)
		if err != nil {
			return nil, nil, err
		}
		return c.mapRawMarkets(slug, payload.Markets, c.betpawaMapper.MapMarket), nil, nil

	case domain.SlugSportyBet:
		payload, err := c.adapters.SportyBet.FetchEvent(ctx, nativeID)
		if err != nil {
			return nil, nil, err
		}
		raw, _ := json.Marshal(payload)
		return c.mapRawMarkets(slug, payload.Markets, c.sportyBetMapper.MapMarket), raw, nil

	case domain.SlugBet9ja:
		odds, err := c.adapters.Bet9ja.FetchOdds(ctx, nativeID)
		if c.adapters.Bet9ja.PacingDelay > 0 {
			select {
			case <-time.After(c.adapters.Bet9ja.PacingDelay):
			case <-ctx.Done():
			}
		}
		if err != nil {
			return nil, nil, err
		}
		normalized, mapErrs := c.bet9jaMapper.MapOdds(odds)
		for _, e := range mapErrs {
			c.recordUnknownMarket(slug, e, "", nil)
		}
		raw, _ := json.Marshal(odds)
		return toMarketOddsSlice(normalized), raw, nil

	default:
		return nil, nil, fmt.Errorf("unknown platform %s", slug)
	}
}

// mapRawMarkets maps a list of raw markets through mapFn, logging and
// dropping any market that fails to map. A mapping failure drops that
// one market, never the whole event.
func (c *Coordinator) mapRawMarkets(slug domain.BookmakerSlug, raws []domain.RawMarket, mapFn func(domain.RawMarket) (domain.NormalizedMarket, error)) []domain.MarketOdds {
	var out []domain.MarketOdds
	for _, raw := range raws {
		nm, err := mapFn(raw)
		if err != nil {
			names := make([]string, 0, len(raw.Outcomes))
			for i, o := range raw.Outcomes {
				if i >= 5 {
					break
				}
				names = append(names, o.Name)
			}
			c.recordUnknownMarket(slug, err, raw.NativeMarketName, names)
			continue
		}
		out = append(out, toMarketOdds(nm))
	}
	return out
}

// recordUnknownMarket logs every mapping error and, for unknown-market
// errors specifically, records it to the unmapped market log.
func (c *Coordinator) recordUnknownMarket(slug domain.BookmakerSlug, err error, marketName string, sampleOutcomes []string) {
	var me *domain.MappingError
	if errors.As(err, &me) && me.Kind == domain.ErrUnknownMarket {
		name := marketName
		if name == "" {
			name = me.ExternalMarketID
		}
		c.unmapped.Record(slug, me.ExternalMarketID, name, sampleOutcomes, time.Now().UTC())
	}
	c.log.Debug().Err(err).Str("platform", string(slug)).Msg("mapping error, market dropped")
}

func toMarketOdds(nm domain.NormalizedMarket) domain.MarketOdds {
	outcomes := make([]domain.Outcome, 0, len(nm.Outcomes))
	for _, o := range nm.Outcomes {
		outcomes = append(outcomes, domain.Outcome{Name: o.CanonicalOutcomeName, Odds: o.Odds, IsActive: o.IsActive})
	}
	return domain.MarketOdds{
		CanonicalID: nm.CanonicalMarketID,
		Name:        nm.CanonicalMarketName,
		Line:        nm.Line,
		Handicap:    nm.Handicap,
		Outcomes:    outcomes,
	}
}

func toMarketOddsSlice(nms []domain.NormalizedMarket) []domain.MarketOdds {
	out := make([]domain.MarketOdds, 0, len(nms))
	for _, nm := range nms {
		out = append(out, toMarketOdds(nm))
	}
	return out
}

func toCachedMarkets(markets []domain.MarketOdds) []oddscache.CachedMarket {
	cached := make([]oddscache.CachedMarket, 0, len(markets))
	for _, m := range markets {
		outcomes := make([]oddscache.CachedOutcome, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			outcomes = append(outcomes, oddscache.CachedOutcome{Name: o.Name, Odds: o.Odds, IsActive: o.IsActive})
		}
		cached = append(cached, oddscache.CachedMarket{
			CanonicalMarketID: m.CanonicalID,
			Name:              m.Name,
			Line:              m.Line,
			Handicap:          m.Handicap,
			Outcomes:          outcomes,
			UnavailableAt:     m.UnavailableAt,
		})
	}
	return cached
}

func newBookmakerMarkets() risk.BookmakerMarkets {
	return risk.BookmakerMarkets{
		MarketName: make(map[domain.MarketKey]string),
		MarketLine: make(map[domain.MarketKey]*float64),
		Old:        make(map[domain.MarketKey]risk.MarketState),
		New:        make(map[domain.MarketKey]risk.MarketState),
	}
}

// bookmakerMarketsFrom builds the risk detector's old/new market-state
// view for one bookmaker from its cached snapshot and this cycle's fresh
// markets.
func bookmakerMarketsFrom(cached *oddscache.CachedSnapshot, markets []domain.MarketOdds) risk.BookmakerMarkets {
	bm := newBookmakerMarkets()

	if cached != nil {
		for _, m := range cached.Markets {
			key := m.Key()
			outcomes := make(map[string]float64, len(m.Outcomes))
			for _, o := range m.Outcomes {
				outcomes[o.Name] = o.Odds
			}
			bm.Old[key] = risk.MarketState{Outcomes: outcomes, UnavailableAt: m.UnavailableAt}
			bm.MarketName[key] = m.Name
			if m.Line != nil {
				line := *m.Line
				bm.MarketLine[key] = &line
			}
		}
	}

	for _, m := range markets {
		key := m.Key()
		outcomes := make(map[string]float64, len(m.Outcomes))
		for _, o := range m.Outcomes {
			outcomes[o.Name] = o.Odds
		}
		bm.New[key] = risk.MarketState{Outcomes: outcomes, UnavailableAt: m.UnavailableAt}
		bm.MarketName[key] = m.Name
		if m.Line != nil {
			line := *m.Line
			bm.MarketLine[key] = &line
		}
	}

	return bm
}
