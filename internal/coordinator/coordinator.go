// Package coordinator orchestrates one full scrape cycle: discover
// events across all three bookmakers, merge them into the canonical
// event graph, scrape each event with bounded per-platform parallelism,
// normalize odds through internal/mapping, classify changes through
// internal/changedetect, detect risk through internal/risk, and persist
// the result — either synchronously or via internal/writequeue. This is
// the full pipeline cycle, end to end.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/palimpsest-sports/scrapecore/internal/adapter/bet9ja"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/betpawa"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/sportybet"
	"github.com/palimpsest-sports/scrapecore/internal/broadcast"
	"github.com/palimpsest-sports/scrapecore/internal/concurrency"
	"github.com/palimpsest-sports/scrapecore/internal/config"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/mapping"
	"github.com/palimpsest-sports/scrapecore/internal/oddscache"
	"github.com/palimpsest-sports/scrapecore/internal/store"
	"github.com/palimpsest-sports/scrapecore/internal/writequeue"
)

// Adapters bundles the three bookmaker adapters a Coordinator drives.
// Bet9ja is kept concrete (not the shared adapter.Adapter interface)
// because the coordinator calls its bet9ja-specific FetchOdds path.
type Adapters struct {
	Betpawa   *betpawa.Adapter
	SportyBet *sportybet.Adapter
	Bet9ja    *bet9ja.Adapter
}

// Coordinator holds every collaborator one scrape cycle needs.
type Coordinator struct {
	coordSession *store.CoordinatorSession
	writer       *store.WriterSession
	mappingRepo  *store.MappingRepo
	writeQueue   *writequeue.Queue // nil means write synchronously

	cache        *oddscache.Cache
	mappingCache *mapping.Cache
	unmapped     *mapping.UnmappedLogger

	betpawaMapper   *mapping.BetpawaMapper
	sportyBetMapper *mapping.SportyBetMapper
	bet9jaMapper    *mapping.Bet9jaMapper

	adapters Adapters
	gates    map[domain.BookmakerSlug]*concurrency.Gate
	eventGate *concurrency.Gate

	registry *broadcast.Registry
	log      zerolog.Logger

	settings *config.Settings

	sportID       int64
	tournamentID  int64
	bookmakerIDs  map[domain.BookmakerSlug]int64
	thresholds    domain.AlertThresholds
}

// New constructs a Coordinator. Call Init once before the first RunCycle
// to seed the sports/bookmaker/tournament rows it depends on.
func New(
	coordSession *store.CoordinatorSession,
	writer *store.WriterSession,
	mappingRepo *store.MappingRepo,
	writeQueue *writequeue.Queue,
	cache *oddscache.Cache,
	mappingCache *mapping.Cache,
	adapters Adapters,
	registry *broadcast.Registry,
	settings *config.Settings,
	log zerolog.Logger,
) *Coordinator {
	gates := map[domain.BookmakerSlug]*concurrency.Gate{
		domain.SlugBetpawa:   concurrency.NewGate(settings.ReferenceConcurrency),
		domain.SlugSportyBet: concurrency.NewGate(settings.CompetitorAConcurrency),
		domain.SlugBet9ja:    concurrency.NewGate(settings.CompetitorBConcurrency),
	}

	return &Coordinator{
		coordSession:    coordSession,
		writer:          writer,
		mappingRepo:     mappingRepo,
		writeQueue:      writeQueue,
		cache:           cache,
		mappingCache:    mappingCache,
		unmapped:        mapping.NewUnmappedLogger(),
		betpawaMapper:   mapping.NewBetpawaMapper(mappingCache),
		sportyBetMapper: mapping.NewSportyBetMapper(mappingCache),
		bet9jaMapper:    mapping.NewBet9jaMapper(mappingCache),
		adapters:        adapters,
		gates:           gates,
		eventGate:       concurrency.NewGate(settings.MaxConcurrentEvents),
		registry:        registry,
		log:             log.With().Str("component", "coordinator").Logger(),
		settings:        settings,
		bookmakerIDs:    make(map[domain.BookmakerSlug]int64),
		thresholds: domain.AlertThresholds{
			Warning:  settings.AlertThresholdWarning,
			Elevated: settings.AlertThresholdElevated,
			Critical: settings.AlertThresholdCritical,
		},
	}
}

// Init seeds the football sport, the three bookmaker rows, and a
// catch-all tournament. Events are matched cross-platform purely by
// their SportRadar canonical ID, so a single tournament bucket
// per sport is sufficient — team/competition metadata arrives with the
// per-event fetch, not at discovery time.
func (c *Coordinator) Init(ctx context.Context) error {
	sportID, err := c.coordSession.UpsertSport(ctx, "Football", "football")
	if err != nil {
		return fmt.Errorf("init sport: %w", err)
	}
	c.sportID = sportID

	tournamentID, err := c.coordSession.EnsureTournament(ctx, sportID, "Unclassified", nil, nil)
	if err != nil {
		return fmt.Errorf("init tournament: %w", err)
	}
	c.tournamentID = tournamentID

	bookmakers := []domain.Bookmaker{
		{Name: "BetPawa", Slug: domain.SlugBetpawa, Active: true},
		{Name: "SportyBet", Slug: domain.SlugSportyBet, Active: true},
		{Name: "Bet9ja", Slug: domain.SlugBet9ja, Active: true},
	}
	for _, b := range bookmakers {
		id, err := c.coordSession.UpsertBookmaker(ctx, b)
		if err != nil {
			return fmt.Errorf("init bookmaker %s: %w", b.Slug, err)
		}
		c.bookmakerIDs[b.Slug] = id
	}

	return c.mappingCache.Reload(ctx, c.mappingRepo)
}

// CycleResult summarizes one completed cycle for logging/tests.
type CycleResult struct {
	ScrapeRunID   int64
	EventsScraped int
	EventsFailed  int
	Alerts        int
}

// RunCycle executes one full discover -> scrape -> normalize -> detect
// -> persist pass.
func (c *Coordinator) RunCycle(ctx context.Context, runID, trigger string) (CycleResult, error) {
	now := time.Now().UTC()
	runRowID, err := c.coordSession.InsertScrapeRun(ctx, runID, trigger, now)
	if err != nil {
		return CycleResult{}, err
	}

	var hub *broadcast.Hub
	if c.registry != nil {
		hub = c.registry.Open(ctx, runID)
	}
	emit := func(ev domain.ProgressEvent) {
		ev.ScrapeRunID = runID
		ev.Timestamp = time.Now().UTC()
		if hub != nil {
			hub.Publish(ev)
		}
	}

	emit(domain.ProgressEvent{Type: domain.ProgressCycleStart})

	merged, latency, err := c.discover(ctx)
	if err != nil {
		_ = c.coordSession.MarkRunFailed(ctx, runRowID, err.Error(), time.Now().UTC())
		return CycleResult{}, fmt.Errorf("discovery: %w", err)
	}
	emit(domain.ProgressEvent{Type: domain.ProgressDiscoveryComplete, EventCount: len(merged), PlatformLatencyMs: latency})

	events, err := c.persistDiscovered(ctx, merged)
	if err != nil {
		_ = c.coordSession.MarkRunFailed(ctx, runRowID, err.Error(), time.Now().UTC())
		return CycleResult{}, fmt.Errorf("persist discovered events: %w", err)
	}

	ordered := orderByPriority(events, now)
	batches := batch(ordered, c.settings.BatchSize)
	emit(domain.ProgressEvent{Type: domain.ProgressQueueBuilt, EventCount: len(ordered)})

	var scraped, failed, alertCount int
	cycleStart := time.Now()

	for i, b := range batches {
		_ = c.coordSession.TouchRunActivity(ctx, runRowID, time.Now().UTC())
		emit(domain.ProgressEvent{Type: domain.ProgressBatchStart, BatchIndex: i, EventCount: len(b)})
		wb, batchScraped, batchFailed := c.processBatch(ctx, runRowID, i, b, emit)

		if c.writeQueue != nil {
			if err := c.writeQueue.Enqueue(ctx, wb); err != nil {
				c.log.Warn().Err(err).Int("batch_index", i).Msg("enqueue write batch failed")
			}
		} else if assigned, err := c.writer.ApplyBatch(ctx, wb); err != nil {
			c.log.Error().Err(err).Int("batch_index", i).Msg("synchronous write batch failed")
		} else {
			c.RecordAssigned(assigned)
		}

		scraped += batchScraped
		failed += batchFailed
		alertCount += len(wb.Alerts)
		emit(domain.ProgressEvent{Type: domain.ProgressBatchComplete, BatchIndex: i})
	}

	if err := c.unmapped.Flush(ctx, c.mappingRepo); err != nil {
		c.log.Warn().Err(err).Msg("flush unmapped market log failed")
	}

	status := domain.ScrapeRunCompleted
	if failed > 0 && scraped > 0 {
		status = domain.ScrapeRunPartial
	} else if failed > 0 {
		status = domain.ScrapeRunFailed
	}
	completedAt := time.Now().UTC()
	if err := c.coordSession.CompleteScrapeRun(ctx, runRowID, status, scraped, failed, completedAt, ""); err != nil {
		c.log.Error().Err(err).Msg("complete scrape run failed")
	}

	emit(domain.ProgressEvent{Type: domain.ProgressCycleComplete, Scraped: scraped, Failed: failed, WallClockMs: time.Since(cycleStart).Milliseconds()})
	if c.registry != nil {
		c.registry.Close(runID)
	}

	return CycleResult{ScrapeRunID: runRowID, EventsScraped: scraped, EventsFailed: failed, Alerts: alertCount}, nil
}

// RecordAssigned writes the snapshot row IDs a committed write batch
// received back into the odds cache, so the next cycle's UNCHANGED
// classification targets real rows. Wired as the write queue's
// OnApplied hook (and called directly on the synchronous write path).
func (c *Coordinator) RecordAssigned(assigned []store.AssignedSnapshot) {
	for _, a := range assigned {
		c.cache.AssignSnapshotID(a.CanonicalEventID, a.BookmakerSlug, a.IsCompetitor, a.CapturedAt, a.SnapshotID)
	}
}

// urgencyTier buckets an event's kickoff distance from now into the
// three urgency bands driving scrape priority.
func urgencyTier(now, kickoff time.Time) int {
	switch {
	case kickoff.Before(now.Add(30 * time.Minute)):
		return 0
	case kickoff.Before(now.Add(2 * time.Hour)):
		return 1
	default:
		return 2
	}
}

// orderByPriority sorts events by the (urgency, kickoff, -coverage,
// !hasReference) tuple: more urgent first, then
// earlier kickoff, then more-covered, then reference-present.
func orderByPriority(events []eventRow, now time.Time) []eventRow {
	sorted := make([]eventRow, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ua, ub := urgencyTier(now, a.kickoff), urgencyTier(now, b.kickoff)
		if ua != ub {
			return ua < ub
		}
		if !a.kickoff.Equal(b.kickoff) {
			return a.kickoff.Before(b.kickoff)
		}
		if a.coverage != b.coverage {
			return a.coverage > b.coverage
		}
		return a.hasReference && !b.hasReference
	})
	return sorted
}

func batch(events []eventRow, size int) [][]eventRow {
	if size <= 0 {
		size = 50
	}
	var batches [][]eventRow
	for i := 0; i < len(events); i += size {
		end := i + size
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, events[i:end])
	}
	return batches
}
