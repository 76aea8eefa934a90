// Package scheduler fires the coordinator's full cycle on a fixed
// interval and runs the watchdog sweep that recovers stuck runs and
// retires past-kickoff alerts. Both are plain ticker loops in their
// own goroutines.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/palimpsest-sports/scrapecore/internal/config"
	"github.com/palimpsest-sports/scrapecore/internal/coordinator"
	"github.com/palimpsest-sports/scrapecore/internal/store"
)

// Coordinator is the subset of *coordinator.Coordinator the scheduler
// drives, so tests can substitute a fake.
type Coordinator interface {
	RunCycle(ctx context.Context, runID, trigger string) (coordinator.CycleResult, error)
}

// CycleResult is an alias for coordinator.CycleResult, kept so callers
// outside this package don't need to import internal/coordinator just to
// read TriggerNow's return value.
type CycleResult = coordinator.CycleResult

// RunStore is the subset of *store.CoordinatorSession the watchdog and
// startup recovery need.
type RunStore interface {
	StaleRunIDs(ctx context.Context) ([]int64, error)
	StaleRunIDsSince(ctx context.Context, cutoff time.Time) ([]store.StaleRun, error)
	MarkRunFailed(ctx context.Context, id int64, errMsg string, at time.Time) error
}

// AlertSweeper is the subset of *store.WriterSession the watchdog uses to
// transition past-kickoff alerts.
type AlertSweeper interface {
	PastAlerts(ctx context.Context, before time.Time) (int64, error)
}

// BroadcastRegistry is the subset of *broadcast.Registry the watchdog
// needs to release a stuck run's subscribers.
type BroadcastRegistry interface {
	Close(runID string)
}

// Scheduler fires RunCycle on settings.ScrapeIntervalMinutes and runs a
// periodic watchdog sweep for stuck runs and past-kickoff alerts.
type Scheduler struct {
	coordinator Coordinator
	runs        RunStore
	alerts      AlertSweeper
	registry    BroadcastRegistry
	settings    *config.Settings
	log         zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Scheduler. Call RecoverOnStartup once before Start.
func New(coord Coordinator, runs RunStore, alerts AlertSweeper, registry BroadcastRegistry, settings *config.Settings, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		coordinator: coord,
		runs:        runs,
		alerts:      alerts,
		registry:    registry,
		settings:    settings,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// RecoverOnStartup marks every ScrapeRun left "running" from a previous
// process as failed with a recovery message, so no run row stays
// "running" forever after a crash.
func (s *Scheduler) RecoverOnStartup(ctx context.Context) error {
	ids, err := s.runs.StaleRunIDs(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, id := range ids {
		if err := s.runs.MarkRunFailed(ctx, id, "recovered on startup", now); err != nil {
			s.log.Warn().Err(err).Int64("run_row_id", id).Msg("failed to recover stuck run on startup")
			continue
		}
		s.log.Warn().Int64("run_row_id", id).Msg("recovered stuck run on startup")
	}
	return nil
}

// Start launches the interval-driven cycle loop and the watchdog loop in
// their own goroutines. Cancel the returned context (or call Stop) to
// shut both down; Stop waits for any in-flight cycle to finish its
// current batch (coordinator.RunCycle itself returns only between
// batches once ctx is done).
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.cycleLoop(runCtx)
	go s.watchdogLoop(runCtx)
}

// Stop cancels both loops and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// TriggerNow runs one cycle immediately with trigger="manual", outside
// the regular interval; the ops router's manual-trigger endpoint
// calls this.
func (s *Scheduler) TriggerNow(ctx context.Context) (CycleResult, error) {
	return s.coordinator.RunCycle(ctx, uuid.New().String(), "manual")
}

func (s *Scheduler) cycleLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.settings.ScrapeIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOneCycle(ctx)
			// Settings may have changed since the last tick; re-read
			// the interval so runtime updates take effect next cycle.
			newInterval := time.Duration(s.settings.ScrapeIntervalMinutes) * time.Minute
			if newInterval > 0 && newInterval != interval {
				interval = newInterval
				ticker.Reset(interval)
			}
		}
	}
}

func (s *Scheduler) runOneCycle(ctx context.Context) {
	runID := uuid.New().String()
	result, err := s.coordinator.RunCycle(ctx, runID, "scheduled")
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("scheduled cycle failed")
		return
	}
	s.log.Info().
		Str("run_id", runID).
		Int64("run_row_id", result.ScrapeRunID).
		Int("scraped", result.EventsScraped).
		Int("failed", result.EventsFailed).
		Int("alerts", result.Alerts).
		Msg("scheduled cycle complete")
}

// watchdogLoop periodically flips stuck runs to failed and sweeps past-
// kickoff alerts to AlertStatusPast. Both run on the same fixed
// cadence; they're independent concerns that happen to share a timer.
func (s *Scheduler) watchdogLoop(ctx context.Context) {
	defer s.wg.Done()

	const sweepInterval = 1 * time.Minute
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleRuns(ctx)
			s.sweepPastAlerts(ctx)
		}
	}
}

func (s *Scheduler) sweepStaleRuns(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.settings.StaleRunThreshold)
	stale, err := s.runs.StaleRunIDsSince(ctx, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("watchdog: query stale runs failed")
		return
	}
	for _, run := range stale {
		if err := s.runs.MarkRunFailed(ctx, run.RowID, "stale run: no activity past threshold", time.Now().UTC()); err != nil {
			s.log.Warn().Err(err).Int64("run_row_id", run.RowID).Msg("watchdog: mark run failed failed")
			continue
		}
		if s.registry != nil {
			s.registry.Close(run.RunID)
		}
		s.log.Warn().Int64("run_row_id", run.RowID).Str("run_id", run.RunID).Msg("watchdog: flipped stuck run to failed")
	}
}

func (s *Scheduler) sweepPastAlerts(ctx context.Context) {
	n, err := s.alerts.PastAlerts(ctx, time.Now().UTC())
	if err != nil {
		s.log.Warn().Err(err).Msg("watchdog: past alert sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("watchdog: alerts transitioned to past")
	}
}
