// Package writequeue decouples scraping from persistence: a bounded
// channel, a single worker goroutine, and per-batch retry with
// exponential backoff.
package writequeue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/store"
)

const (
	maxAttempts = 3
	baseBackoff = 1 * time.Second
)

// Writer is the subset of *store.WriterSession the queue depends on, so
// tests can substitute a fake.
type Writer interface {
	ApplyBatch(ctx context.Context, batch domain.WriteBatch) ([]store.AssignedSnapshot, error)
}

var _ Writer = (*store.WriterSession)(nil)

// Queue is a bounded, single-worker async write queue. Scraping enqueues
// batches and never waits on the DB commit; enqueue blocks once the
// channel is full, which is the queue's backpressure mechanism.
type Queue struct {
	items   chan domain.WriteBatch
	writer  Writer
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	// OnApplied, if set before Start, receives the snapshot row IDs each
	// committed batch was assigned. The coordinator uses it to write IDs
	// back into the odds cache so the next cycle's UNCHANGED touch
	// targets the real row.
	OnApplied func([]store.AssignedSnapshot)
}

// New creates a write queue with the given channel capacity.
func New(writer Writer, maxsize int, log zerolog.Logger) *Queue {
	return &Queue{
		items:  make(chan domain.WriteBatch, maxsize),
		writer: writer,
		log:    log.With().Str("component", "write_queue").Logger(),
	}
}

// Start spawns the background worker. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.wg.Add(1)
	go q.workerLoop(workerCtx)
	q.log.Info().Int("maxsize", cap(q.items)).Msg("write queue started")
}

// Stop cancels the worker and drains whatever remains in the channel
// before returning, so accepted batches are not lost on shutdown.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	q.wg.Wait()
	q.drain(ctx)
	q.log.Info().Msg("write queue stopped")
}

// Enqueue adds a batch to the queue, blocking if it is full (backpressure)
// or returning ctx.Err() if ctx is cancelled first.
func (q *Queue) Enqueue(ctx context.Context, batch domain.WriteBatch) error {
	select {
	case q.items <- batch:
		q.log.Debug().
			Int("batch_index", batch.BatchIndex).
			Int("changed", len(batch.Changed)).
			Int("unchanged", len(batch.Unchanged)).
			Int("alerts", len(batch.Alerts)).
			Msg("write batch enqueued")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports the current queue depth and capacity, exposed on the
// ops /metrics endpoint.
type Stats struct {
	QueueSize    int
	QueueMaxSize int
}

func (q *Queue) Stats() Stats {
	return Stats{QueueSize: len(q.items), QueueMaxSize: cap(q.items)}
}

func (q *Queue) workerLoop(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case batch := <-q.items:
			q.processWithRetry(ctx, batch)
		case <-ctx.Done():
			return
		}
	}
}

// drain processes whatever remains in the channel without blocking on
// new arrivals, used during shutdown.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case batch := <-q.items:
			q.processWithRetry(ctx, batch)
		default:
			return
		}
	}
}

// processWithRetry applies one batch with up to maxAttempts tries and
// exponential backoff (1s before the second try, 2s before the third).
// A batch that fails with
// store.IntegrityError is dropped immediately without retrying — the
// data itself is malformed, and retrying won't fix that. An
// OperationalError (connection blip, deadlock) is retried.
func (q *Queue) processWithRetry(ctx context.Context, batch domain.WriteBatch) {
	backoff := baseBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		t0 := time.Now()
		assigned, err := q.writer.ApplyBatch(ctx, batch)
		elapsed := time.Since(t0)
		if err == nil {
			if q.OnApplied != nil {
				q.OnApplied(assigned)
			}
			q.log.Info().
				Int("batch_index", batch.BatchIndex).
				Int("attempt", attempt).
				Dur("write_time", elapsed).
				Msg("write batch processed")
			return
		}

		lastErr = err
		if _, ok := err.(*store.IntegrityError); ok {
			q.log.Error().
				Err(err).
				Int("batch_index", batch.BatchIndex).
				Msg("write batch dropped: integrity error")
			return
		}

		if attempt < maxAttempts {
			q.log.Warn().
				Err(err).
				Int("batch_index", batch.BatchIndex).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("write batch retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}
	}

	q.log.Error().
		Err(lastErr).
		Int("batch_index", batch.BatchIndex).
		Int("attempts", maxAttempts).
		Int("changed", len(batch.Changed)).
		Int("unchanged", len(batch.Unchanged)).
		Msg("write batch failed, dropping")
}
