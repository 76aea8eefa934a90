package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
	"github.com/palimpsest-sports/scrapecore/internal/store"
)

type fakeWriter struct {
	mu       sync.Mutex
	calls    int
	err      error
	assigned []store.AssignedSnapshot
	applied  []domain.WriteBatch
	lastHook func(n int) error
}

func (f *fakeWriter) ApplyBatch(ctx context.Context, batch domain.WriteBatch) ([]store.AssignedSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.applied = append(f.applied, batch)
	if f.lastHook != nil {
		return nil, f.lastHook(f.calls)
	}
	return f.assigned, f.err
}

func (f *fakeWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func TestEnqueueAndProcessSuccess(t *testing.T) {
	w := &fakeWriter{}
	q := New(w, 4, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 1}))

	require.Eventually(t, func() bool { return w.callCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	q.Stop(context.Background())
}

func TestIntegrityErrorDroppedWithoutRetry(t *testing.T) {
	w := &fakeWriter{err: &store.IntegrityError{Cause: errors.New("duplicate key")}}
	q := New(w, 4, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 2}))

	require.Eventually(t, func() bool { return w.callCount() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, w.callCount(), "integrity error must not be retried")

	cancel()
	q.Stop(context.Background())
}

func TestOperationalErrorRetriedThenDropped(t *testing.T) {
	w := &fakeWriter{err: &store.OperationalError{Cause: errors.New("connection reset")}}
	q := New(w, 4, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 3}))

	require.Eventually(t, func() bool { return w.callCount() == maxAttempts }, 10*time.Second, 50*time.Millisecond)

	cancel()
	q.Stop(context.Background())
	assert.Equal(t, maxAttempts, w.callCount())
}

func TestOperationalErrorSucceedsOnRetry(t *testing.T) {
	var attempts int32
	w := &fakeWriter{lastHook: func(n int) error {
		atomic.StoreInt32(&attempts, int32(n))
		if n < 2 {
			return &store.OperationalError{Cause: errors.New("transient")}
		}
		return nil
	}}
	q := New(w, 4, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 4}))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 2 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	q.Stop(context.Background())
}

func TestOnAppliedReceivesAssignedIDs(t *testing.T) {
	want := []store.AssignedSnapshot{{SnapshotID: 77, CanonicalEventID: "sr:match:1", BookmakerSlug: domain.SlugBetpawa}}
	w := &fakeWriter{assigned: want}
	q := New(w, 4, noopLogger())

	var mu sync.Mutex
	var got []store.AssignedSnapshot
	q.OnApplied = func(assigned []store.AssignedSnapshot) {
		mu.Lock()
		got = assigned
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 1}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, want, got)
	mu.Unlock()

	cancel()
	q.Stop(context.Background())
}

func TestStatsReportsQueueDepth(t *testing.T) {
	w := &fakeWriter{}
	q := New(w, 4, noopLogger())

	stats := q.Stats()
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, 4, stats.QueueMaxSize)
}

func TestEnqueueRespectsContextCancellationWhenFull(t *testing.T) {
	w := &fakeWriter{lastHook: func(int) error { time.Sleep(time.Second); return nil }}
	q := New(w, 1, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	defer func() {
		cancel()
		q.Stop(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 1}))
	require.NoError(t, q.Enqueue(context.Background(), domain.WriteBatch{BatchIndex: 2}))

	enqueueCtx, enqueueCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer enqueueCancel()
	err := q.Enqueue(enqueueCtx, domain.WriteBatch{BatchIndex: 3})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
