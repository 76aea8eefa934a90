package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

func receiveEvent(t *testing.T, c *Client) domain.ProgressEvent {
	t.Helper()
	select {
	case ev, ok := <-c.Send:
		require.True(t, ok, "send channel closed before an event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ProgressEvent{}
	}
}

func TestHubDeliversToRegisteredClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub("run-1", zerolog.Nop(), nil)
	go h.Run(ctx)

	c := NewChannelClient("c1", h)
	h.Register(c)

	h.Publish(domain.ProgressEvent{Type: domain.ProgressCycleStart, ScrapeRunID: "run-1"})

	ev := receiveEvent(t, c)
	assert.Equal(t, domain.ProgressCycleStart, ev.Type)
}

func TestHubReplaysLatestEventToLateSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub("run-1", zerolog.Nop(), nil)
	go h.Run(ctx)

	early := NewChannelClient("early", h)
	h.Register(early)
	h.Publish(domain.ProgressEvent{Type: domain.ProgressQueueBuilt, EventCount: 12})
	receiveEvent(t, early)

	late := NewChannelClient("late", h)
	h.Register(late)

	ev := receiveEvent(t, late)
	assert.Equal(t, domain.ProgressQueueBuilt, ev.Type)
	assert.Equal(t, 12, ev.EventCount)
}

func TestHubCloseSignalsSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := NewHub("run-1", zerolog.Nop(), nil)
	go h.Run(ctx)

	c := NewChannelClient("c1", h)
	h.Register(c)
	h.Publish(domain.ProgressEvent{Type: domain.ProgressCycleStart})
	receiveEvent(t, c)

	cancel()

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok, "send channel must close when the run ends")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after hub shutdown")
	}
}

func TestRegistryReturnsSameHubForSameRun(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), nil)
	ctx := context.Background()

	h1 := r.Open(ctx, "run-1")
	h2 := r.Open(ctx, "run-1")
	assert.Same(t, h1, h2)

	_, ok := r.Get("run-1")
	assert.True(t, ok)

	r.Close("run-1")
	_, ok = r.Get("run-1")
	assert.False(t, ok)
}
