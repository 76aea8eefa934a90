package broadcast

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// Hub fans out one scrape run's ProgressEvents to every registered
// client through a register/unregister/broadcast loop.
type Hub struct {
	runID string
	log   zerolog.Logger

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan domain.ProgressEvent
	register   chan *Client
	unregister chan *Client

	// latest is the most recently dispatched event, replayed to every
	// newly registered client so a late subscriber can catch up. Only
	// the Run goroutine touches it.
	latest *domain.ProgressEvent

	mirror Mirror
}

// Mirror optionally fans a Hub's events out to a shared backing store
// (Redis Streams) so a second process can observe the same run.
type Mirror interface {
	Publish(ctx context.Context, runID string, ev domain.ProgressEvent) error
}

// NewHub creates a hub for one scrape run. mirror may be nil.
func NewHub(runID string, log zerolog.Logger, mirror Mirror) *Hub {
	return &Hub{
		runID:      runID,
		log:        log.With().Str("component", "broadcast_hub").Str("run_id", runID).Logger(),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan domain.ProgressEvent, 1000),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		mirror:     mirror,
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			h.clientsMu.Unlock()
			if h.latest != nil {
				c.TrySend(*h.latest)
			}
		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.clientsMu.Unlock()
		case ev := <-h.broadcast:
			h.latest = &ev
			h.dispatch(ctx, ev)
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Publish enqueues a progress event for fan-out, dropping it if the
// hub's internal buffer is full rather than blocking the coordinator.
func (h *Hub) Publish(ev domain.ProgressEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn().Str("event_type", string(ev.Type)).Msg("broadcast buffer full, dropping event")
	}
}

func (h *Hub) dispatch(ctx context.Context, ev domain.ProgressEvent) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if !c.TrySend(ev) {
			h.log.Warn().Str("client_id", c.ID).Msg("client buffer full, disconnecting")
			go h.Unregister(c)
		}
	}

	if h.mirror != nil {
		if err := h.mirror.Publish(ctx, h.runID, ev); err != nil {
			h.log.Warn().Err(err).Msg("mirror publish failed")
		}
	}
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}
