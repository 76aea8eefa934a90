package broadcast

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns one Hub per active scrape run. It is instance-scoped
// (constructed by cmd/scraper-core/main.go), not a package-level
// global, so tests can run several registries in isolation.
type Registry struct {
	mu     sync.Mutex
	hubs   map[string]*Hub
	cancel map[string]context.CancelFunc
	log    zerolog.Logger
	mirror Mirror
}

func NewRegistry(log zerolog.Logger, mirror Mirror) *Registry {
	return &Registry{
		hubs:   make(map[string]*Hub),
		cancel: make(map[string]context.CancelFunc),
		log:    log.With().Str("component", "broadcast_registry").Logger(),
		mirror: mirror,
	}
}

// Open starts a hub for runID and returns it. Calling Open again for a
// run already open returns the existing hub.
func (r *Registry) Open(ctx context.Context, runID string) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hubs[runID]; ok {
		return h
	}

	hubCtx, cancel := context.WithCancel(ctx)
	h := NewHub(runID, r.log, r.mirror)
	r.hubs[runID] = h
	r.cancel[runID] = cancel
	go h.Run(hubCtx)
	return h
}

// Get returns the hub for runID, if one is open.
func (r *Registry) Get(runID string) (*Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[runID]
	return h, ok
}

// Close tears down the hub for a finished run, disconnecting any
// lingering subscribers.
func (r *Registry) Close(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancel[runID]; ok {
		cancel()
	}
	delete(r.hubs, runID)
	delete(r.cancel, runID)
}
