package adapter

import (
	"context"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// Adapter is the capability set every bookmaker integration
// implements. Implementations never map into the canonical taxonomy —
// that's internal/mapping's job.
type Adapter interface {
	// Slug identifies which of the three bookmakers this is.
	Slug() domain.BookmakerSlug

	// DiscoverEvents returns every upcoming event in the adapter's root
	// category (kickoff in the past relative to now is excluded).
	DiscoverEvents(ctx context.Context) ([]domain.DiscoveredEvent, error)

	// FetchEvent returns the raw, unmapped odds payload for one event.
	FetchEvent(ctx context.Context, nativeEventID string) (domain.RawEventPayload, error)

	// CheckHealth is a fast liveness probe.
	CheckHealth(ctx context.Context) bool
}
