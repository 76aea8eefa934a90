package domain

import "time"

// ProgressEventType enumerates the outbound progress events a coordinator
// cycle emits.
type ProgressEventType string

const (
	ProgressCycleStart       ProgressEventType = "CYCLE_START"
	ProgressDiscoveryComplete ProgressEventType = "DISCOVERY_COMPLETE"
	ProgressQueueBuilt       ProgressEventType = "QUEUE_BUILT"
	ProgressBatchStart       ProgressEventType = "BATCH_START"
	ProgressEventScraping    ProgressEventType = "EVENT_SCRAPING"
	ProgressEventScraped     ProgressEventType = "EVENT_SCRAPED"
	ProgressBatchComplete    ProgressEventType = "BATCH_COMPLETE"
	ProgressCycleComplete    ProgressEventType = "CYCLE_COMPLETE"
)

// ProgressEvent is a structured record with at minimum {event_type,
// scrape_run_id, ...kind-specific fields}.
type ProgressEvent struct {
	Type        ProgressEventType
	ScrapeRunID string
	Timestamp   time.Time

	// Discovery / queue
	PlatformLatencyMs map[BookmakerSlug]int64
	EventCount        int

	// Batch / event
	BatchIndex      int
	EventID         string // canonical ID
	PlatformsPending []BookmakerSlug
	Scraped         int
	Failed          int
	TimingMs        int64
	PerPlatformMs   map[BookmakerSlug]int64

	// Failure subject, populated only on error-carrying events.
	FailingSubject string

	// Cycle totals
	WallClockMs int64
}
