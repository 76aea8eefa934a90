package domain

import "time"

// ScrapeRunStatus is the lifecycle of one full pipeline cycle.
type ScrapeRunStatus string

const (
	ScrapeRunPending   ScrapeRunStatus = "pending"
	ScrapeRunRunning   ScrapeRunStatus = "running"
	ScrapeRunCompleted ScrapeRunStatus = "completed"
	ScrapeRunPartial   ScrapeRunStatus = "partial"
	ScrapeRunFailed    ScrapeRunStatus = "failed"
)

// ScrapeRun is one row per full pipeline cycle.
type ScrapeRun struct {
	ID             int64
	RunID          string // external-facing UUID, also the key of the run's broadcast hub
	Status         ScrapeRunStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	EventsScraped  int
	EventsFailed   int
	Trigger        string // "scheduled", "manual", "api"
	PlatformTiming map[BookmakerSlug]time.Duration
	ErrorMessage   string
}

// EventScrapeStatus is one row per (run, canonical event) inside a run.
type EventScrapeStatus struct {
	ID            int64
	ScrapeRunID   int64
	EventID       int64
	Attempted     []BookmakerSlug
	Succeeded     []BookmakerSlug
	Failed        []BookmakerSlug
	TimingMs      int64
	ErrorMessages map[BookmakerSlug]string
}
