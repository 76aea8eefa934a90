package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// CoordinatorSession owns the events/tournaments/bookmakers/scrape-run
// rows touched directly by the coordinator. It never shares a
// transaction with WriterSession.
type CoordinatorSession struct {
	db *sql.DB
}

// NewCoordinatorSession wraps db for coordinator-owned tables.
func NewCoordinatorSession(db *sql.DB) *CoordinatorSession {
	return &CoordinatorSession{db: db}
}

// UpsertSport inserts a Sport if it doesn't already exist by slug and
// returns its ID either way.
func (s *CoordinatorSession) UpsertSport(ctx context.Context, name, slug string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sports (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert sport: %w", err)
	}
	return id, nil
}

// UpsertBookmaker inserts/updates a Bookmaker row by slug.
func (s *CoordinatorSession) UpsertBookmaker(ctx context.Context, b domain.Bookmaker) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bookmakers (name, slug, is_active, base_url, logo_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active
		RETURNING id
	`, b.Name, string(b.Slug), b.Active, b.BaseURL, b.LogoURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert bookmaker: %w", err)
	}
	return id, nil
}

// BookmakerIDBySlug looks up a bookmaker's row ID.
func (s *CoordinatorSession) BookmakerIDBySlug(ctx context.Context, slug domain.BookmakerSlug) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM bookmakers WHERE slug = $1`, string(slug)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup bookmaker %s: %w", slug, err)
	}
	return id, nil
}

// EventByCanonicalID loads an Event by its canonical ID, if it exists.
func (s *CoordinatorSession) EventByCanonicalID(ctx context.Context, canonicalID string) (*domain.Event, error) {
	var e domain.Event
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, home_team, away_team, kickoff, canonical_id
		FROM events WHERE canonical_id = $1
	`, canonicalID).Scan(&e.ID, &e.TournamentID, &e.Name, &e.HomeTeam, &e.AwayTeam, &e.Kickoff, &e.CanonicalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup event %s: %w", canonicalID, err)
	}
	return &e, nil
}

// EnsureTournament finds-or-creates a Tournament for the given sport by
// canonical ID (if known) or, without one, by name among the sport's
// tournaments that have no canonical ID.
func (s *CoordinatorSession) EnsureTournament(ctx context.Context, sportID int64, name string, country *string, canonicalID *string) (int64, error) {
	if canonicalID != nil {
		var id int64
		err := s.db.QueryRowContext(ctx, `SELECT id FROM tournaments WHERE canonical_id = $1`, *canonicalID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup tournament by canonical id: %w", err)
		}
	} else {
		var id int64
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM tournaments
			WHERE sport_id = $1 AND name = $2 AND canonical_id IS NULL
			ORDER BY id LIMIT 1
		`, sportID, name).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup tournament by name: %w", err)
		}
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tournaments (sport_id, name, country, canonical_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, sportID, name, country, canonicalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert tournament: %w", err)
	}
	return id, nil
}

// EnsureEvent finds-or-creates a canonical Event for canonicalID.
// Betpawa (the reference bookmaker) is metadata-authoritative: if
// isReference is true the row's name/home/away are updated on conflict;
// otherwise only kickoff corrections are applied.
func (s *CoordinatorSession) EnsureEvent(ctx context.Context, tournamentID int64, name, home, away string, kickoff time.Time, canonicalID string, isReference bool) (int64, error) {
	existing, err := s.EventByCanonicalID(ctx, canonicalID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		var id int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO events (tournament_id, name, home_team, away_team, kickoff, canonical_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, tournamentID, name, home, away, kickoff, canonicalID).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
		return id, nil
	}

	if isReference {
		_, err = s.db.ExecContext(ctx, `
			UPDATE events SET name = $1, home_team = $2, away_team = $3, kickoff = $4
			WHERE id = $5
		`, name, home, away, kickoff, existing.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE events SET kickoff = $1 WHERE id = $2`, kickoff, existing.ID)
	}
	if err != nil {
		return 0, fmt.Errorf("update event: %w", err)
	}
	return existing.ID, nil
}

// EnsureEventBookmaker inserts the (event, bookmaker) link if absent.
func (s *CoordinatorSession) EnsureEventBookmaker(ctx context.Context, eventID, bookmakerID int64, nativeEventID, url string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_bookmakers (event_id, bookmaker_id, native_event_id, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, bookmaker_id) DO UPDATE SET native_event_id = EXCLUDED.native_event_id, url = EXCLUDED.url
	`, eventID, bookmakerID, nativeEventID, url)
	if err != nil {
		return fmt.Errorf("ensure event bookmaker: %w", err)
	}
	return nil
}

// EnsureCompetitorTournament finds-or-creates a CompetitorTournament.
func (s *CoordinatorSession) EnsureCompetitorTournament(ctx context.Context, source domain.BookmakerSlug, sportID int64, name string, countryRaw *string, externalID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO competitor_tournaments (source, sport_id, name, country_raw, external_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, external_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, string(source), sportID, name, countryRaw, externalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure competitor tournament: %w", err)
	}
	return id, nil
}

// EnsureCompetitorEvent finds-or-creates a CompetitorEvent, linking it to
// the canonical event once matched.
func (s *CoordinatorSession) EnsureCompetitorEvent(ctx context.Context, source domain.BookmakerSlug, tournamentID int64, eventID *int64, name, home, away string, kickoff time.Time, externalID, sportradarID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO competitor_events (source, tournament_id, event_id, name, home_team, away_team, kickoff, external_id, sportradar_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, external_id) DO UPDATE SET kickoff = EXCLUDED.kickoff, event_id = EXCLUDED.event_id
		RETURNING id
	`, string(source), tournamentID, eventID, name, home, away, kickoff, externalID, sportradarID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure competitor event: %w", err)
	}
	return id, nil
}

// InsertScrapeRun creates a new ScrapeRun row in the "running" state.
func (s *CoordinatorSession) InsertScrapeRun(ctx context.Context, runID, trigger string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scrape_runs (run_id, status, started_at, trigger)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, runID, string(domain.ScrapeRunRunning), startedAt, trigger).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scrape run: %w", err)
	}
	return id, nil
}

// CompleteScrapeRun finalizes a ScrapeRun with the given status/counts.
func (s *CoordinatorSession) CompleteScrapeRun(ctx context.Context, id int64, status domain.ScrapeRunStatus, eventsScraped, eventsFailed int, completedAt time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs
		SET status = $1, events_scraped = $2, events_failed = $3, completed_at = $4, error_message = $5
		WHERE id = $6
	`, string(status), eventsScraped, eventsFailed, completedAt, nullIfEmpty(errMsg), id)
	if err != nil {
		return fmt.Errorf("complete scrape run: %w", err)
	}
	return nil
}

// InsertEventScrapeStatus writes one EventScrapeStatus row.
func (s *CoordinatorSession) InsertEventScrapeStatus(ctx context.Context, st domain.EventScrapeStatus) error {
	attempted, err := marshalSlugs(st.Attempted)
	if err != nil {
		return err
	}
	succeeded, err := marshalSlugs(st.Succeeded)
	if err != nil {
		return err
	}
	failed, err := marshalSlugs(st.Failed)
	if err != nil {
		return err
	}
	errMsgs, err := marshalErrorMap(st.ErrorMessages)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_scrape_statuses (scrape_run_id, event_id, attempted, succeeded, failed, timing_ms, error_messages)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, st.ScrapeRunID, st.EventID, attempted, succeeded, failed, st.TimingMs, errMsgs)
	if err != nil {
		return fmt.Errorf("insert event scrape status: %w", err)
	}
	return nil
}

// StaleRunIDs returns every ScrapeRun still "running" (used at startup to
// recover crashed runs).
func (s *CoordinatorSession) StaleRunIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM scrape_runs WHERE status = $1`, string(domain.ScrapeRunRunning))
	if err != nil {
		return nil, fmt.Errorf("query stale runs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TouchRunActivity bumps a run's last_activity_at, called at the start
// of every scrape batch so the watchdog can tell a genuinely stuck run
// from one that's simply taking a long time.
func (s *CoordinatorSession) TouchRunActivity(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE scrape_runs SET last_activity_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch run activity: %w", err)
	}
	return nil
}

// StaleRun identifies one watchdog-flagged run by both its row id (for
// MarkRunFailed) and its public RunID (for closing its broadcast hub).
type StaleRun struct {
	RowID int64
	RunID string
}

// StaleRunIDsSince returns every "running" ScrapeRun whose last_activity_at
// is older than cutoff, for the watchdog sweep.
func (s *CoordinatorSession) StaleRunIDsSince(ctx context.Context, cutoff time.Time) ([]StaleRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id FROM scrape_runs WHERE status = $1 AND last_activity_at < $2
	`, string(domain.ScrapeRunRunning), cutoff)
	if err != nil {
		return nil, fmt.Errorf("query watchdog stale runs: %w", err)
	}
	defer rows.Close()

	var stale []StaleRun
	for rows.Next() {
		var sr StaleRun
		if err := rows.Scan(&sr.RowID, &sr.RunID); err != nil {
			return nil, fmt.Errorf("scan watchdog stale run: %w", err)
		}
		stale = append(stale, sr)
	}
	return stale, rows.Err()
}

// MarkRunFailed flips a run to failed with errMsg.
func (s *CoordinatorSession) MarkRunFailed(ctx context.Context, id int64, errMsg string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4
	`, string(domain.ScrapeRunFailed), errMsg, at, id)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
