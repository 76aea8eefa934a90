package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// WriterSession owns the odds_snapshots/market_odds/risk_alerts rows
// touched by the async write queue. It never shares a
// transaction with CoordinatorSession.
type WriterSession struct {
	db *sql.DB
}

// NewWriterSession wraps db for write-queue-owned tables.
func NewWriterSession(db *sql.DB) *WriterSession {
	return &WriterSession{db: db}
}

// AssignedSnapshot reports the row ID a changed snapshot received at
// insert time, keyed so the odds cache can record it against the right
// (event, bookmaker/source) entry.
type AssignedSnapshot struct {
	SnapshotID       int64
	IsCompetitor     bool
	CanonicalEventID string
	BookmakerSlug    domain.BookmakerSlug
	CapturedAt       time.Time
}

// ApplyBatch commits one WriteBatch in a single transaction, in the
// order the queue worker guarantees: reference snapshots before competitor
// snapshots, snapshots before markets, unchanged touches before
// availability flips, alerts last. Returns the row IDs assigned to the
// changed snapshots so the caller can write them back into the odds
// cache.
func (w *WriterSession) ApplyBatch(ctx context.Context, batch domain.WriteBatch) ([]AssignedSnapshot, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("begin write batch tx: %w", err))
	}
	defer tx.Rollback()

	assigned := make([]AssignedSnapshot, 0, len(batch.Changed))
	for _, cs := range batch.Changed {
		if cs.IsCompetitor {
			continue
		}
		id, err := insertChangedSnapshot(ctx, tx, cs)
		if err != nil {
			return nil, ClassifyError(err)
		}
		assigned = append(assigned, AssignedSnapshot{
			SnapshotID:       id,
			CanonicalEventID: cs.CanonicalEventID,
			BookmakerSlug:    cs.BookmakerSlug,
			CapturedAt:       cs.CapturedAt,
		})
	}
	for _, cs := range batch.Changed {
		if !cs.IsCompetitor {
			continue
		}
		id, err := insertChangedSnapshot(ctx, tx, cs)
		if err != nil {
			return nil, ClassifyError(err)
		}
		assigned = append(assigned, AssignedSnapshot{
			SnapshotID:       id,
			IsCompetitor:     true,
			CanonicalEventID: cs.CanonicalEventID,
			BookmakerSlug:    cs.BookmakerSlug,
			CapturedAt:       cs.CapturedAt,
		})
	}

	for _, us := range batch.Unchanged {
		if err := touchSnapshot(ctx, tx, us); err != nil {
			return nil, ClassifyError(err)
		}
	}

	for _, au := range batch.AvailabilityUpdates {
		if err := markMarketUnavailable(ctx, tx, au); err != nil {
			return nil, ClassifyError(err)
		}
	}

	for _, alert := range batch.Alerts {
		if err := insertAlert(ctx, tx, alert); err != nil {
			return nil, ClassifyError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, ClassifyError(fmt.Errorf("commit write batch: %w", err))
	}
	return assigned, nil
}

func insertChangedSnapshot(ctx context.Context, tx *sql.Tx, cs domain.ChangedSnapshot) (int64, error) {
	if cs.IsCompetitor {
		var snapshotID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO competitor_odds_snapshots (competitor_event_id, captured_at, last_confirmed_at, scrape_run_id, raw_response)
			VALUES ($1, $2, $2, $3, $4)
			RETURNING id
		`, cs.EventID, cs.CapturedAt, cs.ScrapeRunID, []byte(cs.RawResponse)).Scan(&snapshotID)
		if err != nil {
			return 0, fmt.Errorf("insert competitor snapshot: %w", err)
		}
		for _, m := range cs.Markets {
			if err := insertCompetitorMarket(ctx, tx, snapshotID, m); err != nil {
				return 0, err
			}
		}
		return snapshotID, nil
	}

	var snapshotID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO odds_snapshots (event_id, bookmaker_id, captured_at, last_confirmed_at, scrape_run_id)
		VALUES ($1, $2, $3, $3, $4)
		RETURNING id
	`, cs.EventID, cs.BookmakerID, cs.CapturedAt, cs.ScrapeRunID).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	for _, m := range cs.Markets {
		if err := insertMarket(ctx, tx, snapshotID, m); err != nil {
			return 0, err
		}
	}
	return snapshotID, nil
}

func insertMarket(ctx context.Context, tx *sql.Tx, snapshotID int64, m domain.MarketOdds) error {
	outcomes, err := marshalOutcomes(m.Outcomes)
	if err != nil {
		return err
	}
	categories, err := marshalCategories(m.Categories)
	if err != nil {
		return err
	}
	var handicapType *string
	var handicapHome, handicapAway *float64
	if m.Handicap != nil {
		t := string(m.Handicap.Type)
		handicapType = &t
		handicapHome = &m.Handicap.Home
		handicapAway = &m.Handicap.Away
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO market_odds (snapshot_id, canonical_market_id, canonical_market_name, line, handicap_type, handicap_home, handicap_away, outcomes, categories, unavailable_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, snapshotID, m.CanonicalID, m.Name, m.Line, handicapType, handicapHome, handicapAway, outcomes, categories, m.UnavailableAt)
	if err != nil {
		return fmt.Errorf("insert market: %w", err)
	}
	return nil
}

func insertCompetitorMarket(ctx context.Context, tx *sql.Tx, snapshotID int64, m domain.MarketOdds) error {
	outcomes, err := marshalOutcomes(m.Outcomes)
	if err != nil {
		return err
	}
	categories, err := marshalCategories(m.Categories)
	if err != nil {
		return err
	}
	var handicapType *string
	var handicapHome, handicapAway *float64
	if m.Handicap != nil {
		t := string(m.Handicap.Type)
		handicapType = &t
		handicapHome = &m.Handicap.Home
		handicapAway = &m.Handicap.Away
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO competitor_market_odds (snapshot_id, canonical_market_id, canonical_market_name, line, handicap_type, handicap_home, handicap_away, outcomes, categories, unavailable_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, snapshotID, m.CanonicalID, m.Name, m.Line, handicapType, handicapHome, handicapAway, outcomes, categories, m.UnavailableAt)
	if err != nil {
		return fmt.Errorf("insert competitor market: %w", err)
	}
	return nil
}

func touchSnapshot(ctx context.Context, tx *sql.Tx, us domain.UnchangedSnapshot) error {
	table := "odds_snapshots"
	if us.IsCompetitor {
		table = "competitor_odds_snapshots"
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET last_confirmed_at = $1 WHERE id = $2`, table), us.ConfirmedAt, us.SnapshotID)
	if err != nil {
		return fmt.Errorf("touch snapshot: %w", err)
	}
	return nil
}

func markMarketUnavailable(ctx context.Context, tx *sql.Tx, au domain.AvailabilityUpdate) error {
	table := "market_odds"
	if au.IsCompetitor {
		table = "competitor_market_odds"
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET unavailable_at = $1
		WHERE snapshot_id = $2 AND canonical_market_id = $3
		  AND (line = $4 OR (line IS NULL AND $4 IS NULL))
	`, table), au.UnavailableAt, au.SnapshotID, au.CanonicalMarketID, au.Line)
	if err != nil {
		return fmt.Errorf("mark market unavailable: %w", err)
	}
	return nil
}

func insertAlert(ctx context.Context, tx *sql.Tx, a domain.RiskAlert) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO risk_alerts (event_id, bookmaker_slug, market_id, market_name, line, outcome_name, alert_kind, severity, change_percent, old_value, new_value, competitor_direction, detected_at, status, event_kickoff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, a.EventID, string(a.BookmakerSlug), a.MarketID, a.MarketName, a.Line, a.OutcomeName, string(a.Kind), string(a.Severity), a.ChangePercent, a.OldValue, a.NewValue, a.CompetitorDirection, a.DetectedAt, string(domain.AlertStatusNew), a.EventKickoff)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// LatestSnapshot loads the most recent OddsSnapshot (and its markets) for
// an (event, bookmaker) pair. Cold-start seeding of the odds cache goes
// through WarmupCache, not through this method.
func (w *WriterSession) LatestSnapshot(ctx context.Context, eventID, bookmakerID int64) (*domain.OddsSnapshot, error) {
	var snap domain.OddsSnapshot
	err := w.db.QueryRowContext(ctx, `
		SELECT id, event_id, bookmaker_id, captured_at, last_confirmed_at, scrape_run_id
		FROM odds_snapshots
		WHERE event_id = $1 AND bookmaker_id = $2
		ORDER BY captured_at DESC LIMIT 1
	`, eventID, bookmakerID).Scan(&snap.ID, &snap.EventID, &snap.BookmakerID, &snap.CapturedAt, &snap.LastConfirmedAt, &snap.ScrapeRunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT canonical_market_id, canonical_market_name, line, handicap_type, handicap_home, handicap_away, outcomes, categories, unavailable_at
		FROM market_odds WHERE snapshot_id = $1
	`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot markets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.MarketOdds
		var handicapType *string
		var handicapHome, handicapAway *float64
		var outcomesRaw, categoriesRaw []byte
		if err := rows.Scan(&m.CanonicalID, &m.Name, &m.Line, &handicapType, &handicapHome, &handicapAway, &outcomesRaw, &categoriesRaw, &m.UnavailableAt); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		if handicapType != nil {
			m.Handicap = &domain.Handicap{Type: domain.HandicapType(*handicapType)}
			if handicapHome != nil {
				m.Handicap.Home = *handicapHome
			}
			if handicapAway != nil {
				m.Handicap.Away = *handicapAway
			}
		}
		outcomes, err := unmarshalOutcomes(outcomesRaw)
		if err != nil {
			return nil, err
		}
		m.Outcomes = outcomes
		categories, err := unmarshalCategories(categoriesRaw)
		if err != nil {
			return nil, err
		}
		m.Categories = categories
		snap.Markets = append(snap.Markets, m)
	}
	return &snap, rows.Err()
}

// WarmSnapshot is one row of the odds-cache warmup query: the latest
// persisted snapshot for an (event, bookmaker/source) pair, keyed by the
// canonical event ID so oddscache.Cache can populate directly.
type WarmSnapshot struct {
	SnapshotID      int64
	CanonicalID     string
	BookmakerSlug   domain.BookmakerSlug
	Kickoff         time.Time
	CapturedAt      time.Time
	LastConfirmedAt time.Time
	Markets         []domain.MarketOdds
}

// WarmReferenceSnapshots loads the latest OddsSnapshot for every
// (event, bookmaker) pair whose event kickoff is in the future or
// within the last two hours.
func (w *WriterSession) WarmReferenceSnapshots(ctx context.Context, since time.Time) ([]WarmSnapshot, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT DISTINCT ON (s.event_id, s.bookmaker_id)
			s.id, e.canonical_id, b.slug, e.kickoff, s.captured_at, s.last_confirmed_at
		FROM odds_snapshots s
		JOIN events e ON e.id = s.event_id
		JOIN bookmakers b ON b.id = s.bookmaker_id
		WHERE e.kickoff >= $1
		ORDER BY s.event_id, s.bookmaker_id, s.captured_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("warm reference snapshots: %w", err)
	}
	defer rows.Close()

	var warmed []WarmSnapshot
	for rows.Next() {
		var ws WarmSnapshot
		var slug string
		if err := rows.Scan(&ws.SnapshotID, &ws.CanonicalID, &slug, &ws.Kickoff, &ws.CapturedAt, &ws.LastConfirmedAt); err != nil {
			return nil, fmt.Errorf("scan warm reference snapshot: %w", err)
		}
		ws.BookmakerSlug = domain.BookmakerSlug(slug)
		warmed = append(warmed, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return w.attachMarkets(ctx, warmed, "market_odds")
}

// WarmCompetitorSnapshots mirrors WarmReferenceSnapshots for competitor
// snapshots, keyed by the competitor event's source tag and matched back
// to the canonical event once linked.
func (w *WriterSession) WarmCompetitorSnapshots(ctx context.Context, since time.Time) ([]WarmSnapshot, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT DISTINCT ON (s.competitor_event_id)
			s.id, e.canonical_id, ce.source, ce.kickoff, s.captured_at, s.last_confirmed_at
		FROM competitor_odds_snapshots s
		JOIN competitor_events ce ON ce.id = s.competitor_event_id
		JOIN events e ON e.id = ce.event_id
		WHERE ce.kickoff >= $1 AND ce.event_id IS NOT NULL
		ORDER BY s.competitor_event_id, s.captured_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("warm competitor snapshots: %w", err)
	}
	defer rows.Close()

	var warmed []WarmSnapshot
	for rows.Next() {
		var ws WarmSnapshot
		var slug string
		if err := rows.Scan(&ws.SnapshotID, &ws.CanonicalID, &slug, &ws.Kickoff, &ws.CapturedAt, &ws.LastConfirmedAt); err != nil {
			return nil, fmt.Errorf("scan warm competitor snapshot: %w", err)
		}
		ws.BookmakerSlug = domain.BookmakerSlug(slug)
		warmed = append(warmed, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return w.attachMarkets(ctx, warmed, "competitor_market_odds")
}

// attachMarkets batch-loads the market rows for every warmed snapshot ID
// from the given table (market_odds or competitor_market_odds) and
// attaches them in place.
func (w *WriterSession) attachMarkets(ctx context.Context, warmed []WarmSnapshot, table string) ([]WarmSnapshot, error) {
	if len(warmed) == 0 {
		return warmed, nil
	}

	byID := make(map[int64]*WarmSnapshot, len(warmed))
	ids := make([]int64, len(warmed))
	for i := range warmed {
		byID[warmed[i].SnapshotID] = &warmed[i]
		ids[i] = warmed[i].SnapshotID
	}

	query := fmt.Sprintf(`
		SELECT snapshot_id, canonical_market_id, canonical_market_name, line, handicap_type, handicap_home, handicap_away, outcomes, categories, unavailable_at
		FROM %s WHERE snapshot_id = ANY($1)
	`, table)
	rows, err := w.db.QueryContext(ctx, query, pqInt64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("warm snapshot markets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snapshotID int64
		var m domain.MarketOdds
		var handicapType *string
		var handicapHome, handicapAway *float64
		var outcomesRaw, categoriesRaw []byte
		if err := rows.Scan(&snapshotID, &m.CanonicalID, &m.Name, &m.Line, &handicapType, &handicapHome, &handicapAway, &outcomesRaw, &categoriesRaw, &m.UnavailableAt); err != nil {
			return nil, fmt.Errorf("scan warm market: %w", err)
		}
		if handicapType != nil {
			m.Handicap = &domain.Handicap{Type: domain.HandicapType(*handicapType)}
			if handicapHome != nil {
				m.Handicap.Home = *handicapHome
			}
			if handicapAway != nil {
				m.Handicap.Away = *handicapAway
			}
		}
		outcomes, err := unmarshalOutcomes(outcomesRaw)
		if err != nil {
			return nil, err
		}
		m.Outcomes = outcomes
		categories, err := unmarshalCategories(categoriesRaw)
		if err != nil {
			return nil, err
		}
		m.Categories = categories
		if snap, ok := byID[snapshotID]; ok {
			snap.Markets = append(snap.Markets, m)
		}
	}
	return warmed, rows.Err()
}

// PastAlerts transitions every RiskAlert for an event whose kickoff has
// passed into the "past" status.
func (w *WriterSession) PastAlerts(ctx context.Context, before time.Time) (int64, error) {
	res, err := w.db.ExecContext(ctx, `
		UPDATE risk_alerts SET status = $1
		WHERE status != $1 AND event_kickoff <= $2
	`, string(domain.AlertStatusPast), before)
	if err != nil {
		return 0, fmt.Errorf("sweep past alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
