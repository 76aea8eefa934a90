package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// MappingRepo reads/writes the DB-override half of the market mapping
// cache and the unmapped-market discovery log.
type MappingRepo struct {
	db *sql.DB
}

func NewMappingRepo(db *sql.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

// ActiveMappings loads every active, DB-sourced MarketMapping with its
// outcome list, for merging over the compiled-in defaults at startup
// and on the mapping cache's periodic reload.
func (r *MappingRepo) ActiveMappings(ctx context.Context) ([]domain.MarketMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT canonical_id, name, betpawa_id, sportybet_id, bet9ja_key
		FROM market_mappings WHERE is_active = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("query active mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.MarketMapping
	for rows.Next() {
		var m domain.MarketMapping
		if err := rows.Scan(&m.CanonicalID, &m.Name, &m.BetpawaID, &m.SportyBetID, &m.Bet9jaKey); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		m.Source = domain.MappingSourceDB
		m.Active = true
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range mappings {
		outcomes, err := r.outcomesFor(ctx, mappings[i].CanonicalID)
		if err != nil {
			return nil, err
		}
		mappings[i].OutcomeMappings = outcomes
	}
	return mappings, nil
}

func (r *MappingRepo) outcomesFor(ctx context.Context, canonicalMarketID string) ([]domain.OutcomeMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT canonical_outcome_id, betpawa_name, sportybet_desc, bet9ja_suffix, position
		FROM market_mapping_outcomes WHERE canonical_market_id = $1
		ORDER BY position
	`, canonicalMarketID)
	if err != nil {
		return nil, fmt.Errorf("query mapping outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.OutcomeMapping
	for rows.Next() {
		var o domain.OutcomeMapping
		if err := rows.Scan(&o.CanonicalOutcomeID, &o.BetpawaName, &o.SportyBetDesc, &o.Bet9jaSuffix, &o.Position); err != nil {
			return nil, fmt.Errorf("scan mapping outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// UpsertUnmappedMarketLog records (or bumps the occurrence count of) an
// unrecognized market encountered during scraping.
func (r *MappingRepo) UpsertUnmappedMarketLog(ctx context.Context, source domain.BookmakerSlug, externalID, externalName string, sampleOutcomes []string, seenAt time.Time) error {
	samples, err := marshalCategories(sampleOutcomes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO unmapped_market_logs (source, external_market_id, external_market_name, sample_outcomes, first_seen_at, last_seen_at, occurrence_count, status)
		VALUES ($1, $2, $3, $4, $5, $5, 1, 'new')
		ON CONFLICT (source, external_market_id) DO UPDATE
		SET last_seen_at = EXCLUDED.last_seen_at, occurrence_count = unmapped_market_logs.occurrence_count + 1
	`, string(source), externalID, externalName, samples, seenAt)
	if err != nil {
		return fmt.Errorf("upsert unmapped market log: %w", err)
	}
	return nil
}
