package store

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// pqInt64Array adapts a []int64 for use as a Postgres bigint[] query
// parameter against ANY($1), per lib/pq's pq.Array helper.
func pqInt64Array(ids []int64) interface{} {
	return pq.Array(ids)
}

// marshalSlugs encodes a []BookmakerSlug as a JSONB array for columns like
// event_scrape_statuses.attempted.
func marshalSlugs(slugs []domain.BookmakerSlug) ([]byte, error) {
	raw := make([]string, len(slugs))
	for i, s := range slugs {
		raw[i] = string(s)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal slugs: %w", err)
	}
	return b, nil
}

// marshalErrorMap encodes a map[BookmakerSlug]string as a JSONB object.
func marshalErrorMap(m map[domain.BookmakerSlug]string) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[string(k)] = v
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal error map: %w", err)
	}
	return b, nil
}

// marshalOutcomes encodes a market's outcome list as JSONB.
func marshalOutcomes(outcomes []domain.Outcome) ([]byte, error) {
	b, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("marshal outcomes: %w", err)
	}
	return b, nil
}

// unmarshalOutcomes decodes a market's outcome list from JSONB.
func unmarshalOutcomes(raw []byte) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	if len(raw) == 0 {
		return outcomes, nil
	}
	if err := json.Unmarshal(raw, &outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	return outcomes, nil
}

// marshalCategories encodes a market's category tags as JSONB.
func marshalCategories(categories []string) ([]byte, error) {
	if categories == nil {
		return nil, nil
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("marshal categories: %w", err)
	}
	return b, nil
}

func unmarshalCategories(raw []byte) ([]string, error) {
	var categories []string
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	return categories, nil
}
