package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

// RedisMirror publishes every ProgressEvent to a per-run Redis Stream,
// one XAdd per event,
// so a second process instance can follow a run's progress without
// sharing this process's memory.
type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func (m *RedisMirror) Publish(ctx context.Context, runID string, ev domain.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	streamKey := fmt.Sprintf("scraperun.progress.%s", runID)
	_, err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"event": string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to stream %s: %w", streamKey, err)
	}
	return nil
}
