package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps the event stream length (approximate trimming).
const DefaultStreamMaxLen = 100000

// StreamAdder is the subset of *redis.Client used by RedisStream.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends events to a Redis stream so downstream consumers can
// read them with consumer groups.
type RedisStream struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewRedisStream returns a sink writing to the given stream.
func NewRedisStream(client StreamAdder, stream string) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: DefaultStreamMaxLen}
}

// Notify implements Notifier.
func (r *RedisStream) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":  ev.ID,
			"type":      ev.Type,
			"record_id": ev.RecordID,
			"payload":   string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("adding event to stream %s: %w", r.stream, err)
	}
	return nil
}
