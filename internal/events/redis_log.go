package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventLog appends settlement events to a Redis stream and keeps the
// latest outcome per order in a hash for operator lookups. Settlement never
// reads these back; they exist for dashboards and audit.
type RedisEventLog struct {
	client    RedisPipelineClient
	stream    string
	keyPrefix string
	ttl       time.Duration
	maxLen    int64
}

// RedisPipelineClient is the minimal client surface used by RedisEventLog.
type RedisPipelineClient interface {
	Pipeline() RedisPipeliner
}

// RedisPipeliner is the subset of commands used within a pipeline.
type RedisPipeliner interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Exec(ctx context.Context) ([]redis.Cmder, error)
}

// NewRedisEventLog constructs a Redis-backed settlement event log.
func NewRedisEventLog(client RedisPipelineClient, stream string, ttl time.Duration, maxLen int64) *RedisEventLog {
	if stream == "" {
		stream = "settlement_events"
	}
	return &RedisEventLog{
		client:    client,
		stream:    stream,
		keyPrefix: "settlement:",
		ttl:       ttl,
		maxLen:    maxLen,
	}
}

// Publish writes the latest outcome hash and appends to the stream.
func (r *RedisEventLog) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := r.keyPrefix + ev.OrderID
	at := ev.At.UTC().Format(time.RFC3339Nano)

	fields := map[string]any{
		"event_id":     ev.ID.String(),
		"order_id":     ev.OrderID,
		"reference":    ev.Reference,
		"outcome":      ev.Outcome,
		"amount_minor": ev.AmountMinor,
		"message":      ev.Message,
		"at":           at,
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: fields,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	pipe.XAdd(ctx, args)

	_, err := pipe.Exec(ctx)
	return err
}
