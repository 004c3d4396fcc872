package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/model"
)

// DefaultStream is the Redis stream events are published to.
const DefaultStream = "promptguard:events"

// XAdder is the subset of the Redis client used by RedisSink.
type XAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisSink publishes each event as a stream entry with a JSON payload.
type RedisSink struct {
	client XAdder
	stream string
	maxLen int64
}

// NewRedisSink wraps an existing client. maxLen > 0 caps the stream length
// approximately.
func NewRedisSink(client XAdder, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// ConnectRedis dials addr and pings it, retrying with exponential backoff.
func ConnectRedis(ctx context.Context, addr, password string, maxRetries int, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              0,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			logger.Info().Dur("backoff", backoff).Msg("waiting before redis retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				client.Close()
				return nil, ctx.Err()
			}
		}
		if err = client.Ping(ctx).Err(); err == nil {
			logger.Info().Str("addr", addr).Int("attempts", i+1).Msg("redis connected")
			return client, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("redis ping failed")
	}
	client.Close()
	return nil, fmt.Errorf("audit: connect redis %s after %d attempts: %w", addr, maxRetries, err)
}

// Name identifies the sink.
func (s *RedisSink) Name() string { return "redis:" + s.stream }

// Write adds ev to the stream.
func (s *RedisSink) Write(ctx context.Context, ev model.SafetyEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":        ev.ID,
			"direction": string(ev.Direction),
			"safe":      ev.Verdict.Valid,
			"payload":   string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
