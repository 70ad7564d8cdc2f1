package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisRunHistory = 100

// RedisSink stores the report JSON under <prefix>:run:<run id> and keeps the
// most recent run ids in the list <prefix>:runs.
type RedisSink struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisSink(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient creates the client for the --redis-addr option.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisSink) Name() string {
	return "redis:" + s.prefix
}

func (s *RedisSink) RunKey(runID string) string {
	return s.prefix + ":run:" + runID
}

func (s *RedisSink) ListKey() string {
	return s.prefix + ":runs"
}

func (s *RedisSink) Publish(ctx context.Context, report Report) error {
	data, err := MarshalReport(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = s.client.Set(ctx, s.RunKey(report.RunID), string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	if err = s.client.LPush(ctx, s.ListKey(), report.RunID).Err(); err != nil {
		return fmt.Errorf("index report: %w", err)
	}

	if err = s.client.LTrim(ctx, s.ListKey(), 0, redisRunHistory-1).Err(); err != nil {
		return fmt.Errorf("trim report index: %w", err)
	}

	return nil
}
