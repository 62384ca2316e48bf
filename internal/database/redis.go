package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies Redis connectivity from a redis:// URL.
type RedisChecker struct {
	Timeout time.Duration
}

// NewRedisChecker creates a checker with a 5s ping timeout.
func NewRedisChecker() *RedisChecker {
	return &RedisChecker{Timeout: 5 * time.Second}
}

// Ping connects, pings once, and closes the client.
func (r *RedisChecker) Ping(ctx context.Context, rawURL string) error {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.MaxRetries = 1
	opts.DialTimeout = r.Timeout
	opts.ReadTimeout = r.Timeout
	opts.WriteTimeout = r.Timeout

	client := redis.NewClient(opts)
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping to %s failed: %w", opts.Addr, err)
	}
	return nil
}
