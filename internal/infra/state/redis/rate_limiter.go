package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter counts requests per key in fixed windows backed by Redis, so
// the limit holds across instances.
type RateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimiter creates a RateLimiter. An empty keyPrefix defaults to
// "collab:".
func NewRateLimiter(client *redis.Client, keyPrefix string) *RateLimiter {
	if client == nil {
		panic("redis client cannot be nil for RateLimiter")
	}
	if keyPrefix == "" {
		keyPrefix = "collab:"
	}
	return &RateLimiter{client: client, keyPrefix: keyPrefix}
}

// Allow increments the counter for key and reports whether the count is
// still within limit for the window. The counter expires with the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.keyPrefix + "ratelimit:" + key
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit check on %s: %w", fullKey, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit count on %s: %w", fullKey, err)
	}
	return count <= int64(limit), nil
}
