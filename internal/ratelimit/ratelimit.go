// Package ratelimit throttles expensive procedures with Redis keys that expire
// after a cooldown window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pebble:rate_limit:"

// Limiter allows one call per key per window. A Limiter without a client allows everything.
type Limiter struct {
	client *redis.Client
}

// New creates a limiter backed by client. client may be nil.
func New(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Enabled reports whether calls are actually limited.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Allow claims the window for key. When the window is already claimed it
// returns false and the time until it frees up.
func (l *Limiter) Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if !l.Enabled() || window <= 0 {
		return true, 0, nil
	}

	k := keyPrefix + key
	wasSet, err := l.client.SetNX(ctx, k, "locked", window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read rate limit ttl: %w", err)
	}
	// -1 and -2 mean no expiry or already gone
	if ttl <= 0 {
		ttl = window
	}
	return false, ttl, nil
}

// Reset releases the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Del(ctx, keyPrefix+key).Err()
}
