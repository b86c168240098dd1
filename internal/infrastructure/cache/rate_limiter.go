package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request limit per key. Used by the
// unauthenticated demo endpoint to throttle by client IP.
type RateLimiter interface {
	// Allow increments the counter for key and reports whether the request
	// is within the limit for the current window.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// RedisRateLimiter implements RateLimiter with INCR + EXPIRE
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateLimiter creates a rate limiter with an existing client
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: "ratelimit:",
	}
}

// Allow implements RateLimiter
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	redisKey := l.keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First hit in the window sets the expiry
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= limit, nil
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

type rateWindow struct {
	count     int64
	expiresAt time.Time
}

// InMemoryRateLimiter implements RateLimiter for tests and single-process
// deployments without Redis
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
}

// NewInMemoryRateLimiter creates an empty in-memory rate limiter
func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{windows: make(map[string]*rateWindow)}
}

// Allow implements RateLimiter
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &rateWindow{count: 1, expiresAt: now.Add(window)}
		return limit >= 1, nil
	}

	w.count++
	return w.count <= limit, nil
}

var _ RateLimiter = (*InMemoryRateLimiter)(nil)
