package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UsageCache holds short-lived snapshots of a tenant's current-period usage
// count so quota checks don't hit the database on every request. Entries are
// invalidated whenever new usage is recorded, so a stale snapshot can only
// survive until the next billable call.
type UsageCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, count int64, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// RedisUsageCache implements UsageCache on Redis
type RedisUsageCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisUsageCache creates a usage cache with an existing client
func NewRedisUsageCache(client *redis.Client) *RedisUsageCache {
	return &RedisUsageCache{
		client:    client,
		keyPrefix: "usage:count:",
	}
}

// Get returns the cached count for a tenant, if present
func (c *RedisUsageCache) Get(ctx context.Context, tenantID uuid.UUID) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+tenantID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read usage cache: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // corrupt entry, treat as a miss
	}
	return count, true, nil
}

// Set stores a usage snapshot with a TTL
func (c *RedisUsageCache) Set(ctx context.Context, tenantID uuid.UUID, count int64, ttl time.Duration) error {
	return c.client.Set(ctx, c.keyPrefix+tenantID.String(), count, ttl).Err()
}

// Invalidate drops a tenant's cached count
func (c *RedisUsageCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.client.Del(ctx, c.keyPrefix+tenantID.String()).Err()
}

var _ UsageCache = (*RedisUsageCache)(nil)

type usageEntry struct {
	count     int64
	expiresAt time.Time
}

// InMemoryUsageCache implements UsageCache for tests and single-process
// deployments without Redis
type InMemoryUsageCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]usageEntry
}

// NewInMemoryUsageCache creates an empty in-memory usage cache
func NewInMemoryUsageCache() *InMemoryUsageCache {
	return &InMemoryUsageCache{entries: make(map[uuid.UUID]usageEntry)}
}

// Get returns the cached count for a tenant, if present
func (c *InMemoryUsageCache) Get(_ context.Context, tenantID uuid.UUID) (int64, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false, nil
	}
	return entry.count, true, nil
}

// Set stores a usage snapshot with a TTL
func (c *InMemoryUsageCache) Set(_ context.Context, tenantID uuid.UUID, count int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = usageEntry{count: count, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Invalidate drops a tenant's cached count
func (c *InMemoryUsageCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

var _ UsageCache = (*InMemoryUsageCache)(nil)
