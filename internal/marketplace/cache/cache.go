// Package cache provides a short-TTL Redis cache for marketplace listing
// pages. Correctness never depends on it: lock and purchase arbitration
// happen in the database, so a briefly stale page only costs a partner a
// rejected acquire.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached payload for the key, if present. Redis failures
// are reported as a miss; the caller falls through to the database.
func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *ListingCache) Set(ctx context.Context, key string, payload []byte) {
	c.rdb.Set(ctx, key, payload, c.ttl)
}

// Invalidate drops all listing pages. Called after any write that changes
// marketplace visibility.
func (c *ListingCache) Invalidate(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, "marketplace:listing:*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.rdb.Del(ctx, keys...)
	}
}
