package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with the in-process store: reads hit memory
// first, writes go through to Redis.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
}

// NewLayeredCache wraps an existing Redis backend with a local layer.
func NewLayeredCache(remote *RedisCache, localMax int) *LayeredCache {
	if localMax <= 0 {
		localMax = 1000
	}
	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxEntries(localMax)),
		remote: remote,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	// Warm the local layer; remote TTL still bounds staleness.
	_ = lc.local.Set(ctx, key, dest, 0)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.local.DeleteByPattern(ctx, pattern)
	return lc.remote.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.remote.Exists(ctx, keys...)
}

// Close releases both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}
