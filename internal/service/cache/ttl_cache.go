package cache

import (
	"sync"
	"time"
)

type item struct {
	value    any
	deadline time.Time // zero means no expiry
}

// TTLCache is a process-local map with per-entry expiry. Expired
// entries are dropped lazily on read.
type TTLCache struct {
	mu    sync.RWMutex
	items map[string]item
}

func NewTTLCache() *TTLCache {
	return &TTLCache{items: make(map[string]item)}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if it.expired(time.Now()) {
		c.mu.Lock()
		// re-check under the write lock; another goroutine may have
		// replaced the entry in the meantime
		if cur, ok := c.items[key]; ok && cur.expired(time.Now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	it := item{value: v}
	if ttl > 0 {
		it.deadline = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
}

func (it item) expired(now time.Time) bool {
	return !it.deadline.IsZero() && now.After(it.deadline)
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}

var _ BytesCache = (*TTLCache)(nil)
