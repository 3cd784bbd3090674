package cache

import (
	"context"
	"sync"
	"time"
)

// memEntry is one stored value with its deadline and last access time.
type memEntry struct {
	value    interface{}
	deadline time.Time
	touched  time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return now.After(e.deadline)
}

// MemoryCache is the in-process Service backend: a map with LRU
// eviction at MaxEntries and a background sweep of expired entries.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	max     int
	stop    chan struct{}
}

// defaultMemoryTTL applies when Set is called with a non-positive TTL.
const defaultMemoryTTL = 7 * 24 * time.Hour

// NewMemoryCache creates the in-process store and starts its sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memEntry),
		max:     cfg.MaxEntries,
		stop:    make(chan struct{}),
	}
	go mc.sweep(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	now := time.Now()
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.entries) >= mc.max {
		mc.evictOldest()
	}
	mc.entries[key] = &memEntry{value: value, deadline: now.Add(ttl), touched: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	if e.expired(now) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.touched = now

	if p, ok := dest.(*string); ok {
		if s, ok := e.value.(string); ok {
			*p = s
			return nil
		}
	}
	*dest.(*interface{}) = e.value
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern drops everything; the in-process store does not keep
// a key index worth pattern-matching over.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*memEntry)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// evictOldest removes the least recently touched entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time
	for key, e := range mc.entries {
		if victim == "" || e.touched.Before(oldest) {
			victim = key
			oldest = e.touched
		}
	}
	if victim != "" {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case now := <-ticker.C:
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the sweeper goroutine.
func (mc *MemoryCache) Close() error {
	select {
	case <-mc.stop:
	default:
		close(mc.stop)
	}
	return nil
}
