package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	pkgcache "CANProbe/pkg/cache"
)

// ServiceCache adapts a pkg/cache Service (redis, memory or layered) to
// the BytesCache API. Values are stored base64-encoded so they survive
// every backend's string path unchanged.
type ServiceCache struct {
	svc pkgcache.Service
}

func NewServiceCache(svc pkgcache.Service) *ServiceCache {
	return &ServiceCache{svc: svc}
}

func (c *ServiceCache) GetBytes(key string) ([]byte, bool, error) {
	var s string
	err := c.svc.Get(context.Background(), key, &s)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *ServiceCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return c.svc.Set(context.Background(), key, base64.StdEncoding.EncodeToString(value), ttl)
}

var _ BytesCache = (*ServiceCache)(nil)
