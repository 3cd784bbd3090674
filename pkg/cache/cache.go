// Package cache provides the pluggable key/value store used for
// analysis snapshots: an in-process LRU, a Redis client, or the two
// layered together.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the store API shared by all backends. Values are stored
// as strings or JSON-marshaled objects depending on the backend.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// Key joins a prefix and parameters into one cache key, "prefix:a:b".
func Key(prefix string, params ...interface{}) string {
	k := prefix
	for _, p := range params {
		k = fmt.Sprintf("%s:%v", k, p)
	}
	return k
}
