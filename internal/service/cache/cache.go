// Package cache holds the byte-oriented cache used for chart snapshots
// and gateway responses, with both a process-local and a pkg/cache
// backed implementation.
package cache

import "time"

// BytesCache stores opaque byte payloads under string keys with TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
