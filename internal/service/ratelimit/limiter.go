// Package ratelimit provides a keyed token-bucket limiter for
// per-caller throttling of expensive endpoints.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

type Limiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
}

func New() *Limiter { return &Limiter{m: make(map[string]*rate.Limiter)} }

// Allow consumes one token for key, creating a bucket with the given
// burst and refill rate on first use. Later calls keep the bucket's
// original parameters.
func (l *Limiter) Allow(key string, burst int, refillPerSec float64) bool {
	l.mu.Lock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(refillPerSec), burst)
		l.m[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
