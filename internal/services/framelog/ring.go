// Package framelog keeps a bounded ring of recently transmitted frames.
// The fuzzer owns one and hands it to whoever needs the trail; there is
// no ambient global history.
package framelog

import (
	"sync"
	"time"
)

// SentFrame records one transmitted frame.
type SentFrame struct {
	CANID   string    `json:"can_id"`
	Payload string    `json:"payload"` // hex
	SentAt  time.Time `json:"sent_at"`
}

// Ring stores the last N sent frames, overwriting the oldest once full.
// Safe for concurrent use.
type Ring struct {
	mu     sync.Mutex
	frames []SentFrame
	head   int // next write position
	size   int
}

// NewRing creates a ring with the given capacity (minimum 1; a
// non-positive capacity falls back to 256).
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 256
	}
	return &Ring{frames: make([]SentFrame, capacity)}
}

// Add appends a frame, overwriting the oldest entry at capacity.
func (r *Ring) Add(f SentFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[r.head] = f
	r.head = (r.head + 1) % len(r.frames)
	if r.size < len(r.frames) {
		r.size++
	}
}

// Recent returns up to n frames, newest first.
func (r *Ring) Recent(n int) []SentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]SentFrame, n)
	for i := 0; i < n; i++ {
		idx := (r.head - 1 - i + len(r.frames)) % len(r.frames)
		out[i] = r.frames[idx]
	}
	return out
}

// All returns every stored frame, oldest to newest.
func (r *Ring) All() []SentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil
	}
	out := make([]SentFrame, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - r.size + i + len(r.frames)) % len(r.frames)
		out[i] = r.frames[idx]
	}
	return out
}

// Len returns the number of frames currently stored.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Clear drops all stored frames.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.frames {
		r.frames[i] = SentFrame{}
	}
	r.head = 0
	r.size = 0
}
