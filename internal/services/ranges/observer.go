package ranges

import (
	"context"
	"encoding/hex"
	"math/bits"
	"sort"
	"strings"
	"sync"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
)

const defaultMaxSamples = 16

// bitset256 tracks which of the 256 byte values were observed.
type bitset256 [4]uint64

func (b *bitset256) set(v byte) {
	b[v>>6] |= 1 << (v & 63)
}

func (b *bitset256) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

type byteStats struct {
	seen     bool
	min, max int
	distinct bitset256
}

type idStats struct {
	count   int
	samples []string
	bytes   [8]byteStats
}

// Observer builds per-identifier byte statistics from raw frames. It is
// the live counterpart of the backend-supplied analyses and feeds the
// same Merge. Safe for concurrent use.
type Observer struct {
	mu         sync.RWMutex
	maxSamples int
	ids        map[string]*idStats
}

type ObserverOption func(*Observer)

// WithMaxSamples bounds how many example payloads are retained per id.
func WithMaxSamples(n int) ObserverOption {
	return func(o *Observer) {
		if n >= 0 {
			o.maxSamples = n
		}
	}
}

func NewObserver(opts ...ObserverOption) *Observer {
	o := &Observer{
		maxSamples: defaultMaxSamples,
		ids:        make(map[string]*idStats),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe folds one frame into the statistics. Payload bytes past the
// eighth are ignored (classic CAN payloads are at most 8 bytes).
func (o *Observer) Observe(canID string, payload []byte) {
	canID = models.NormalizeCANID(canID)
	if canID == "" {
		return
	}
	if len(payload) > 8 {
		payload = payload[:8]
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.ids[canID]
	if !ok {
		st = &idStats{}
		o.ids[canID] = st
	}
	st.count++
	if len(st.samples) < o.maxSamples {
		st.samples = append(st.samples, strings.ToUpper(hex.EncodeToString(payload)))
	}
	for i, v := range payload {
		bs := &st.bytes[i]
		if !bs.seen {
			bs.seen = true
			bs.min = int(v)
			bs.max = int(v)
		} else {
			if int(v) < bs.min {
				bs.min = int(v)
			}
			if int(v) > bs.max {
				bs.max = int(v)
			}
		}
		bs.distinct.set(v)
	}
}

// Analyses snapshots the current statistics, sorted by identifier.
func (o *Observer) Analyses(ctx context.Context) ([]models.IDAnalysis, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.IDAnalysis, 0, len(o.ids))
	for id, st := range o.ids {
		a := models.IDAnalysis{
			CANID:       id,
			Count:       st.count,
			SampleCount: len(st.samples),
			Samples:     append([]string(nil), st.samples...),
		}
		for i := range st.bytes {
			bs := &st.bytes[i]
			if !bs.seen {
				continue
			}
			a.ByteRanges = append(a.ByteRanges, models.ByteRange{
				Index:  i,
				Min:    bs.min,
				Max:    bs.max,
				Unique: bs.distinct.count(),
			})
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CANID < out[j].CANID })
	return out, nil
}

// IDs lists observed identifiers, sorted.
func (o *Observer) IDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.ids))
	for id := range o.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset drops all accumulated statistics.
func (o *Observer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = make(map[string]*idStats)
}

var _ repository.AnalysisProvider = (*Observer)(nil)
