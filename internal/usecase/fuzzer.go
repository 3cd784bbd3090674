package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
	"CANProbe/internal/services/framelog"
	"CANProbe/internal/services/ranges"
)

// FuzzStatus is a point-in-time view of the fuzz loop.
type FuzzStatus struct {
	Running   bool                 `json:"running"`
	RunID     string               `json:"run_id,omitempty"`
	Sent      int                  `json:"sent"`
	Errors    int                  `json:"errors"`
	LastError string               `json:"last_error,omitempty"`
	IDs       []string             `json:"ids,omitempty"`
	Rate      float64              `json:"rate,omitempty"`
	Ranges    []models.ByteRange   `json:"ranges,omitempty"`
	Recent    []framelog.SentFrame `json:"recent"`
}

// Fuzzer replays randomized frames whose bytes stay inside the observed
// ranges of the selected identifiers. One active run; every sent frame
// lands in the ring and, when archiving is on, in the sink.
type Fuzzer struct {
	provider repository.AnalysisProvider
	sender   repository.FrameSender
	ring     *framelog.Ring
	sink     repository.SampleSink
	metrics  repository.Metrics
	rnd      *rand.Rand

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	runID   string
	sent    int
	errors  int
	lastErr string
	ids     []string
	rate    float64
	ranges  []models.ByteRange
}

// NewFuzzer creates a fuzzer. sink may be nil when archiving is
// disabled.
func NewFuzzer(provider repository.AnalysisProvider, sender repository.FrameSender, ring *framelog.Ring, sink repository.SampleSink, metrics repository.Metrics) *Fuzzer {
	return &Fuzzer{
		provider: provider,
		sender:   sender,
		ring:     ring,
		sink:     sink,
		metrics:  metrics,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start merges the observed ranges of the selected identifiers and
// spawns the send loop. Fails when the selection has no observed bytes.
func (f *Fuzzer) Start(ctx context.Context, req models.FuzzStartRequest) error {
	if f.provider == nil {
		return fmt.Errorf("no analysis source configured")
	}
	if f.sender == nil {
		return fmt.Errorf("gateway not configured")
	}

	ids := make([]string, 0, len(req.IDs))
	seen := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		n := models.NormalizeCANID(id)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no identifiers selected")
	}

	analyses, err := f.provider.Analyses(ctx)
	if err != nil {
		return fmt.Errorf("fetch analyses: %w", err)
	}
	merged := ranges.Merge(analyses, ids)
	if len(merged) == 0 {
		return fmt.Errorf("no observed ranges for %s", strings.Join(ids, ","))
	}

	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return models.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(context.Background())
	runID := uuid.NewString()
	f.running = true
	f.cancel = cancel
	f.done = make(chan struct{})
	f.runID = runID
	f.sent = 0
	f.errors = 0
	f.lastErr = ""
	f.ids = ids
	f.rate = req.Rate
	f.ranges = merged
	f.mu.Unlock()

	go f.loop(runCtx, runID, ids, merged, req.Rate, req.MaxFrames)
	return nil
}

func (f *Fuzzer) loop(ctx context.Context, runID string, ids []string, merged []models.ByteRange, rps float64, maxFrames int) {
	defer f.finish()
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	for n := 0; maxFrames == 0 || n < maxFrames; n++ {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		id := ids[f.rnd.Intn(len(ids))]
		payload := f.randomPayload(merged)
		if err := f.sender.SendFrame(ctx, id, payload); err != nil {
			f.recordError(err)
			f.metrics.RecordError("fuzz_send")
			continue
		}
		hexPayload := strings.ToUpper(hex.EncodeToString(payload))
		f.ring.Add(framelog.SentFrame{CANID: id, Payload: hexPayload, SentAt: time.Now().UTC()})
		f.metrics.RecordFrameSent(id)
		f.recordSent()
		f.archive(ctx, runID, id, hexPayload)
	}
}

// randomPayload draws each merged byte uniformly from its [min,max].
// Bytes below the highest merged index with no range stay zero; the
// frame ends at the highest merged index.
func (f *Fuzzer) randomPayload(merged []models.ByteRange) []byte {
	buf := make([]byte, merged[len(merged)-1].Index+1)
	for _, r := range merged {
		span := r.Max - r.Min + 1
		if span < 1 {
			span = 1
		}
		buf[r.Index] = byte(r.Min + f.rnd.Intn(span))
	}
	return buf
}

// Stop cancels the loop and waits for it to drain, so a status read
// after Stop is settled.
func (f *Fuzzer) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return models.ErrNotRunning
	}
	cancel := f.cancel
	done := f.done
	f.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (f *Fuzzer) finish() {
	f.mu.Lock()
	f.running = false
	f.cancel = nil
	done := f.done
	f.done = nil
	f.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (f *Fuzzer) recordSent() {
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
}

func (f *Fuzzer) recordError(err error) {
	f.mu.Lock()
	f.errors++
	f.lastErr = err.Error()
	f.mu.Unlock()
}

func (f *Fuzzer) archive(ctx context.Context, runID, id, hexPayload string) {
	if f.sink == nil {
		return
	}
	rec := &models.ArchiveRecord{
		RunID:     runID,
		Kind:      models.ArchiveFuzzFrame,
		CANID:     id,
		Timestamp: time.Now().UTC(),
		Payload:   hexPayload,
	}
	if err := f.sink.Archive(ctx, rec); err != nil {
		f.metrics.RecordError("archive")
	}
}

// Status returns a snapshot including the most recent frames.
func (f *Fuzzer) Status() FuzzStatus {
	f.mu.Lock()
	st := FuzzStatus{
		Running:   f.running,
		RunID:     f.runID,
		Sent:      f.sent,
		Errors:    f.errors,
		LastError: f.lastErr,
		IDs:       append([]string(nil), f.ids...),
		Rate:      f.rate,
		Ranges:    append([]models.ByteRange(nil), f.ranges...),
	}
	f.mu.Unlock()
	st.Recent = f.ring.Recent(8)
	return st
}
