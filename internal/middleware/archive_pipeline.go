package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
)

// Sink is the minimal downstream interface the pipeline needs.
type Sink interface {
	Archive(ctx context.Context, rec *models.ArchiveRecord) error
}

// ArchivePipeline is a middleware between run event sources and the archive
// backend. It validates, throttles per record kind, optionally transforms,
// and buffers when the backend is unavailable.
type ArchivePipeline struct {
	sink     Sink
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.ArchiveRecord
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[models.ArchiveKind]time.Time // per-kind last accepted time
	// record rewrite hook (optional)
	transform func(*models.ArchiveRecord) *models.ArchiveRecord
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(models.ArchiveKind)
}

type PipelineOption func(*ArchivePipeline)

// WithMaxRPS sets the max records per second per kind.
func WithMaxRPS(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when the backend is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a rewrite hook applied before archiving.
func WithTransform(fn func(*models.ArchiveRecord) *models.ArchiveRecord) PipelineOption {
	return func(p *ArchivePipeline) { p.transform = fn }
}

// NewArchivePipeline creates a new pipeline.
func NewArchivePipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   50,   // default throttle per kind
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.ArchiveRecord, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[models.ArchiveKind]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.ArchiveRecord, p.bufSize)
	}
	// metrics hooks using domain metrics if available
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(kind models.ArchiveKind) { p.metrics.RecordError("pipeline_throttle_" + string(kind)) }
	return p
}

// Start launches background flushing of buffered records.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if err := p.sink.Archive(ctx, rec); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ArchivePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Archive validates, throttles, and forwards a record to the backend,
// buffering on errors.
func (p *ArchivePipeline) Archive(ctx context.Context, rec *models.ArchiveRecord) error {
	start := time.Now()
	if err := validateRecord(rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		rec = p.transform(rec)
		if err := validateRecord(rec); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(rec.Kind, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(rec.Kind)
		}
		return nil
	}

	if err := p.sink.Archive(ctx, rec); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- rec:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline backend: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateRecord(rec *models.ArchiveRecord) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	if rec.RunID == "" {
		return fmt.Errorf("run id empty")
	}
	switch rec.Kind {
	case models.ArchiveOBDSample, models.ArchiveAccepted, models.ArchiveFuzzFrame:
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("timestamp unset")
	}
	return nil
}

func (p *ArchivePipeline) allow(kind models.ArchiveKind, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// simple throttle: at most maxRPS per second per kind
	last := p.lastSeen[kind]
	if last.IsZero() {
		p.lastSeen[kind] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[kind] = now
	return true
}

var _ domrepo.SampleSink = (*ArchivePipeline)(nil)
