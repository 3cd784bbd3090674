package repository

import (
	"context"
	"time"

	"CANProbe/internal/domain/models"
)

// EngineStream is one live correlation connection. Events returns typed
// engine events in receipt order; both channels close when the stream
// ends for any reason.
type EngineStream interface {
	Connect(ctx context.Context) error
	Start(ctx context.Context, req models.LiveStartRequest) error
	Events(ctx context.Context) (<-chan *models.StreamEvent, <-chan error)
	Stop(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SampleSink archives run artifacts (live OBD samples, accepted
// signals, fuzzed frames) for offline replay. Implementations decide
// the backend; callers treat failures as non-fatal.
type SampleSink interface {
	Archive(ctx context.Context, rec *models.ArchiveRecord) error
}

// SamplePublisher feeds archive records to a fire-and-forget sink.
type SamplePublisher interface {
	Publish(ctx context.Context, rec *models.ArchiveRecord) error
	PublishBatch(ctx context.Context, recs []*models.ArchiveRecord) error
	Close() error
}

// SampleStorage is a queryable archive of run records.
type SampleStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.ArchiveRecord) error
	StoreBatch(ctx context.Context, recs []*models.ArchiveRecord) error
	Query(ctx context.Context, runID string, from, to time.Time, limit int) ([]*models.ArchiveRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// FrameSender forwards a raw frame to the bus through the gateway.
type FrameSender interface {
	SendFrame(ctx context.Context, canID string, payload []byte) error
}

// AnalysisProvider serves per-identifier byte-range analyses, either from
// the live capture observer or from the backend gateway.
type AnalysisProvider interface {
	Analyses(ctx context.Context) ([]models.IDAnalysis, error)
}

type Metrics interface {
	RecordArchived(backend, kind string)
	RecordFrameSent(canID string)
	RecordError(kind string)
	RecordOBDValue(pid string, value float64)
	RecordLatency(op string, seconds float64)
}
