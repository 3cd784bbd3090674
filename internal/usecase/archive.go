package usecase

import (
	"context"
	"fmt"
	"time"

	"CANProbe/internal/domain/models"
	drepo "CANProbe/internal/domain/repository"
)

// ArchiveRouter routes archive records to the configured backend. With
// backend "none" every record is dropped cheaply, so callers can archive
// unconditionally.
type ArchiveRouter struct {
	pub     drepo.SamplePublisher
	store   drepo.SampleStorage
	metrics drepo.Metrics
	backend drepo.Backend
}

// NewArchiveRouter creates a router. pub and store may be nil for
// backends that do not use them.
func NewArchiveRouter(pub drepo.SamplePublisher, store drepo.SampleStorage, metrics drepo.Metrics, backend drepo.Backend) *ArchiveRouter {
	return &ArchiveRouter{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Archive routes a single record.
func (r *ArchiveRouter) Archive(ctx context.Context, rec *models.ArchiveRecord) error {
	if rec == nil {
		return fmt.Errorf("archive record is nil")
	}
	if r.backend == drepo.BackendNone {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case drepo.BackendKafka:
		err = r.pub.Publish(ctx, rec)
	case drepo.BackendClickHouse:
		err = r.store.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown archive backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("archive")
		return fmt.Errorf("archive record: %w", err)
	}

	r.metrics.RecordArchived(string(r.backend), string(rec.Kind))
	r.metrics.RecordLatency("archive", time.Since(start).Seconds())
	return nil
}

// ArchiveBatch routes multiple records in one backend call.
func (r *ArchiveRouter) ArchiveBatch(ctx context.Context, recs []*models.ArchiveRecord) error {
	if len(recs) == 0 || r.backend == drepo.BackendNone {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case drepo.BackendKafka:
		err = r.pub.PublishBatch(ctx, recs)
	case drepo.BackendClickHouse:
		err = r.store.StoreBatch(ctx, recs)
	default:
		err = fmt.Errorf("unknown archive backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("archive_batch")
		return fmt.Errorf("archive batch: %w", err)
	}

	for _, rec := range recs {
		r.metrics.RecordArchived(string(r.backend), string(rec.Kind))
	}
	r.metrics.RecordLatency("archive_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *ArchiveRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}

var _ drepo.SampleSink = (*ArchiveRouter)(nil)
