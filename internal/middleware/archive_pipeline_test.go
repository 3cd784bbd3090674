package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
)

type flakySink struct {
	mu    sync.Mutex
	fail  bool
	recs  []*models.ArchiveRecord
	calls int
}

func (s *flakySink) Archive(_ context.Context, rec *models.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("backend down")
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *flakySink) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *flakySink) archived() []*models.ArchiveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ArchiveRecord, len(s.recs))
	copy(out, s.recs)
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordArchived(string, string) {}
func (nopMetrics) RecordFrameSent(string)        {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordOBDValue(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)  {}

func sampleRecord() *models.ArchiveRecord {
	return &models.ArchiveRecord{
		RunID:     "run-1",
		Kind:      models.ArchiveOBDSample,
		PID:       "0C",
		Timestamp: time.Now(),
		Value:     812,
	}
}

func TestArchivePipeline(t *testing.T) {
	t.Parallel()

	t.Run("forwards valid records to the backend", func(t *testing.T) {
		t.Parallel()
		sink := &flakySink{}
		p := NewArchivePipeline(sink, nopMetrics{}, WithMaxRPS(1000))

		require.NoError(t, p.Archive(context.Background(), sampleRecord()))
		recs := sink.archived()
		require.Len(t, recs, 1)
		assert.Equal(t, "run-1", recs[0].RunID)
	})

	t.Run("rejects invalid records before the backend sees them", func(t *testing.T) {
		t.Parallel()
		sink := &flakySink{}
		p := NewArchivePipeline(sink, nopMetrics{})

		assert.Error(t, p.Archive(context.Background(), nil))

		rec := sampleRecord()
		rec.RunID = ""
		assert.Error(t, p.Archive(context.Background(), rec))

		rec = sampleRecord()
		rec.Kind = "telemetry"
		assert.Error(t, p.Archive(context.Background(), rec))

		rec = sampleRecord()
		rec.Timestamp = time.Time{}
		assert.Error(t, p.Archive(context.Background(), rec))

		assert.Empty(t, sink.archived())
	})

	t.Run("throttles bursts of the same kind without error", func(t *testing.T) {
		t.Parallel()
		sink := &flakySink{}
		p := NewArchivePipeline(sink, nopMetrics{}, WithMaxRPS(1))

		require.NoError(t, p.Archive(context.Background(), sampleRecord()))
		// immediate repeat of the same kind is dropped, not failed
		require.NoError(t, p.Archive(context.Background(), sampleRecord()))
		assert.Len(t, sink.archived(), 1)

		// a different kind has its own budget
		acc := sampleRecord()
		acc.Kind = models.ArchiveAccepted
		require.NoError(t, p.Archive(context.Background(), acc))
		assert.Len(t, sink.archived(), 2)
	})

	t.Run("buffers on backend failure and flushes once it recovers", func(t *testing.T) {
		t.Parallel()
		sink := &flakySink{fail: true}
		p := NewArchivePipeline(sink, nopMetrics{}, WithMaxRPS(1000), WithBufferSize(8))
		p.Start(context.Background())
		defer p.Stop()

		err := p.Archive(context.Background(), sampleRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend down")

		sink.setFail(false)
		require.Eventually(t, func() bool {
			return len(sink.archived()) == 1
		}, 3*time.Second, 10*time.Millisecond)
	})

	t.Run("applies the transform hook before archiving", func(t *testing.T) {
		t.Parallel()
		sink := &flakySink{}
		p := NewArchivePipeline(sink, nopMetrics{}, WithMaxRPS(1000), WithTransform(func(rec *models.ArchiveRecord) *models.ArchiveRecord {
			rec.PID = "0D"
			return rec
		}))

		require.NoError(t, p.Archive(context.Background(), sampleRecord()))
		recs := sink.archived()
		require.Len(t, recs, 1)
		assert.Equal(t, "0D", recs[0].PID)
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		t.Parallel()
		p := NewArchivePipeline(&flakySink{}, nopMetrics{})
		p.Start(context.Background())
		p.Start(context.Background())
		p.Stop()
		p.Stop()
	})
}
