package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
	domsvc "CANProbe/internal/domain/service"
	"CANProbe/internal/services/candidates"
)

const minOfflineSamples = 3

// DiscoverySession drives correlation discovery runs against the
// external engine, offline and live. All mutable state is owned by the
// session behind one mutex; reads return snapshots. A terminal state
// (completed, failed, stopped) records the last run's outcome and
// leaves the session available for the next run.
type DiscoverySession struct {
	correlator domsvc.OfflineCorrelator
	dialer     domsvc.StreamDialer
	store      repository.SignalStore
	sink       repository.SampleSink
	metrics    repository.Metrics

	mu          sync.Mutex
	state       models.SessionState
	runID       string
	pid         string
	live        bool
	sampleCount int
	lastValue   float64
	canIDsCount int
	final       bool
	errMsg      string
	result      *models.RunResult
	stream      repository.EngineStream
	cancel      context.CancelFunc

	running *candidates.RunningSet
}

// NewDiscoverySession creates a session. sink may be nil when archiving
// is disabled.
func NewDiscoverySession(correlator domsvc.OfflineCorrelator, dialer domsvc.StreamDialer, store repository.SignalStore, sink repository.SampleSink, metrics repository.Metrics) *DiscoverySession {
	return &DiscoverySession{
		correlator: correlator,
		dialer:     dialer,
		store:      store,
		sink:       sink,
		metrics:    metrics,
		state:      models.StateIdle,
		running:    candidates.NewRunningSet(),
	}
}

func (s *DiscoverySession) activeLocked() bool {
	return s.state == models.StateConfiguring || s.state == models.StateRunning
}

// beginLocked resets per-run state. Results of the previous run stay
// visible until the next run begins.
func (s *DiscoverySession) beginLocked(runID, pid string, live bool) {
	s.state = models.StateConfiguring
	s.runID = runID
	s.pid = pid
	s.live = live
	s.sampleCount = 0
	s.lastValue = 0
	s.canIDsCount = 0
	s.final = false
	s.errMsg = ""
	s.result = nil
	s.running.Reset()
}

// RunOffline issues one batch correlation request. The engine's error
// text reaches the caller unmodified; there is no automatic retry.
func (s *DiscoverySession) RunOffline(ctx context.Context, req models.OfflineDiscoveryRequest) (*models.RunResult, error) {
	s.mu.Lock()
	if s.activeLocked() {
		s.mu.Unlock()
		return nil, models.ErrAlreadyRunning
	}
	if len(req.Samples) < minOfflineSamples {
		s.mu.Unlock()
		return nil, models.ErrInsufficientSamples
	}
	runID := uuid.NewString()
	s.beginLocked(runID, req.PID, false)
	s.state = models.StateRunning
	s.mu.Unlock()

	start := time.Now()
	res, err := s.correlator.Run(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = models.StateFailed
		s.errMsg = err.Error()
		s.metrics.RecordError("offline_run")
		return nil, err
	}
	s.state = models.StateCompleted
	s.result = res
	s.final = true
	s.running.Apply(res.Candidates, true)
	s.metrics.RecordLatency("offline_run", time.Since(start).Seconds())
	return res, nil
}

// StartLive opens the engine stream, sends the start command and spawns
// the event pump. Returns the run ID once the run is live; the pump
// outlives the caller's request context.
func (s *DiscoverySession) StartLive(ctx context.Context, req models.LiveStartRequest) (string, error) {
	s.mu.Lock()
	if s.activeLocked() {
		s.mu.Unlock()
		return "", models.ErrAlreadyRunning
	}
	runID := uuid.NewString()
	s.beginLocked(runID, req.PID, true)
	s.mu.Unlock()

	stream, err := s.dialer.Dial(ctx)
	if err != nil {
		s.failConfiguring(err)
		return "", err
	}
	if err := stream.Start(ctx, req); err != nil {
		_ = stream.Close()
		s.failConfiguring(err)
		return "", err
	}

	// The run must survive the caller's request context.
	pumpCtx, cancel := context.WithCancel(context.Background())
	events, errs := stream.Events(pumpCtx)

	s.mu.Lock()
	s.state = models.StateRunning
	s.stream = stream
	s.cancel = cancel
	s.mu.Unlock()

	go s.pump(pumpCtx, runID, req.PID, events, errs)
	return runID, nil
}

func (s *DiscoverySession) failConfiguring(err error) {
	s.mu.Lock()
	s.state = models.StateFailed
	s.errMsg = err.Error()
	s.mu.Unlock()
	s.metrics.RecordError("live_start")
}

// pump applies events in receipt order. It exits on the final batch, an
// error event, a transport error, or cancellation.
func (s *DiscoverySession) pump(ctx context.Context, runID, pid string, events <-chan *models.StreamEvent, errs <-chan error) {
	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			if s.endRun(runID, models.StateFailed, err.Error()) {
				s.metrics.RecordError("live_run")
			}
			return
		case ev, ok := <-events:
			if !ok {
				if s.endRun(runID, models.StateFailed, "engine stream ended before final update") {
					s.metrics.RecordError("live_run")
				}
				return
			}
			if done := s.apply(ctx, runID, pid, ev); done {
				return
			}
		}
	}
}

// apply folds one event into the session. Returns true when the run is
// over and the pump should exit.
func (s *DiscoverySession) apply(ctx context.Context, runID, pid string, ev *models.StreamEvent) bool {
	switch ev.Type {
	case models.EventOBDSample:
		s.mu.Lock()
		if s.runID != runID || s.state != models.StateRunning {
			s.mu.Unlock()
			return true
		}
		s.sampleCount = ev.SampleCount
		s.lastValue = ev.Value
		s.mu.Unlock()
		s.metrics.RecordOBDValue(pid, ev.Value)
		s.archive(ctx, &models.ArchiveRecord{
			RunID:     runID,
			Kind:      models.ArchiveOBDSample,
			PID:       pid,
			Timestamp: time.Now().UTC(),
			Value:     ev.Value,
		})
		return false

	case models.EventCorrelationUpdate:
		s.mu.Lock()
		if s.runID != runID || s.state != models.StateRunning || s.final {
			s.mu.Unlock()
			return true
		}
		// The engine's latest batch is authoritative.
		s.running.Apply(ev.Candidates, true)
		s.canIDsCount = ev.CANIDsCount
		if ev.Final {
			s.final = true
		}
		s.mu.Unlock()
		if ev.Final {
			s.endRun(runID, models.StateCompleted, "")
			return true
		}
		return false

	case models.EventError:
		if s.endRun(runID, models.StateFailed, ev.Message) {
			s.metrics.RecordError("engine")
		}
		return true
	}
	return false
}

// endRun moves a running session to a terminal state, cancels the pump
// and closes the stream. Only the run that is still current may end;
// late calls lose the race and report false.
func (s *DiscoverySession) endRun(runID string, end models.SessionState, errMsg string) bool {
	s.mu.Lock()
	if s.runID != runID || s.state != models.StateRunning {
		s.mu.Unlock()
		return false
	}
	s.state = end
	s.errMsg = errMsg
	stream := s.stream
	cancel := s.cancel
	s.stream = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
	return true
}

// Stop ends the live run. The stop command is best effort: a lost ack
// or dead connection still stops the run locally. Stopping a session
// with no live run is a no-op.
func (s *DiscoverySession) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.live || s.state != models.StateRunning {
		s.mu.Unlock()
		return nil
	}
	runID := s.runID
	stream := s.stream
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Stop(ctx)
	}
	s.endRun(runID, models.StateStopped, "")
	return nil
}

// Status returns an immutable snapshot. Candidates come back ranked.
func (s *DiscoverySession) Status() models.SessionStatus {
	s.mu.Lock()
	st := models.SessionStatus{
		State:       s.state,
		RunID:       s.runID,
		PID:         s.pid,
		Live:        s.live,
		SampleCount: s.sampleCount,
		LastValue:   s.lastValue,
		CANIDsCount: s.canIDsCount,
		Final:       s.final,
		Error:       s.errMsg,
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	s.mu.Unlock()
	st.Candidates = s.running.Snapshot()
	return st
}

// Accept derives a signal from the candidate at index of the current
// ranked snapshot and persists it. name overrides the derived default.
func (s *DiscoverySession) Accept(ctx context.Context, req models.AcceptCandidateRequest) (*models.Signal, error) {
	snap := s.running.Snapshot()
	if req.Index < 0 || req.Index >= len(snap) {
		return nil, fmt.Errorf("%w: index %d (have %d)", models.ErrCandidateIndex, req.Index, len(snap))
	}
	s.mu.Lock()
	pid := s.pid
	runID := s.runID
	s.mu.Unlock()

	c := snap[req.Index]
	sig := candidates.DeriveSignal(&c, pid, req.Name)
	id, err := s.store.Add(ctx, &sig)
	if err != nil {
		return nil, fmt.Errorf("persist accepted signal: %w", err)
	}
	sig.ID = id

	s.archive(ctx, &models.ArchiveRecord{
		RunID:     runID,
		Kind:      models.ArchiveAccepted,
		PID:       pid,
		CANID:     c.CANID,
		Timestamp: time.Now().UTC(),
	})
	return &sig, nil
}

func (s *DiscoverySession) archive(ctx context.Context, rec *models.ArchiveRecord) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Archive(ctx, rec); err != nil {
		s.metrics.RecordError("archive")
	}
}
