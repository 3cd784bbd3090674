package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	"CANProbe/internal/services/codec"
	"CANProbe/internal/services/framelog"
	"CANProbe/internal/usecase"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func newTestEcho(handlers ...xhttp.Handler) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

// envelope mirrors the API response wrapper; the semantic status lives
// inside the body.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec, env
}

// fakeSignalStore is an in-memory SignalStore for handler tests.
type fakeSignalStore struct {
	mu     sync.Mutex
	nextID int64
	sigs   map[int64]models.Signal
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{nextID: 1, sigs: map[int64]models.Signal{}}
}

func (s *fakeSignalStore) Add(_ context.Context, sig *models.Signal) (int64, error) {
	if err := sig.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	cp := *sig
	cp.ID = id
	cp.CANID = models.NormalizeCANID(cp.CANID)
	s.sigs[id] = cp
	return id, nil
}

func (s *fakeSignalStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sigs[id]; !ok {
		return fmt.Errorf("signal %d: %w", id, sql.ErrNoRows)
	}
	delete(s.sigs, id)
	return nil
}

func (s *fakeSignalStore) Get(_ context.Context, id int64) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.sigs[id]
	if !ok {
		return nil, fmt.Errorf("signal %d: %w", id, sql.ErrNoRows)
	}
	return &sig, nil
}

func (s *fakeSignalStore) List(_ context.Context) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Signal, 0, len(s.sigs))
	for _, sig := range s.sigs {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CANID != out[j].CANID {
			return out[i].CANID < out[j].CANID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *fakeSignalStore) Messages(ctx context.Context) ([]models.Message, error) {
	sigs, _ := s.List(ctx)
	var out []models.Message
	for _, sig := range sigs {
		if n := len(out); n > 0 && out[n-1].CANID == sig.CANID {
			out[n-1].Signals = append(out[n-1].Signals, sig)
			if need := codec.RequiredBytes(&sig); need > out[n-1].Size {
				out[n-1].Size = need
			}
			continue
		}
		out = append(out, models.Message{
			CANID:   sig.CANID,
			Size:    codec.RequiredBytes(&sig),
			Signals: []models.Signal{sig},
		})
	}
	return out, nil
}

func (s *fakeSignalStore) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordArchived(string, string)  {}
func (nopMetrics) RecordFrameSent(string)         {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordOBDValue(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)  {}

func TestSignalsAPI(t *testing.T) {
	t.Parallel()

	speedReq := map[string]any{
		"can_id": "0x1a0", "name": "VehicleSpeed",
		"start_bit": 7, "length": 16, "byte_order": "big_endian",
		"scale": 0.01, "unit": "km/h",
	}

	t.Run("create, list, delete", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))

		rec, env := doJSON(t, e, http.MethodPost, "/api/signals", speedReq)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, http.StatusCreated, env.Status)
		var created models.Signal
		require.NoError(t, json.Unmarshal(env.Data, &created))
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, "1A0", created.CANID, "identifier canonicalized")

		_, env = doJSON(t, e, http.MethodGet, "/api/signals", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var list struct {
			Rows  []models.Signal `json:"rows"`
			Total int64           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &list))
		assert.Equal(t, int64(1), list.Total)
		require.Len(t, list.Rows, 1)
		assert.Equal(t, "VehicleSpeed", list.Rows[0].Name)

		rec, _ = doJSON(t, e, http.MethodDelete, "/api/signals/1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("delete missing signal is 404", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		_, env := doJSON(t, e, http.MethodDelete, "/api/signals/42", nil)
		assert.Equal(t, http.StatusNotFound, env.Status)
	})

	t.Run("create rejects bad byte order", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		bad := map[string]any{"can_id": "1A0", "name": "X", "length": 8, "byte_order": "middle_endian"}
		_, env := doJSON(t, e, http.MethodPost, "/api/signals", bad)
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("decode inline big endian", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		body := map[string]any{"signal": speedReq, "frame": "0x1234"}
		_, env := doJSON(t, e, http.MethodPost, "/api/decode", body)
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)
		var res decodeResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, uint64(0x1234), res.Raw)
		assert.InDelta(t, 46.60, res.Value, 1e-9)
		assert.Equal(t, "km/h", res.Unit)
	})

	t.Run("decode stored signal by id", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/signals", speedReq)
		require.Equal(t, http.StatusCreated, env.Status)

		_, env = doJSON(t, e, http.MethodPost, "/api/decode", map[string]any{"signal_id": 1, "frame": "1234"})
		require.Equal(t, http.StatusOK, env.Status)
		var res decodeResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "VehicleSpeed", res.Name)
		assert.InDelta(t, 46.60, res.Value, 1e-9)
	})

	t.Run("decode short frame is 400", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		body := map[string]any{"signal": speedReq, "frame": "12"}
		_, env := doJSON(t, e, http.MethodPost, "/api/decode", body)
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("decode without signal reference is 400", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/decode", map[string]any{"frame": "1234"})
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("encode round trips decode", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/encode", map[string]any{"signal": speedReq, "value": 46.60})
		require.Equal(t, http.StatusOK, env.Status)
		var res encodeResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 2, res.Bytes)
		assert.True(t, strings.HasPrefix(res.Frame, "1234"), "frame: %s", res.Frame)
	})

	t.Run("encode zero scale is 400", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		bad := map[string]any{"can_id": "1A0", "name": "X", "length": 8, "byte_order": "little_endian", "scale": 0}
		_, env := doJSON(t, e, http.MethodPost, "/api/encode", map[string]any{"signal": bad, "value": 10})
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("dbc export is downloadable", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSignalsHandler(newFakeSignalStore(), testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/signals", speedReq)
		require.Equal(t, http.StatusCreated, env.Status)

		req := httptest.NewRequest(http.MethodGet, "/api/signals/export.dbc", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "signals.dbc")
		assert.Contains(t, rec.Body.String(), "BO_ 416 ")
		assert.Contains(t, rec.Body.String(), "SG_ VehicleSpeed")
	})
}

type stubCorrelator struct {
	res *models.RunResult
	err error
}

func (s *stubCorrelator) Run(context.Context, models.OfflineDiscoveryRequest) (*models.RunResult, error) {
	return s.res, s.err
}

type stubDialer struct{}

func (stubDialer) Dial(context.Context) (domrepo.EngineStream, error) {
	return nil, fmt.Errorf("engine unreachable")
}

func discoveryFixture() *models.RunResult {
	return &models.RunResult{
		Candidates: []models.Candidate{{
			CANID: "1A0", Model: "affine_v1", ModelType: models.TwoByteBE,
			ByteIndex: 3, ByteEnd: 4, Pearson: 0.97, Spearman: 0.95,
			Confidence: 0.96, Scale: 0.25, NSamples: 0,
		}},
		TotalIDsAnalyzed:     12,
		TotalFramesProcessed: 4810,
		ElapsedMS:            87.5,
	}
}

func newDiscoveryEcho(t *testing.T, correlator *stubCorrelator) (*echo.Echo, *usecase.DiscoverySession) {
	t.Helper()
	session := usecase.NewDiscoverySession(correlator, stubDialer{}, newFakeSignalStore(), nil, nopMetrics{})
	return newTestEcho(NewDiscoveryHandler(session, testLogger(t))), session
}

func TestDiscoveryAPI(t *testing.T) {
	t.Parallel()

	samples := []map[string]any{
		{"timestamp": 1000, "value": 800},
		{"timestamp": 1200, "value": 950},
		{"timestamp": 1400, "value": 1210},
	}

	t.Run("offline run returns ranked candidates", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/offline",
			map[string]any{"pid": "0C", "samples": samples})
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)
		var res models.RunResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, "1A0", res.Candidates[0].CANID)
	})

	t.Run("too few samples is 400", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/offline",
			map[string]any{"pid": "0C", "samples": samples[:2]})
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("engine error passes through verbatim", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{err: &models.EngineError{Message: "PID 0C not supported by vehicle"}})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/offline",
			map[string]any{"pid": "0C", "samples": samples})
		assert.Equal(t, http.StatusBadGateway, env.Status)
		assert.Contains(t, string(env.Data), "PID 0C not supported by vehicle")
	})

	t.Run("status reflects completed run", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/offline",
			map[string]any{"pid": "0C", "samples": samples})
		require.Equal(t, http.StatusOK, env.Status)

		_, env = doJSON(t, e, http.MethodGet, "/api/discovery/status", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var st models.SessionStatus
		require.NoError(t, json.Unmarshal(env.Data, &st))
		assert.Equal(t, models.StateCompleted, st.State)
		assert.Len(t, st.Candidates, 1)
	})

	t.Run("accept persists the candidate", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/offline",
			map[string]any{"pid": "0C", "samples": samples})
		require.Equal(t, http.StatusOK, env.Status)

		_, env = doJSON(t, e, http.MethodPost, "/api/discovery/accept",
			map[string]any{"index": 0, "name": "EngineSpeed"})
		require.Equal(t, http.StatusCreated, env.Status, "data: %s", env.Data)
		var sig models.Signal
		require.NoError(t, json.Unmarshal(env.Data, &sig))
		assert.Equal(t, "EngineSpeed", sig.Name)
		assert.Equal(t, "1A0", sig.CANID)
		assert.NotZero(t, sig.ID)
	})

	t.Run("accept with no candidates is 400", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/accept", map[string]any{"index": 0})
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("import parses raw body", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		body := "1000,800\n1200,950\nnot,a,number\n1400;1210\n"
		req := httptest.NewRequest(http.MethodPost, "/api/discovery/import", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)
		var res importResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 3, res.Summary.Count)
		assert.Len(t, res.Samples, 3)
	})

	t.Run("import accepts multipart file", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "samples.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte("1000\t800\n1200\t950\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/discovery/import", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, http.StatusOK, env.Status)
		var res importResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 2, res.Summary.Count)
	})

	t.Run("import with no usable rows is 400", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		req := httptest.NewRequest(http.MethodPost, "/api/discovery/import", strings.NewReader("garbage\n"))
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("live stop without a live run is a no-op", func(t *testing.T) {
		t.Parallel()
		e, _ := newDiscoveryEcho(t, &stubCorrelator{res: discoveryFixture()})
		_, env := doJSON(t, e, http.MethodPost, "/api/discovery/live/stop", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var st models.SessionStatus
		require.NoError(t, json.Unmarshal(env.Data, &st))
		assert.Equal(t, models.StateIdle, st.State)
	})
}

type staticProvider struct {
	analyses []models.IDAnalysis
}

func (p *staticProvider) Analyses(context.Context) ([]models.IDAnalysis, error) {
	return p.analyses, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent int
}

func (s *recordingSender) SendFrame(context.Context, string, []byte) error {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func fuzzAnalyses() []models.IDAnalysis {
	return []models.IDAnalysis{{
		CANID: "1A0", Count: 100, SampleCount: 2, Samples: []string{"10", "20"},
		ByteRanges: []models.ByteRange{{Index: 0, Min: 0x10, Max: 0x20, Unique: 5}},
	}}
}

func TestFuzzAPI(t *testing.T) {
	t.Parallel()

	t.Run("start runs to max frames", func(t *testing.T) {
		t.Parallel()
		sender := &recordingSender{}
		fz := usecase.NewFuzzer(&staticProvider{analyses: fuzzAnalyses()}, sender, framelog.NewRing(16), nil, nopMetrics{})
		e := newTestEcho(NewFuzzHandler(fz, testLogger(t)))

		_, env := doJSON(t, e, http.MethodPost, "/api/fuzz/start",
			map[string]any{"ids": []string{"1A0"}, "rate": 500, "max_frames": 3})
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)

		require.Eventually(t, func() bool {
			return sender.count() == 3 && !fz.Status().Running
		}, 3*time.Second, 10*time.Millisecond)

		_, env = doJSON(t, e, http.MethodGet, "/api/fuzz/status", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var st usecase.FuzzStatus
		require.NoError(t, json.Unmarshal(env.Data, &st))
		assert.Equal(t, 3, st.Sent)
		assert.False(t, st.Running)
		assert.Len(t, st.Recent, 3)
	})

	t.Run("stop without a run is 409", func(t *testing.T) {
		t.Parallel()
		fz := usecase.NewFuzzer(&staticProvider{analyses: fuzzAnalyses()}, &recordingSender{}, framelog.NewRing(16), nil, nopMetrics{})
		e := newTestEcho(NewFuzzHandler(fz, testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/fuzz/stop", nil)
		assert.Equal(t, http.StatusConflict, env.Status)
	})

	t.Run("unknown selection is 400", func(t *testing.T) {
		t.Parallel()
		fz := usecase.NewFuzzer(&staticProvider{analyses: fuzzAnalyses()}, &recordingSender{}, framelog.NewRing(16), nil, nopMetrics{})
		e := newTestEcho(NewFuzzHandler(fz, testLogger(t)))
		_, env := doJSON(t, e, http.MethodPost, "/api/fuzz/start",
			map[string]any{"ids": []string{"7FF"}, "rate": 10})
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})
}

type fakeStorage struct {
	recs []*models.ArchiveRecord
}

func (f *fakeStorage) Init(context.Context) error                          { return nil }
func (f *fakeStorage) Store(context.Context, *models.ArchiveRecord) error  { return nil }
func (f *fakeStorage) StoreBatch(context.Context, []*models.ArchiveRecord) error {
	return nil
}
func (f *fakeStorage) Query(_ context.Context, runID string, _, _ time.Time, _ int) ([]*models.ArchiveRecord, error) {
	var out []*models.ArchiveRecord
	for _, r := range f.recs {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeStorage) Health(context.Context) error { return nil }
func (f *fakeStorage) Close() error                 { return nil }

func TestRangesAPI(t *testing.T) {
	t.Parallel()

	provider := &staticProvider{analyses: []models.IDAnalysis{
		{CANID: "1A0", Count: 10, ByteRanges: []models.ByteRange{
			{Index: 0, Min: 0x20, Max: 0x40, Unique: 5},
			{Index: 2, Min: 0x00, Max: 0x01, Unique: 2},
		}},
		{CANID: "2B0", Count: 4, ByteRanges: []models.ByteRange{
			{Index: 0, Min: 0x10, Max: 0x30, Unique: 2},
		}},
	}}

	newHandler := func(t *testing.T, store domrepo.SampleStorage) *echo.Echo {
		rangesUC := usecase.NewRangesUseCase(provider, nil, nil, 0)
		historyUC := usecase.NewHistoryUseCase(store)
		return newTestEcho(NewRangesHandler(rangesUC, historyUC, testLogger(t)))
	}

	t.Run("merged ranges for selection", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet, "/api/ranges?ids=1A0,2B0&source=live", nil)
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)
		var rep models.RangesReport
		require.NoError(t, json.Unmarshal(env.Data, &rep))
		assert.Equal(t, []string{"1A0", "2B0"}, rep.IDs)
		require.Len(t, rep.Ranges, 2)
		assert.Equal(t, models.ByteRange{Index: 0, Min: 0x10, Max: 0x40, Unique: 5}, rep.Ranges[0])
	})

	t.Run("empty selection means all observed", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet, "/api/ranges", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var rep models.RangesReport
		require.NoError(t, json.Unmarshal(env.Data, &rep))
		assert.Equal(t, []string{"1A0", "2B0"}, rep.IDs)
	})

	t.Run("bad source is rejected by validation", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet, "/api/ranges?source=replay", nil)
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("analyses lists identifiers", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet, "/api/analyses?source=live", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var rep models.AnalysesReport
		require.NoError(t, json.Unmarshal(env.Data, &rep))
		require.Len(t, rep.Analyses, 2)
		assert.Equal(t, "1A0", rep.Analyses[0].CANID)
	})

	t.Run("history returns archived records", func(t *testing.T) {
		t.Parallel()
		store := &fakeStorage{recs: []*models.ArchiveRecord{
			{RunID: "run-1", Kind: models.ArchiveOBDSample, PID: "0C", Timestamp: time.Now().UTC(), Value: 812},
			{RunID: "run-1", Kind: models.ArchiveFuzzFrame, CANID: "1A0", Timestamp: time.Now().UTC(), Payload: "20"},
			{RunID: "run-2", Kind: models.ArchiveOBDSample, PID: "0D", Timestamp: time.Now().UTC(), Value: 55},
		}}
		e := newHandler(t, store)

		_, env := doJSON(t, e, http.MethodGet, "/api/history?runId=run-1", nil)
		require.Equal(t, http.StatusOK, env.Status, "data: %s", env.Data)
		var res usecase.GetHistoryResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 2, res.Count)

		_, env = doJSON(t, e, http.MethodGet, "/api/history?runId=run-1&kind=fuzz_frame", nil)
		require.Equal(t, http.StatusOK, env.Status)
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, 1, res.Count)
	})

	t.Run("history requires runId", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet, "/api/history", nil)
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})

	t.Run("history rejects inverted window", func(t *testing.T) {
		t.Parallel()
		e := newHandler(t, nil)
		_, env := doJSON(t, e, http.MethodGet,
			"/api/history?runId=run-1&from=2026-08-25T12:00:00Z&to=2026-08-25T11:00:00Z", nil)
		assert.Equal(t, http.StatusBadRequest, env.Status)
	})
}

func TestSystemAPI(t *testing.T) {
	t.Parallel()

	t.Run("pid catalog", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSystemHandler(nil))
		_, env := doJSON(t, e, http.MethodGet, "/api/pids", nil)
		require.Equal(t, http.StatusOK, env.Status)
		var pids []models.PID
		require.NoError(t, json.Unmarshal(env.Data, &pids))
		assert.NotEmpty(t, pids)
	})

	t.Run("healthz without archive", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSystemHandler(nil))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("healthz reports archive reachability", func(t *testing.T) {
		t.Parallel()
		e := newTestEcho(NewSystemHandler(&fakeStorage{}))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"archive":"ok"`)
	})
}
