package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	archived    *prometheus.CounterVec
	framesSent  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	obdValue    *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		archived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canprobe_records_archived_total",
				Help: "Total number of run records archived to a backend",
			},
			[]string{"backend", "kind"},
		),
		framesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canprobe_frames_sent_total",
				Help: "Total number of frames sent to the bus gateway",
			},
			[]string{"can_id"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canprobe_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		obdValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "canprobe_obd_last_value",
				Help: "Last OBD sample value seen for a PID",
			},
			[]string{"pid"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canprobe_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordArchived records a run record written to an archive backend.
func (r *Recorder) RecordArchived(backend, kind string) {
	r.archived.WithLabelValues(backend, kind).Inc()
}

// RecordFrameSent records a frame forwarded to the gateway.
func (r *Recorder) RecordFrameSent(canID string) {
	r.framesSent.WithLabelValues(canID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordOBDValue records the last sample value for a PID.
func (r *Recorder) RecordOBDValue(pid string, value float64) {
	r.obdValue.WithLabelValues(pid).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
