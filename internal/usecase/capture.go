package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"CANProbe/internal/domain/repository"
	"CANProbe/internal/services/ranges"
	pkgkafka "CANProbe/pkg/kafka"
)

// FrameHandler consumes captured CAN frames from Kafka and folds them
// into the live byte-range observer.
type FrameHandler struct {
	topic    string
	observer *ranges.Observer
	metrics  repository.Metrics
}

func NewFrameHandler(topic string, observer *ranges.Observer, metrics repository.Metrics) *FrameHandler {
	return &FrameHandler{topic: topic, observer: observer, metrics: metrics}
}

func (h *FrameHandler) Topic() string { return h.topic }

// incoming message schema: {canId, data(hex), ts}
func (h *FrameHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		CANID string `json:"canId"`
		Data  string `json:"data"`
		TS    int64  `json:"ts"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("capture_unmarshal")
		return err
	}
	if m.CANID == "" {
		h.metrics.RecordError("capture_frame")
		return fmt.Errorf("frame without canId")
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(m.Data), "0x"))
	if err != nil {
		h.metrics.RecordError("capture_payload")
		return fmt.Errorf("frame payload: %w", err)
	}

	if m.TS > 1e11 { // ms
		m.TS /= 1000
	}
	if m.TS > 0 {
		// E2E latency from capture time to now (approx)
		h.metrics.RecordLatency("capture_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())
	}

	h.observer.Observe(m.CANID, payload)
	return nil
}

var _ pkgkafka.MessageHandler = (*FrameHandler)(nil)

// CaptureFeed owns the Kafka consumer that keeps the observer fed while
// the service runs.
type CaptureFeed struct {
	consumer *pkgkafka.Consumer
	handler  *FrameHandler
}

func NewCaptureFeed(consumer *pkgkafka.Consumer, handler *FrameHandler) *CaptureFeed {
	consumer.RegisterHandler(handler)
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafka.Message, _ []byte, _ error) {
			handler.metrics.RecordError("capture_consume")
		},
	})
	return &CaptureFeed{consumer: consumer, handler: handler}
}

func (f *CaptureFeed) Start(ctx context.Context) error {
	return f.consumer.Start()
}

// Shutdown stops the consumer, honoring ctx as the drain deadline.
func (f *CaptureFeed) Shutdown(ctx context.Context) error {
	return f.consumer.Stop(ctx)
}
