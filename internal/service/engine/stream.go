package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
	domsvc "CANProbe/internal/domain/service"
	"CANProbe/pkg/config"
)

type startCommand struct {
	Action               string `json:"action"`
	PID                  string `json:"pid"`
	Interface            string `json:"interface"`
	IntervalMS           int    `json:"intervalMs"`
	Service              string `json:"service"`
	CorrelationIntervalS int    `json:"correlationIntervalS"`
}

type stopCommand struct {
	Action string `json:"action"`
}

// Stream is a live discovery connection to the engine. Events arrive in
// the order the engine sent them; the read loop never reorders or drops
// a decoded event.
type Stream struct {
	url          string
	pingInterval time.Duration

	// gorilla permits a single concurrent writer.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	done      chan struct{}
}

func NewStream(wsURL string, pingInterval time.Duration) *Stream {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{url: wsURL, pingInterval: pingInterval}
}

func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial engine %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	log.Printf("engine: websocket connected to %s", s.url)
	go s.pingLoop(conn, done)
	return nil
}

func (s *Stream) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				log.Printf("engine: ping failed: %v", err)
				return
			}
		}
	}
}

// Start sends the start command for a live run.
func (s *Stream) Start(ctx context.Context, req models.LiveStartRequest) error {
	cmd := startCommand{
		Action:               "start",
		PID:                  req.PID,
		Interface:            req.Interface,
		IntervalMS:           req.IntervalMS,
		Service:              req.Service,
		CorrelationIntervalS: req.CorrelationIntervalS,
	}
	if err := s.writeJSON(cmd); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	log.Printf("engine: start sent pid=%s interface=%s", req.PID, req.Interface)
	return nil
}

// Stop asks the engine to end the run. Callers treat the send as best
// effort; a dead connection still counts as stopped.
func (s *Stream) Stop(ctx context.Context) error {
	if err := s.writeJSON(stopCommand{Action: "stop"}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	return nil
}

func (s *Stream) writeJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("engine stream not connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// Events starts the read loop. The events channel closes when the
// connection ends or ctx is cancelled; a read failure is reported once
// on the error channel. Frames that are not valid events are skipped,
// event types this build does not know are ignored.
func (s *Stream) Events(ctx context.Context) (<-chan *models.StreamEvent, <-chan error) {
	events := make(chan *models.StreamEvent, 16)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	go func() {
		defer close(events)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("engine stream not connected")
			return
		}
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-ctx.Done():
				default:
					errs <- fmt.Errorf("engine stream read: %w", err)
				}
				return
			}
			var ev models.StreamEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				log.Printf("engine: skipping malformed event: %v", err)
				continue
			}
			switch ev.Type {
			case models.EventOBDSample, models.EventCorrelationUpdate, models.EventError:
			default:
				continue
			}
			select {
			case events <- &ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.connected = false
	return err
}

func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ repository.EngineStream = (*Stream)(nil)

// Dialer opens live engine streams for discovery sessions.
type Dialer struct {
	wsURL        string
	pingInterval time.Duration
}

func NewDialer(cfg *config.Config) *Dialer {
	return &Dialer{
		wsURL:        cfg.Engine.WSURL,
		pingInterval: cfg.Engine.PingInterval,
	}
}

// Dial returns a connected stream ready for Start.
func (d *Dialer) Dial(ctx context.Context) (repository.EngineStream, error) {
	s := NewStream(d.wsURL, d.pingInterval)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var _ domsvc.StreamDialer = (*Dialer)(nil)
