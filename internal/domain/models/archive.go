package models

import "time"

// ArchiveKind classifies archived run events.
type ArchiveKind string

const (
	ArchiveOBDSample ArchiveKind = "obd_sample"
	ArchiveAccepted  ArchiveKind = "accepted_signal"
	ArchiveFuzzFrame ArchiveKind = "fuzz_frame"
)

// ArchiveRecord is one archived event of a run: a live OBD sample, an
// accepted signal, or a fuzzed frame. Stored for offline replay.
type ArchiveRecord struct {
	RunID     string      `json:"run_id"`
	Kind      ArchiveKind `json:"kind"`
	PID       string      `json:"pid,omitempty"`
	CANID     string      `json:"can_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Value     float64     `json:"value"`
	Payload   string      `json:"payload,omitempty"` // hex frame bytes
}
