package models

import "errors"

// Sentinels for the failure modes callers are expected to branch on.
var (
	// ErrFrameTooShort: the frame does not cover start_bit+length under
	// the signal's byte order.
	ErrFrameTooShort = errors.New("frame too short for signal")

	// ErrValueOutOfRange: the physical value is not representable at the
	// signal's length/signedness.
	ErrValueOutOfRange = errors.New("value out of representable range")

	// ErrZeroScale: encode requires a non-zero scale.
	ErrZeroScale = errors.New("signal scale is zero")

	// ErrInsufficientSamples: offline discovery needs at least 3 samples.
	ErrInsufficientSamples = errors.New("at least 3 samples required")

	// ErrAlreadyRunning: one outstanding discovery run per session.
	ErrAlreadyRunning = errors.New("discovery session already running")

	// ErrNoValidRows: a sample import produced zero usable rows. Warning
	// grade; callers keep their previous samples.
	ErrNoValidRows = errors.New("no valid rows in sample file")

	// ErrNotRunning: stop/status requested for a run that is not active.
	ErrNotRunning = errors.New("no active run")

	// ErrCandidateIndex: accept referenced a candidate slot the current
	// snapshot does not have.
	ErrCandidateIndex = errors.New("candidate index out of range")
)

// EngineError carries an explicit error reported by the correlation
// engine. The message reaches the operator verbatim.
type EngineError struct {
	Message string `json:"message"`
}

func (e *EngineError) Error() string { return e.Message }
