package models

// SessionState is the discovery session's lifecycle position.
type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateConfiguring SessionState = "configuring"
	StateRunning     SessionState = "running"
	StateCompleted   SessionState = "completed"
	StateFailed      SessionState = "failed"
	StateStopped     SessionState = "stopped"
)

// Terminal reports whether the state ends a run. Terminal states leave
// the session available for a new run.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateStopped:
		return true
	}
	return false
}

// RunResult is the offline engine response: the ranked candidate batch
// plus run metadata.
type RunResult struct {
	Candidates           []Candidate `json:"candidates"`
	TotalIDsAnalyzed     int         `json:"total_ids_analyzed"`
	TotalFramesProcessed int         `json:"total_frames_processed"`
	ElapsedMS            float64     `json:"elapsed_ms"`
}

// SessionStatus is an immutable snapshot of a discovery session, safe to
// marshal and hand to callers while events keep arriving.
type SessionStatus struct {
	State       SessionState `json:"state"`
	RunID       string       `json:"run_id,omitempty"`
	PID         string       `json:"pid,omitempty"`
	Live        bool         `json:"live"`
	SampleCount int          `json:"sample_count"`
	LastValue   float64      `json:"last_value"`
	CANIDsCount int          `json:"can_ids_count"`
	Final       bool         `json:"final"`
	Error       string       `json:"error,omitempty"`
	Candidates  []Candidate  `json:"candidates"`
	Result      *RunResult   `json:"result,omitempty"`
}
