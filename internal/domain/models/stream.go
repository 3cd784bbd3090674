package models

// StreamEventType tags engine→client messages on the live connection.
type StreamEventType string

const (
	EventOBDSample         StreamEventType = "obd_sample"
	EventCorrelationUpdate StreamEventType = "correlation_update"
	EventError             StreamEventType = "error"
)

// StreamEvent is the flat envelope the engine emits during a live run.
// Only the fields for the given Type are populated.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// obd_sample
	Value       float64 `json:"value,omitempty"`
	SampleCount int     `json:"sampleCount,omitempty"`

	// correlation_update
	Candidates  []Candidate `json:"candidates,omitempty"`
	CANIDsCount int         `json:"canIdsCount,omitempty"`
	Final       bool        `json:"final,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}
