package models

import "fmt"

// ModelType is the engine's decode shape for a candidate: how many bytes
// the hypothesis spans and in which order they are read. Closed set.
type ModelType string

const (
	SingleByte ModelType = "single_byte"
	TwoByteLE  ModelType = "two_byte_le"
	TwoByteBE  ModelType = "two_byte_be"
)

// DecodeWidth returns the byte width of the model.
func (m ModelType) DecodeWidth() int {
	if m == SingleByte {
		return 1
	}
	return 2
}

// Order returns the byte order the model decodes with. Single-byte
// models report little endian; order is irrelevant at width 1.
func (m ModelType) Order() ByteOrder {
	if m == TwoByteBE {
		return BigEndian
	}
	return LittleEndian
}

// Valid reports whether m is one of the engine's known shapes.
func (m ModelType) Valid() bool {
	switch m {
	case SingleByte, TwoByteLE, TwoByteBE:
		return true
	}
	return false
}

// Candidate is one hypothesis from the correlation engine: "this byte
// span of this CAN ID encodes the target PID". Immutable once received.
type Candidate struct {
	CANID          string    `json:"can_id"`
	Model          string    `json:"model"` // engine label, opaque
	ModelType      ModelType `json:"model_type"`
	ByteIndex      int       `json:"byte_index"`
	ByteEnd        int       `json:"byte_end"` // inclusive
	Pearson        float64   `json:"pearson"`
	Spearman       float64   `json:"spearman"`
	Confidence     float64   `json:"confidence"` // engine-computed, treated as opaque
	Scale          float64   `json:"scale"`
	Offset         float64   `json:"offset"`
	NSamples       int       `json:"n_samples"`
	Timestamps     []float64 `json:"timestamps"`
	OBDValues      []float64 `json:"obd_values"`
	CANTransformed []float64 `json:"can_transformed"`
}

// CandidateKey identifies a hypothesis across live updates; a later
// candidate with the same key supersedes an earlier one.
type CandidateKey struct {
	CANID     string
	Model     string
	ByteIndex int
	ByteEnd   int
}

func (c *Candidate) Key() CandidateKey {
	return CandidateKey{CANID: c.CANID, Model: c.Model, ByteIndex: c.ByteIndex, ByteEnd: c.ByteEnd}
}

// Validate checks the co-indexed series invariants.
func (c *Candidate) Validate() error {
	if !c.ModelType.Valid() {
		return fmt.Errorf("candidate %s: unknown model type %q", c.CANID, c.ModelType)
	}
	if len(c.Timestamps) != c.NSamples || len(c.OBDValues) != c.NSamples || len(c.CANTransformed) != c.NSamples {
		return fmt.Errorf("candidate %s: series length mismatch (n_samples=%d ts=%d obd=%d can=%d)",
			c.CANID, c.NSamples, len(c.Timestamps), len(c.OBDValues), len(c.CANTransformed))
	}
	for i := 1; i < len(c.Timestamps); i++ {
		if c.Timestamps[i] < c.Timestamps[i-1] {
			return fmt.Errorf("candidate %s: timestamps decrease at index %d", c.CANID, i)
		}
	}
	return nil
}
