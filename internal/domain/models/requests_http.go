package models

// Requests for console HTTP endpoints. Defined in domain for consistency and reuse.

type SignalCreateRequest struct {
	CANID     string  `json:"can_id" validate:"required,hexadecimal"`
	Name      string  `json:"name" validate:"required,max=64"`
	StartBit  uint8   `json:"start_bit" validate:"lte=63"`
	Length    uint8   `json:"length" validate:"gte=1,lte=64"`
	ByteOrder string  `json:"byte_order" default:"little_endian" validate:"oneof=little_endian big_endian"`
	Signed    bool    `json:"is_signed"`
	Scale     float64 `json:"scale" default:"1"`
	Offset    float64 `json:"offset"`
	MinVal    float64 `json:"min_val"`
	MaxVal    float64 `json:"max_val"`
	Unit      string  `json:"unit" validate:"max=16"`
	Comment   string  `json:"comment" validate:"max=256"`
}

// Signal converts the request into a domain signal (unsaved, ID zero).
func (r *SignalCreateRequest) Signal() Signal {
	return Signal{
		CANID:     NormalizeCANID(r.CANID),
		Name:      r.Name,
		StartBit:  r.StartBit,
		Length:    r.Length,
		ByteOrder: ByteOrder(r.ByteOrder),
		Signed:    r.Signed,
		Scale:     r.Scale,
		Offset:    r.Offset,
		MinVal:    r.MinVal,
		MaxVal:    r.MaxVal,
		Unit:      r.Unit,
		Comment:   r.Comment,
	}
}

// DecodeRequest names a stored signal or carries an inline definition,
// plus the frame payload as hex.
type DecodeRequest struct {
	SignalID int64                `json:"signal_id" validate:"omitempty,gte=1"`
	Signal   *SignalCreateRequest `json:"signal"`
	Frame    string               `json:"frame" validate:"required,hexadecimal"`
}

type EncodeRequest struct {
	SignalID int64                `json:"signal_id" validate:"omitempty,gte=1"`
	Signal   *SignalCreateRequest `json:"signal"`
	Value    float64              `json:"value"`
}

// RangesRequest selects identifiers for a byte-range merge. IDs is a
// comma-separated list; empty selects every observed identifier.
type RangesRequest struct {
	IDs    string `query:"ids" json:"ids"`
	Source string `query:"source" json:"source" default:"auto" validate:"oneof=auto live gateway"`
}

// HistoryRequest selects archived run records. From/To are RFC3339;
// empty means unbounded on that side.
type HistoryRequest struct {
	RunID string `query:"runId" json:"runId" validate:"required,max=64"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Kind  string `query:"kind" json:"kind" validate:"omitempty,oneof=obd_sample accepted_signal fuzz_frame"`
	Limit int    `query:"limit" json:"limit" validate:"gte=0,lte=10000"`
}

type FuzzStartRequest struct {
	IDs       []string `json:"ids" validate:"required,min=1,dive,hexadecimal"`
	Rate      float64  `json:"rate" default:"10" validate:"gt=0,lte=1000"` // frames per second
	MaxFrames int      `json:"max_frames" validate:"gte=0"`                // 0 = until stopped
}

// OfflineDiscoveryRequest mirrors the engine's offline request fields so
// callers pass samples straight through.
type OfflineDiscoveryRequest struct {
	PID      string      `json:"pid" validate:"required,hexadecimal,max=4"`
	WindowMS int         `json:"windowMs" default:"50" validate:"gte=1,lte=10000"`
	ScopeID  string      `json:"scopeId"`
	Samples  []OBDSample `json:"samples"`
}

type LiveStartRequest struct {
	PID                  string `json:"pid" validate:"required,hexadecimal,max=4"`
	Interface            string `json:"interface" default:"can0" validate:"required,max=32"`
	IntervalMS           int    `json:"intervalMs" default:"200" validate:"gte=10,lte=60000"`
	Service              string `json:"service" default:"01" validate:"hexadecimal,max=2"`
	CorrelationIntervalS int    `json:"correlationIntervalS" default:"5" validate:"gte=1,lte=3600"`
}

// AcceptCandidateRequest persists the candidate at Index of the current
// ranked snapshot as a signal. Name overrides the derived default.
type AcceptCandidateRequest struct {
	Index int    `json:"index" validate:"gte=0"`
	Name  string `json:"name" validate:"max=64"`
}
