package models

// ByteRange holds observed statistics for one byte offset of a CAN
// payload. Unique is exact per identifier; once ranges are merged across
// identifiers it is widened (max), a richness indicator rather than a
// cardinality guarantee.
type ByteRange struct {
	Index  int `json:"index"` // 0..7
	Min    int `json:"min"`   // 0..255
	Max    int `json:"max"`   // 0..255
	Unique int `json:"unique"`
}

// IDAnalysis is the per-identifier byte-range analysis shape shared with
// the backend: frame counts, a few example payloads and per-byte ranges.
type IDAnalysis struct {
	CANID       string      `json:"canId"`
	Count       int         `json:"count"`
	SampleCount int         `json:"sampleCount"`
	Samples     []string    `json:"samples"` // hex payload examples
	ByteRanges  []ByteRange `json:"byteRanges"`
}

// RangesReport is the merged byte-range view served to the console.
// Errors carries per-source failures; a source that fails is skipped,
// not fatal, so the report can be partial.
type RangesReport struct {
	Source string            `json:"source"`
	IDs    []string          `json:"ids"`
	Ranges []ByteRange       `json:"ranges"`
	Errors map[string]string `json:"errors,omitempty"`
}

// AnalysesReport lists per-identifier analyses with per-source failures.
type AnalysesReport struct {
	Source   string            `json:"source"`
	Analyses []IDAnalysis      `json:"analyses"`
	Errors   map[string]string `json:"errors,omitempty"`
}
