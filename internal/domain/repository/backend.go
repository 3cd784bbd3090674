package repository

// Backend selects the archive sink implementation.
type Backend string

const (
	BackendKafka      Backend = "kafka"
	BackendClickHouse Backend = "clickhouse"
	BackendNone       Backend = "none"
)

// IsValidBackend returns true if b is a supported archive backend.
func IsValidBackend(b Backend) bool {
	switch b {
	case BackendKafka, BackendClickHouse, BackendNone:
		return true
	default:
		return false
	}
}

// DefaultBackend returns the default archive backend.
func DefaultBackend() Backend { return BackendNone }

// NormalizeBackend converts a raw string to a valid backend (or default).
func NormalizeBackend(s string) Backend {
	if s == "" {
		return DefaultBackend()
	}
	b := Backend(s)
	if IsValidBackend(b) {
		return b
	}
	return DefaultBackend()
}
