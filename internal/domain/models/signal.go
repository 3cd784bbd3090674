package models

import (
	"fmt"
	"strings"
)

// ByteOrder selects the bit layout of a signal inside a CAN frame.
type ByteOrder string

const (
	LittleEndian ByteOrder = "little_endian" // Intel: start bit is the LSB, bits grow upward
	BigEndian    ByteOrder = "big_endian"    // Motorola: DBC MSB numbering, bits walk down then next byte
)

// Signal describes one bit-field of a CAN frame plus its physical conversion.
// Raw values map to physical via physical = raw*Scale + Offset.
type Signal struct {
	ID        int64     `json:"id,omitempty"` // zero until persisted
	CANID     string    `json:"can_id"`       // canonical: uppercase hex, no 0x prefix
	Name      string    `json:"name"`
	StartBit  uint8     `json:"start_bit"`
	Length    uint8     `json:"length"` // 1..64
	ByteOrder ByteOrder `json:"byte_order"`
	Signed    bool      `json:"is_signed"`
	Scale     float64   `json:"scale"`
	Offset    float64   `json:"offset"`
	MinVal    float64   `json:"min_val"`
	MaxVal    float64   `json:"max_val"`
	Unit      string    `json:"unit,omitempty"`
	Comment   string    `json:"comment,omitempty"`
}

// Validate reports structural problems that would make the signal
// undecodable regardless of frame content.
func (s *Signal) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("signal: empty name")
	}
	if s.Length < 1 || s.Length > 64 {
		return fmt.Errorf("signal %s: length %d out of range 1..64", s.Name, s.Length)
	}
	switch s.ByteOrder {
	case LittleEndian, BigEndian:
	default:
		return fmt.Errorf("signal %s: unknown byte order %q", s.Name, s.ByteOrder)
	}
	return nil
}

// Message groups the signals sharing one arbitration ID. Derived view,
// produced by the store; never persisted on its own.
type Message struct {
	CANID   string   `json:"can_id"`
	Name    string   `json:"name,omitempty"`
	Size    int      `json:"size"` // frame payload length in bytes
	Signals []Signal `json:"signals"`
}

// NormalizeCANID converts a raw identifier string to canonical form:
// uppercase hex digits without a 0x prefix.
func NormalizeCANID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
	return strings.ToUpper(id)
}
