// Package codec extracts and packs CAN signal bit-fields.
//
// Frame bits are numbered the DBC way: bit n lives in byte n/8 at
// in-byte position n%8, where position 0 is the least significant bit.
// A little-endian ("Intel") signal anchors its least significant field
// bit at start_bit and grows toward higher frame bits. A big-endian
// ("Motorola") signal anchors its most significant field bit at
// start_bit and walks down within the byte, continuing at the next
// byte's position 7. The two layouts cover the same bytes differently:
// a 16-bit big-endian field at start bit 7 and a 16-bit little-endian
// field at start bit 0 both span bytes 0..1, decoding 0x12 0x34 as
// 0x1234 and 0x3412 respectively.
//
// All functions are pure and safe for concurrent use.
package codec

import (
	"fmt"
	"math"

	"CANProbe/internal/domain/models"
)

// RequiredBytes returns the frame length in bytes needed to cover the
// signal's bit span under its byte order.
func RequiredBytes(sig *models.Signal) int {
	start := int(sig.StartBit)
	length := int(sig.Length)
	switch sig.ByteOrder {
	case models.BigEndian:
		b := start >> 3
		rest := length - (start&7 + 1)
		need := b + 1
		if rest > 0 {
			need += (rest + 7) / 8
		}
		return need
	default:
		return (start+length-1)>>3 + 1
	}
}

// DecodeRaw extracts the signal's bit pattern from frame as an unsigned
// integer, before sign extension and scaling.
func DecodeRaw(sig *models.Signal, frame []byte) (uint64, error) {
	if err := sig.Validate(); err != nil {
		return 0, err
	}
	if RequiredBytes(sig) > len(frame) {
		return 0, fmt.Errorf("%w: need %d bytes, frame has %d", models.ErrFrameTooShort, RequiredBytes(sig), len(frame))
	}
	start := int(sig.StartBit)
	length := int(sig.Length)
	var raw uint64
	switch sig.ByteOrder {
	case models.BigEndian:
		b := start >> 3
		j := start & 7
		for k := 0; k < length; k++ {
			raw <<= 1
			if frame[b]&(1<<j) != 0 {
				raw |= 1
			}
			if j == 0 {
				j = 7
				b++
			} else {
				j--
			}
		}
	default:
		for k := 0; k < length; k++ {
			n := start + k
			if frame[n>>3]&(1<<(n&7)) != 0 {
				raw |= 1 << k
			}
		}
	}
	return raw, nil
}

// Decode extracts the signal from frame and converts it to a physical
// value: physical = raw*scale + offset, with two's-complement sign
// extension over the signal length when the signal is signed.
func Decode(sig *models.Signal, frame []byte) (float64, error) {
	raw, err := DecodeRaw(sig, frame)
	if err != nil {
		return 0, err
	}
	if sig.Signed {
		return float64(signExtend(raw, sig.Length))*sig.Scale + sig.Offset, nil
	}
	return float64(raw)*sig.Scale + sig.Offset, nil
}

// Encode converts a physical value to its raw integer
// (round((v-offset)/scale)), clamps it to the range representable at the
// signal's length and signedness, and writes the bit pattern into a
// zero-initialized 8-byte frame. Scale zero and non-finite values are
// rejected.
func Encode(sig *models.Signal, physical float64) ([]byte, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if sig.Scale == 0 {
		return nil, models.ErrZeroScale
	}
	if math.IsNaN(physical) || math.IsInf(physical, 0) {
		return nil, models.ErrValueOutOfRange
	}
	if RequiredBytes(sig) > 8 {
		return nil, fmt.Errorf("signal %s: bit span exceeds an 8-byte frame", sig.Name)
	}
	rawF := math.Round((physical - sig.Offset) / sig.Scale)

	var raw uint64
	if sig.Signed {
		raw = uint64(clampSigned(rawF, sig.Length)) & lowMask(sig.Length)
	} else {
		raw = clampUnsigned(rawF, sig.Length)
	}

	frame := make([]byte, 8)
	start := int(sig.StartBit)
	length := int(sig.Length)
	switch sig.ByteOrder {
	case models.BigEndian:
		b := start >> 3
		j := start & 7
		for k := length - 1; k >= 0; k-- {
			if raw&(1<<k) != 0 {
				frame[b] |= 1 << j
			}
			if j == 0 {
				j = 7
				b++
			} else {
				j--
			}
		}
	default:
		for k := 0; k < length; k++ {
			if raw&(1<<k) != 0 {
				n := start + k
				frame[n>>3] |= 1 << (n & 7)
			}
		}
	}
	return frame, nil
}

// CandidateDecode applies a correlation-engine model's decode rule to a
// payload at the given byte index.
func CandidateDecode(mt models.ModelType, data []byte, index int) (int, error) {
	if index < 0 || index+mt.DecodeWidth() > len(data) {
		return 0, fmt.Errorf("%w: model %s at index %d over %d bytes", models.ErrFrameTooShort, mt, index, len(data))
	}
	switch mt {
	case models.SingleByte:
		return int(data[index]), nil
	case models.TwoByteLE:
		return int(data[index]) | int(data[index+1])<<8, nil
	case models.TwoByteBE:
		return int(data[index])<<8 | int(data[index+1]), nil
	default:
		return 0, fmt.Errorf("unknown model type %q", mt)
	}
}

func signExtend(raw uint64, length uint8) int64 {
	if length >= 64 {
		return int64(raw)
	}
	if raw&(1<<(length-1)) != 0 {
		raw |= ^lowMask(length)
	}
	return int64(raw)
}

func lowMask(length uint8) uint64 {
	if length >= 64 {
		return ^uint64(0)
	}
	return 1<<length - 1
}

func clampUnsigned(v float64, length uint8) uint64 {
	if v <= 0 {
		return 0
	}
	max := lowMask(length)
	if v >= float64(max) {
		return max
	}
	return uint64(v)
}

func clampSigned(v float64, length uint8) int64 {
	min := int64(-1) << (length - 1)
	max := ^min
	if v <= float64(min) {
		return min
	}
	if v >= float64(max) {
		return max
	}
	return int64(v)
}
