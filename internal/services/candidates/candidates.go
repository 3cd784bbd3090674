// Package candidates ranks correlation hypotheses and derives
// persistable signals from an accepted one.
package candidates

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"CANProbe/internal/domain/models"
)

// Tier buckets a candidate's confidence for accept/reject display.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor maps confidence to its tier: high at 0.8 and above, medium at
// 0.5 and above, low otherwise.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= 0.8:
		return TierHigh
	case confidence >= 0.5:
		return TierMedium
	default:
		return TierLow
	}
}

// Rank orders candidates by confidence descending, breaking ties by
// |pearson| then |spearman| descending. The sort is stable, so equal
// candidates keep their input order and "take the top one" is
// reproducible. The input is not modified.
func Rank(cs []models.Candidate) []models.Candidate {
	out := append([]models.Candidate(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		ap, bp := math.Abs(a.Pearson), math.Abs(b.Pearson)
		if ap != bp {
			return ap > bp
		}
		return math.Abs(a.Spearman) > math.Abs(b.Spearman)
	})
	return out
}

// DeriveSignal builds the persistable signal for an accepted candidate.
// The field is anchored at the candidate's byte index: little-endian
// models start at the byte's bit 0, the big-endian model at the byte's
// bit 7 (its MSB), so the stored signal decodes exactly the bytes the
// engine's model read. Engine models are unsigned. Advisory bounds come
// from the observed OBD values, not the raw byte span.
func DeriveSignal(c *models.Candidate, pid, name string) models.Signal {
	order := c.ModelType.Order()
	start := c.ByteIndex * 8
	if order == models.BigEndian {
		start += 7
	}

	if name == "" {
		name = defaultSignalName(pid)
	}
	unit := ""
	comment := fmt.Sprintf("Correlated with PID %s (confidence %.2f, model %s)", strings.ToUpper(pid), c.Confidence, c.ModelType)
	if p, ok := models.LookupPID(pid); ok {
		unit = p.Unit
		comment = fmt.Sprintf("Correlated with %s / PID %s (confidence %.2f, model %s)", p.Name, p.Code, c.Confidence, c.ModelType)
	}

	minV, maxV := extrema(c.OBDValues)
	return models.Signal{
		CANID:     models.NormalizeCANID(c.CANID),
		Name:      name,
		StartBit:  uint8(start),
		Length:    uint8(c.ModelType.DecodeWidth() * 8),
		ByteOrder: order,
		Signed:    false,
		Scale:     c.Scale,
		Offset:    c.Offset,
		MinVal:    minV,
		MaxVal:    maxV,
		Unit:      unit,
		Comment:   comment,
	}
}

func defaultSignalName(pid string) string {
	pid = strings.ToUpper(strings.TrimSpace(pid))
	if p, ok := models.LookupPID(pid); ok {
		clean := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			default:
				return '_'
			}
		}, p.Name)
		return "PID_" + p.Code + "_" + clean
	}
	return "PID_" + pid
}

func extrema(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	min, max := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
