// Package obdlog reads delimited OBD sample logs for offline discovery.
package obdlog

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"CANProbe/internal/domain/models"
)

func isSep(r rune) bool { return r == ',' || r == ';' || r == '\t' }

// Parse reads one sample per line, columns timestamp and value separated
// by comma, semicolon or tab. Malformed or non-numeric lines are skipped.
// A file with zero usable rows returns ErrNoValidRows so the caller can
// keep its previous samples.
func Parse(r io.Reader) ([]models.OBDSample, error) {
	var out []models.OBDSample
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, isSep)
		if len(fields) < 2 {
			continue
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			continue
		}
		out = append(out, models.OBDSample{Timestamp: ts, Value: val})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, models.ErrNoValidRows
	}
	return out, nil
}

// Summary describes an imported sample set for display.
type Summary struct {
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Duration float64 `json:"duration"` // timestamp span, input units
}

// Summarize computes display statistics over a sample set.
func Summarize(samples []models.OBDSample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	vals := make([]float64, len(samples))
	minTS, maxTS := samples[0].Timestamp, samples[0].Timestamp
	min, max := samples[0].Value, samples[0].Value
	for i, s := range samples {
		vals[i] = s.Value
		if s.Value < min {
			min = s.Value
		}
		if s.Value > max {
			max = s.Value
		}
		if s.Timestamp < minTS {
			minTS = s.Timestamp
		}
		if s.Timestamp > maxTS {
			maxTS = s.Timestamp
		}
	}
	sum := Summary{
		Count:    len(samples),
		Min:      min,
		Max:      max,
		Mean:     stat.Mean(vals, nil),
		Duration: maxTS - minTS,
	}
	if len(vals) > 1 {
		sum.StdDev = stat.StdDev(vals, nil)
	}
	return sum
}
