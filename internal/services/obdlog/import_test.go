package obdlog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("comma separated", func(t *testing.T) {
		t.Parallel()
		got, err := Parse(strings.NewReader("0.0,10\n1.0,20\n2.0,30\n"))
		require.NoError(t, err)
		assert.Equal(t, []models.OBDSample{{Timestamp: 0, Value: 10}, {Timestamp: 1, Value: 20}, {Timestamp: 2, Value: 30}}, got)
	})

	t.Run("semicolon and tab separated", func(t *testing.T) {
		t.Parallel()
		got, err := Parse(strings.NewReader("0.5;42.5\n1.5\t43.25\n"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, models.OBDSample{Timestamp: 0.5, Value: 42.5}, got[0])
		assert.Equal(t, models.OBDSample{Timestamp: 1.5, Value: 43.25}, got[1])
	})

	t.Run("malformed lines skipped", func(t *testing.T) {
		t.Parallel()
		input := strings.Join([]string{
			"timestamp,value", // header
			"0,10",
			"not,numeric",
			"1", // too few columns
			"",
			"2,  20.5", // padding tolerated
			"3,nan-ish,extra",
		}, "\n")
		got, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, []models.OBDSample{{Timestamp: 0, Value: 10}, {Timestamp: 2, Value: 20.5}}, got)
	})

	t.Run("zero valid rows is a warning error", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader("header line\njunk;data\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrNoValidRows), "got %v", err)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(""))
		assert.True(t, errors.Is(err, models.ErrNoValidRows), "got %v", err)
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("basic statistics", func(t *testing.T) {
		t.Parallel()
		s := Summarize([]models.OBDSample{{Timestamp: 0, Value: 10}, {Timestamp: 1, Value: 20}, {Timestamp: 4, Value: 30}})
		assert.Equal(t, 3, s.Count)
		assert.Equal(t, 10.0, s.Min)
		assert.Equal(t, 30.0, s.Max)
		assert.InDelta(t, 20.0, s.Mean, 1e-9)
		assert.InDelta(t, 10.0, s.StdDev, 1e-9)
		assert.InDelta(t, 4.0, s.Duration, 1e-9)
	})

	t.Run("empty set", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Summary{}, Summarize(nil))
	})

	t.Run("single sample has zero spread", func(t *testing.T) {
		t.Parallel()
		s := Summarize([]models.OBDSample{{Timestamp: 3, Value: 7}})
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 0.0, s.StdDev)
		assert.Equal(t, 0.0, s.Duration)
	})
}
