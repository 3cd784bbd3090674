package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
)

func cand(canID string, confidence, pearson, spearman float64) models.Candidate {
	return models.Candidate{
		CANID:      canID,
		Model:      "byte_affine",
		ModelType:  models.SingleByte,
		Confidence: confidence,
		Pearson:    pearson,
		Spearman:   spearman,
		Scale:      1,
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	t.Run("confidence descending regardless of input order", func(t *testing.T) {
		t.Parallel()
		a := cand("1A0", 0.82, 0.9, 0.9)
		b := cand("2B4", 0.81, 0.99, 0.99)

		got := Rank([]models.Candidate{b, a})
		require.Len(t, got, 2)
		assert.Equal(t, "1A0", got[0].CANID)

		got = Rank([]models.Candidate{a, b})
		assert.Equal(t, "1A0", got[0].CANID)
	})

	t.Run("pearson magnitude breaks confidence ties", func(t *testing.T) {
		t.Parallel()
		weak := cand("111", 0.70, 0.60, 0.95)
		strong := cand("222", 0.70, -0.90, 0.10)
		got := Rank([]models.Candidate{weak, strong})
		assert.Equal(t, "222", got[0].CANID, "larger |pearson| must win the tie")
	})

	t.Run("spearman magnitude breaks remaining ties", func(t *testing.T) {
		t.Parallel()
		lo := cand("111", 0.70, 0.80, 0.10)
		hi := cand("222", 0.70, -0.80, -0.70)
		got := Rank([]models.Candidate{lo, hi})
		assert.Equal(t, "222", got[0].CANID)
	})

	t.Run("stable for fully equal scores", func(t *testing.T) {
		t.Parallel()
		first := cand("AAA", 0.5, 0.5, 0.5)
		second := cand("BBB", 0.5, 0.5, 0.5)
		got := Rank([]models.Candidate{first, second})
		assert.Equal(t, "AAA", got[0].CANID)
		assert.Equal(t, "BBB", got[1].CANID)
	})

	t.Run("input slice untouched", func(t *testing.T) {
		t.Parallel()
		in := []models.Candidate{cand("1", 0.1, 0, 0), cand("2", 0.9, 0, 0)}
		_ = Rank(in)
		assert.Equal(t, "1", in[0].CANID)
	})
}

func TestTierFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		confidence float64
		want       Tier
	}{
		{1.0, TierHigh},
		{0.8, TierHigh},
		{0.79999, TierMedium},
		{0.5, TierMedium},
		{0.49999, TierLow},
		{0, TierLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.confidence), "confidence %v", tc.confidence)
	}
}

func TestRunningSet(t *testing.T) {
	t.Parallel()

	t.Run("later candidate supersedes same identity", func(t *testing.T) {
		t.Parallel()
		s := NewRunningSet()
		early := cand("1A0", 0.4, 0.4, 0.4)
		late := cand("1A0", 0.9, 0.9, 0.9)
		s.Apply([]models.Candidate{early}, false)
		s.Apply([]models.Candidate{late}, false)

		snap := s.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, 0.9, snap[0].Confidence)
	})

	t.Run("distinct identities accumulate without replaceAll", func(t *testing.T) {
		t.Parallel()
		s := NewRunningSet()
		a := cand("1A0", 0.6, 0, 0)
		b := a
		b.ByteIndex = 3
		b.ByteEnd = 3
		s.Apply([]models.Candidate{a}, false)
		s.Apply([]models.Candidate{b}, false)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("replaceAll drops stale hypotheses", func(t *testing.T) {
		t.Parallel()
		s := NewRunningSet()
		s.Apply([]models.Candidate{cand("OLD", 0.99, 1, 1)}, false)
		s.Apply([]models.Candidate{cand("NEW", 0.42, 0, 0)}, true)

		snap := s.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, "NEW", snap[0].CANID)
	})

	t.Run("snapshot is ranked and detached", func(t *testing.T) {
		t.Parallel()
		s := NewRunningSet()
		s.Apply([]models.Candidate{
			cand("LOW", 0.2, 0, 0),
			cand("HIGH", 0.95, 0, 0),
		}, false)
		snap := s.Snapshot()
		require.Len(t, snap, 2)
		assert.Equal(t, "HIGH", snap[0].CANID)

		s.Apply([]models.Candidate{cand("X", 0.5, 0, 0)}, true)
		assert.Equal(t, "HIGH", snap[0].CANID, "snapshot must not change under later updates")
	})
}

func TestDeriveSignal(t *testing.T) {
	t.Parallel()

	base := models.Candidate{
		CANID:          "0x1a0",
		Model:          "byte_affine",
		ModelType:      models.SingleByte,
		ByteIndex:      3,
		ByteEnd:        3,
		Confidence:     0.91,
		Scale:          0.25,
		Offset:         -10,
		NSamples:       3,
		Timestamps:     []float64{0, 1, 2},
		OBDValues:      []float64{12, 55, 31},
		CANTransformed: []float64{12.5, 54, 30},
	}

	t.Run("single byte little endian anchor", func(t *testing.T) {
		t.Parallel()
		sig := DeriveSignal(&base, "0C", "")
		assert.Equal(t, "1A0", sig.CANID)
		assert.Equal(t, uint8(24), sig.StartBit)
		assert.Equal(t, uint8(8), sig.Length)
		assert.Equal(t, models.LittleEndian, sig.ByteOrder)
		assert.False(t, sig.Signed)
		assert.Equal(t, 0.25, sig.Scale)
		assert.Equal(t, -10.0, sig.Offset)
		assert.Equal(t, 12.0, sig.MinVal, "advisory min from OBD extrema")
		assert.Equal(t, 55.0, sig.MaxVal, "advisory max from OBD extrema")
		assert.Equal(t, "rpm", sig.Unit)
		assert.Contains(t, sig.Name, "PID_0C")
	})

	t.Run("two byte big endian anchors at byte MSB", func(t *testing.T) {
		t.Parallel()
		c := base
		c.ModelType = models.TwoByteBE
		c.ByteIndex = 0
		c.ByteEnd = 1
		sig := DeriveSignal(&c, "0C", "EngineSpeed")
		assert.Equal(t, uint8(7), sig.StartBit)
		assert.Equal(t, uint8(16), sig.Length)
		assert.Equal(t, models.BigEndian, sig.ByteOrder)
		assert.Equal(t, "EngineSpeed", sig.Name)
	})

	t.Run("two byte little endian", func(t *testing.T) {
		t.Parallel()
		c := base
		c.ModelType = models.TwoByteLE
		c.ByteIndex = 2
		c.ByteEnd = 3
		sig := DeriveSignal(&c, "0D", "")
		assert.Equal(t, uint8(16), sig.StartBit)
		assert.Equal(t, uint8(16), sig.Length)
		assert.Equal(t, models.LittleEndian, sig.ByteOrder)
	})

	t.Run("unknown pid still derives a name", func(t *testing.T) {
		t.Parallel()
		sig := DeriveSignal(&base, "E7", "")
		assert.Equal(t, "PID_E7", sig.Name)
		assert.Empty(t, sig.Unit)
	})
}

func TestSeriesDiagnostics(t *testing.T) {
	t.Parallel()

	t.Run("perfect agreement", func(t *testing.T) {
		t.Parallel()
		c := models.Candidate{
			CANID:          "1A0",
			ModelType:      models.SingleByte,
			NSamples:       4,
			Timestamps:     []float64{0, 1, 2, 3},
			OBDValues:      []float64{10, 20, 30, 40},
			CANTransformed: []float64{10, 20, 30, 40},
		}
		d, err := SeriesDiagnostics(&c)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, d.Pearson, 1e-9)
		assert.InDelta(t, 0.0, d.ResidualRMS, 1e-9)
		assert.Equal(t, 4, d.N)
	})

	t.Run("constant residual", func(t *testing.T) {
		t.Parallel()
		c := models.Candidate{
			CANID:          "1A0",
			ModelType:      models.SingleByte,
			NSamples:       3,
			Timestamps:     []float64{0, 1, 2},
			OBDValues:      []float64{11, 21, 31},
			CANTransformed: []float64{10, 20, 30},
		}
		d, err := SeriesDiagnostics(&c)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, d.Pearson, 1e-9)
		assert.InDelta(t, 1.0, d.ResidualRMS, 1e-9)
	})

	t.Run("series mismatch rejected", func(t *testing.T) {
		t.Parallel()
		c := models.Candidate{
			CANID:      "1A0",
			ModelType:  models.SingleByte,
			NSamples:   2,
			Timestamps: []float64{0},
			OBDValues:  []float64{1, 2},
		}
		_, err := SeriesDiagnostics(&c)
		assert.Error(t, err)
	})

	t.Run("single sample yields zero measures", func(t *testing.T) {
		t.Parallel()
		c := models.Candidate{
			CANID:          "1A0",
			ModelType:      models.SingleByte,
			NSamples:       1,
			Timestamps:     []float64{0},
			OBDValues:      []float64{5},
			CANTransformed: []float64{5},
		}
		d, err := SeriesDiagnostics(&c)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d.Pearson)
	})
}
