package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/service/cache"
)

type countingProvider struct {
	analyses []models.IDAnalysis
	err      error
	calls    atomic.Int64
}

func (p *countingProvider) Analyses(context.Context) ([]models.IDAnalysis, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.analyses, nil
}

func liveAnalyses() []models.IDAnalysis {
	return []models.IDAnalysis{
		{
			CANID: "1A0", Count: 10, SampleCount: 4,
			ByteRanges: []models.ByteRange{
				{Index: 0, Min: 0x20, Max: 0x40, Unique: 5},
				{Index: 2, Min: 0x00, Max: 0x01, Unique: 2},
			},
		},
		{
			CANID: "2B0", Count: 3, SampleCount: 3,
			ByteRanges: []models.ByteRange{
				{Index: 0, Min: 0x10, Max: 0x30, Unique: 2},
			},
		},
	}
}

func gatewayOnlyAnalyses() []models.IDAnalysis {
	return []models.IDAnalysis{
		{
			CANID: "0x1a0", Count: 100, SampleCount: 8,
			ByteRanges: []models.ByteRange{
				{Index: 0, Min: 0x05, Max: 0x35, Unique: 12},
			},
		},
		{
			CANID: "7E8", Count: 50, SampleCount: 8,
			ByteRanges: []models.ByteRange{
				{Index: 1, Min: 0x00, Max: 0xFF, Unique: 30},
			},
		},
	}
}

func TestGetRanges(t *testing.T) {
	t.Parallel()

	t.Run("merges live and gateway views of the same identifier", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{analyses: liveAnalyses()}
		gw := &countingProvider{analyses: gatewayOnlyAnalyses()}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetRanges(context.Background(), GetRangesParams{IDs: []string{"0x1a0"}})
		require.NoError(t, err)

		assert.Equal(t, SourceAuto, rep.Source)
		assert.Equal(t, []string{"1A0"}, rep.IDs)
		assert.Nil(t, rep.Errors)
		require.Len(t, rep.Ranges, 2)
		// byte 0 widened across both sources
		assert.Equal(t, models.ByteRange{Index: 0, Min: 0x05, Max: 0x40, Unique: 12}, rep.Ranges[0])
		assert.Equal(t, models.ByteRange{Index: 2, Min: 0x00, Max: 0x01, Unique: 2}, rep.Ranges[1])
	})

	t.Run("empty selection covers every observed identifier sorted", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{analyses: liveAnalyses()}
		gw := &countingProvider{analyses: gatewayOnlyAnalyses()}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetRanges(context.Background(), GetRangesParams{})
		require.NoError(t, err)
		assert.Equal(t, []string{"1A0", "2B0", "7E8"}, rep.IDs)
		assert.NotEmpty(t, rep.Ranges)
	})

	t.Run("single source selection skips the other provider", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{analyses: liveAnalyses()}
		gw := &countingProvider{analyses: gatewayOnlyAnalyses()}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetRanges(context.Background(), GetRangesParams{Source: SourceLive})
		require.NoError(t, err)
		assert.Equal(t, SourceLive, rep.Source)
		assert.Equal(t, []string{"1A0", "2B0"}, rep.IDs)
		assert.Equal(t, int64(0), gw.calls.Load())
	})

	t.Run("failing source is reported without failing the merge", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{analyses: liveAnalyses()}
		gw := &countingProvider{err: assert.AnError}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetRanges(context.Background(), GetRangesParams{IDs: []string{"2B0"}})
		require.NoError(t, err)
		require.Contains(t, rep.Errors, SourceGateway)
		require.Len(t, rep.Ranges, 1)
		assert.Equal(t, 0x10, rep.Ranges[0].Min)
	})

	t.Run("unknown source is rejected", func(t *testing.T) {
		t.Parallel()
		uc := NewRangesUseCase(&countingProvider{}, nil, nil, 0)
		_, err := uc.GetRanges(context.Background(), GetRangesParams{Source: "replay"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "replay")
	})

	t.Run("unconfigured explicit source is reported", func(t *testing.T) {
		t.Parallel()
		uc := NewRangesUseCase(nil, nil, nil, 0)

		rep, err := uc.GetRanges(context.Background(), GetRangesParams{Source: SourceGateway})
		require.NoError(t, err)
		assert.Equal(t, "gateway not configured", rep.Errors[SourceGateway])
		assert.Empty(t, rep.Ranges)

		rep, err = uc.GetRanges(context.Background(), GetRangesParams{})
		require.NoError(t, err)
		assert.Equal(t, "no analysis sources configured", rep.Errors["sources"])
	})

	t.Run("gateway analyses are cached between queries", func(t *testing.T) {
		t.Parallel()
		gw := &countingProvider{analyses: gatewayOnlyAnalyses()}
		uc := NewRangesUseCase(nil, gw, cache.NewTTLCache(), time.Minute)

		for i := 0; i < 3; i++ {
			rep, err := uc.GetRanges(context.Background(), GetRangesParams{Source: SourceGateway})
			require.NoError(t, err)
			assert.Equal(t, []string{"1A0", "7E8"}, rep.IDs)
		}
		assert.Equal(t, int64(1), gw.calls.Load())
	})
}

func TestGetAnalyses(t *testing.T) {
	t.Parallel()

	t.Run("live wins per identifier and gateway fills the rest", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{analyses: liveAnalyses()}
		gw := &countingProvider{analyses: gatewayOnlyAnalyses()}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetAnalyses(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, rep.Analyses, 3)
		assert.Equal(t, "1A0", rep.Analyses[0].CANID)
		assert.Equal(t, 10, rep.Analyses[0].Count) // live entry, not the gateway one
		assert.Equal(t, "2B0", rep.Analyses[1].CANID)
		assert.Equal(t, "7E8", rep.Analyses[2].CANID)
	})

	t.Run("both sources failing yields empty analyses with errors", func(t *testing.T) {
		t.Parallel()
		live := &countingProvider{err: assert.AnError}
		gw := &countingProvider{err: assert.AnError}
		uc := NewRangesUseCase(live, gw, nil, 0)

		rep, err := uc.GetAnalyses(context.Background(), SourceAuto)
		require.NoError(t, err)
		assert.Empty(t, rep.Analyses)
		assert.Len(t, rep.Errors, 2)
	})
}
