package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/services/ranges"
)

func TestFrameHandler(t *testing.T) {
	t.Parallel()

	t.Run("feeds frames into the observer", func(t *testing.T) {
		t.Parallel()
		obs := ranges.NewObserver()
		h := NewFrameHandler("can.frames", obs, newFakeMetrics())
		assert.Equal(t, "can.frames", h.Topic())

		frames := []string{
			`{"canId":"0x1a0","data":"102030","ts":1712000000}`,
			`{"canId":"1A0","data":"0x1F2030","ts":1712000001000}`,
			`{"canId":"2B0","data":"FF","ts":0}`,
		}
		for _, f := range frames {
			require.NoError(t, h.Handle(context.Background(), []byte(f)))
		}

		analyses, err := obs.Analyses(context.Background())
		require.NoError(t, err)
		require.Len(t, analyses, 2)

		first := analyses[0]
		assert.Equal(t, "1A0", first.CANID)
		assert.Equal(t, 2, first.Count)
		require.NotEmpty(t, first.ByteRanges)
		assert.Equal(t, 0x10, first.ByteRanges[0].Min)
		assert.Equal(t, 0x1F, first.ByteRanges[0].Max)
		assert.Equal(t, 2, first.ByteRanges[0].Unique)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		t.Parallel()
		obs := ranges.NewObserver()
		h := NewFrameHandler("can.frames", obs, newFakeMetrics())

		assert.Error(t, h.Handle(context.Background(), []byte(`{not json`)))
		assert.Error(t, h.Handle(context.Background(), []byte(`{"data":"FF"}`)), "missing canId")
		assert.Error(t, h.Handle(context.Background(), []byte(`{"canId":"1A0","data":"XYZ"}`)), "bad hex")
		assert.Error(t, h.Handle(context.Background(), []byte(`{"canId":"1A0","data":"FFF"}`)), "odd length hex")

		analyses, err := obs.Analyses(context.Background())
		require.NoError(t, err)
		assert.Empty(t, analyses)
	})
}
