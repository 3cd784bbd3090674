package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
)

func newTestStore(t *testing.T) *SQLiteSignalStore {
	t.Helper()
	store, err := NewSQLiteSignalStore(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rpmSignal() *models.Signal {
	return &models.Signal{
		CANID:     "0x1a0",
		Name:      "EngineSpeed",
		StartBit:  24,
		Length:    16,
		ByteOrder: models.LittleEndian,
		Scale:     0.25,
		Offset:    0,
		MinVal:    0,
		MaxVal:    16383.75,
		Unit:      "rpm",
		Comment:   "accepted from run 7",
	}
}

func TestSQLiteSignalStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("add assigns ids and canonicalizes the can id", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		id, err := store.Add(ctx, rpmSignal())
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "1A0", got.CANID)
		assert.Equal(t, "EngineSpeed", got.Name)
		assert.Equal(t, uint8(24), got.StartBit)
		assert.Equal(t, uint8(16), got.Length)
		assert.Equal(t, models.LittleEndian, got.ByteOrder)
		assert.False(t, got.Signed)
		assert.InDelta(t, 0.25, got.Scale, 1e-12)
		assert.InDelta(t, 16383.75, got.MaxVal, 1e-12)
		assert.Equal(t, "rpm", got.Unit)
		assert.Equal(t, "accepted from run 7", got.Comment)

		id2, err := store.Add(ctx, rpmSignal())
		require.NoError(t, err)
		assert.Equal(t, int64(2), id2)
	})

	t.Run("add rejects undecodable signals", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		bad := rpmSignal()
		bad.Length = 0
		_, err := store.Add(ctx, bad)
		require.Error(t, err)

		bad = rpmSignal()
		bad.ByteOrder = "middle_endian"
		_, err = store.Add(ctx, bad)
		require.Error(t, err)

		bad = rpmSignal()
		bad.CANID = "  "
		_, err = store.Add(ctx, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "can id")
	})

	t.Run("get and delete report missing rows", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.Get(ctx, 42)
		require.ErrorIs(t, err, sql.ErrNoRows)

		err = store.Delete(ctx, 42)
		require.ErrorIs(t, err, sql.ErrNoRows)

		id, err := store.Add(ctx, rpmSignal())
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, id))
		_, err = store.Get(ctx, id)
		require.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("list orders by can id then name", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		coolant := rpmSignal()
		coolant.CANID = "3C2"
		coolant.Name = "CoolantTemp"
		_, err := store.Add(ctx, coolant)
		require.NoError(t, err)

		throttle := rpmSignal()
		throttle.CANID = "1A0"
		throttle.Name = "ThrottlePos"
		_, err = store.Add(ctx, throttle)
		require.NoError(t, err)

		_, err = store.Add(ctx, rpmSignal())
		require.NoError(t, err)

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "EngineSpeed", list[0].Name)
		assert.Equal(t, "ThrottlePos", list[1].Name)
		assert.Equal(t, "CoolantTemp", list[2].Name)
	})

	t.Run("messages group signals and derive the frame size", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.Add(ctx, rpmSignal()) // LE 16 bits at 24: bytes 3..4
		require.NoError(t, err)

		flag := rpmSignal()
		flag.Name = "ClutchEngaged"
		flag.StartBit = 0
		flag.Length = 1
		_, err = store.Add(ctx, flag)
		require.NoError(t, err)

		temp := &models.Signal{
			CANID:     "3C2",
			Name:      "CoolantTemp",
			StartBit:  15, // BE anchor, MSB of byte 1
			Length:    8,
			ByteOrder: models.BigEndian,
			Signed:    true,
			Scale:     1,
			Offset:    -40,
		}
		_, err = store.Add(ctx, temp)
		require.NoError(t, err)

		msgs, err := store.Messages(ctx)
		require.NoError(t, err)
		require.Len(t, msgs, 2)

		assert.Equal(t, "1A0", msgs[0].CANID)
		assert.Equal(t, 5, msgs[0].Size)
		require.Len(t, msgs[0].Signals, 2)
		assert.Equal(t, "ClutchEngaged", msgs[0].Signals[0].Name)
		assert.Equal(t, "EngineSpeed", msgs[0].Signals[1].Name)

		assert.Equal(t, "3C2", msgs[1].CANID)
		assert.Equal(t, 2, msgs[1].Size)
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		msgs, err := store.Messages(ctx)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
