package dbcfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CANProbe/internal/domain/models"
)

func model() []models.Message {
	return []models.Message{
		{
			CANID: "2B4",
			Size:  8,
			Signals: []models.Signal{
				{
					Name: "Vehicle Speed", CANID: "2B4", StartBit: 0, Length: 16,
					ByteOrder: models.LittleEndian, Scale: 0.01, Offset: 0,
					MinVal: 0, MaxVal: 655.35, Unit: "km/h", Comment: `derived from "live" run`,
				},
			},
		},
		{
			CANID: "1A0",
			Signals: []models.Signal{
				{
					Name: "EngineSpeed", CANID: "1A0", StartBit: 7, Length: 16,
					ByteOrder: models.BigEndian, Scale: 0.25,
					MinVal: 0, MaxVal: 16383.75, Unit: "rpm",
				},
				{
					Name: "CoolantTemp", CANID: "1A0", StartBit: 16, Length: 8,
					ByteOrder: models.LittleEndian, Signed: true, Scale: 1, Offset: -40,
					MinVal: -40, MaxVal: 215, Unit: "degC",
				},
			},
		},
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	out, err := Export(model())
	require.NoError(t, err)
	text := string(out)

	t.Run("messages ordered by numeric id", func(t *testing.T) {
		t.Parallel()
		first := strings.Index(text, "BO_ 416 MSG_1A0: 3 Vector__XXX")
		second := strings.Index(text, "BO_ 692 MSG_2B4: 8 Vector__XXX")
		require.GreaterOrEqual(t, first, 0, "missing 1A0 block:\n%s", text)
		require.GreaterOrEqual(t, second, 0, "missing 2B4 block:\n%s", text)
		assert.Less(t, first, second, "0x1A0 (416) must precede 0x2B4 (692)")
	})

	t.Run("signal lines carry order and sign markers", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, text, ` SG_ EngineSpeed : 7|16@0+ (0.25,0) [0|16383.75] "rpm" Vector__XXX`)
		assert.Contains(t, text, ` SG_ CoolantTemp : 16|8@1- (1,-40) [-40|215] "degC" Vector__XXX`)
		assert.Contains(t, text, ` SG_ Vehicle_Speed : 0|16@1+ (0.01,0) [0|655.35] "km/h" Vector__XXX`)
	})

	t.Run("signals sorted by name within a message", func(t *testing.T) {
		t.Parallel()
		coolant := strings.Index(text, "SG_ CoolantTemp")
		engine := strings.Index(text, "SG_ EngineSpeed")
		assert.Less(t, coolant, engine)
	})

	t.Run("comment emitted with quotes flattened", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, text, `CM_ SG_ 692 Vehicle_Speed "derived from 'live' run";`)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		t.Parallel()
		again, err := Export(model())
		require.NoError(t, err)
		assert.Equal(t, string(out), string(again))
	})

	t.Run("bad identifier rejected", func(t *testing.T) {
		t.Parallel()
		_, err := Export([]models.Message{{CANID: "NOT_HEX"}})
		assert.Error(t, err)
	})
}
