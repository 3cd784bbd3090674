package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	sigCANID     string
	sigName      string
	sigStartBit  uint8
	sigLength    uint8
	sigByteOrder string
	sigSigned    bool
	sigScale     float64
	sigOffset    float64
	sigMin       float64
	sigMax       float64
	sigUnit      string
	sigComment   string

	exportDBC bool
	exportOut string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Manage the DBC signal model",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored signals grouped by CAN identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(xhttp.MethodGet, "/api/signals", nil, nil, nil)
	},
}

var signalsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Define a new signal",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"can_id":     sigCANID,
			"name":       sigName,
			"start_bit":  sigStartBit,
			"length":     sigLength,
			"byte_order": sigByteOrder,
			"is_signed":  sigSigned,
			"scale":      sigScale,
			"offset":     sigOffset,
			"min_val":    sigMin,
			"max_val":    sigMax,
			"unit":       sigUnit,
			"comment":    sigComment,
		}
		return call(xhttp.MethodPost, "/api/signals", nil, body, nil)
	},
}

var signalsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a signal by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call(xhttp.MethodDelete, "/api/signals/"+args[0], nil, nil, &struct{}{}); err != nil {
			return err
		}
		fmt.Printf("deleted signal %s\n", args[0])
		return nil
	},
}

var signalsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the signal model as JSON or DBC",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !exportDBC {
			return call(xhttp.MethodGet, "/api/signals/export", nil, nil, nil)
		}
		var buf []byte
		if err := callRaw("/api/signals/export.dbc", nil, &buf); err != nil {
			return err
		}
		if exportOut == "" {
			fmt.Print(string(buf))
			return nil
		}
		if err := os.WriteFile(exportOut, buf, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(buf), exportOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.AddCommand(signalsListCmd, signalsAddCmd, signalsDeleteCmd, signalsExportCmd)

	signalsAddCmd.Flags().StringVar(&sigCANID, "can-id", "", "CAN identifier (hex)")
	signalsAddCmd.Flags().StringVar(&sigName, "name", "", "signal name")
	signalsAddCmd.Flags().Uint8Var(&sigStartBit, "start-bit", 0, "start bit (0-63)")
	signalsAddCmd.Flags().Uint8Var(&sigLength, "length", 8, "bit length (1-64)")
	signalsAddCmd.Flags().StringVar(&sigByteOrder, "byte-order", "little_endian", "little_endian or big_endian")
	signalsAddCmd.Flags().BoolVar(&sigSigned, "signed", false, "two's complement raw value")
	signalsAddCmd.Flags().Float64Var(&sigScale, "scale", 1, "physical = raw*scale+offset")
	signalsAddCmd.Flags().Float64Var(&sigOffset, "offset", 0, "physical offset")
	signalsAddCmd.Flags().Float64Var(&sigMin, "min", 0, "advisory minimum")
	signalsAddCmd.Flags().Float64Var(&sigMax, "max", 0, "advisory maximum")
	signalsAddCmd.Flags().StringVar(&sigUnit, "unit", "", "unit label")
	signalsAddCmd.Flags().StringVar(&sigComment, "comment", "", "free-form comment")
	_ = signalsAddCmd.MarkFlagRequired("can-id")
	_ = signalsAddCmd.MarkFlagRequired("name")

	signalsExportCmd.Flags().BoolVar(&exportDBC, "dbc", false, "export DBC text instead of JSON")
	signalsExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write DBC export to file")
}
