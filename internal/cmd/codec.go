package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	decodeSignalID int64
	encodeSignalID int64
)

var decodeCmd = &cobra.Command{
	Use:   "decode <frame-hex>",
	Short: "Decode a physical value from a raw frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"signal_id": decodeSignalID,
			"frame":     args[0],
		}
		return call(xhttp.MethodPost, "/api/decode", nil, body, nil)
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode <value>",
	Short: "Encode a physical value into frame bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		body := map[string]interface{}{
			"signal_id": encodeSignalID,
			"value":     value,
		}
		return call(xhttp.MethodPost, "/api/encode", nil, body, nil)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd, encodeCmd)

	decodeCmd.Flags().Int64Var(&decodeSignalID, "signal-id", 0, "stored signal ID")
	_ = decodeCmd.MarkFlagRequired("signal-id")
	encodeCmd.Flags().Int64Var(&encodeSignalID, "signal-id", 0, "stored signal ID")
	_ = encodeCmd.MarkFlagRequired("signal-id")
}
