package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	fuzzIDs       string
	fuzzRate      float64
	fuzzMaxFrames int
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz",
	Short: "Drive range-constrained fuzzing through the gateway",
}

var fuzzStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start fuzzing the given identifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"ids":        splitCSV(fuzzIDs),
			"rate":       fuzzRate,
			"max_frames": fuzzMaxFrames,
		}
		return call(xhttp.MethodPost, "/api/fuzz/start", nil, body, nil)
	},
}

var fuzzStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running fuzz session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(xhttp.MethodPost, "/api/fuzz/stop", nil, nil, nil)
	},
}

var fuzzStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fuzzer state and recently sent frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(xhttp.MethodGet, "/api/fuzz/status", nil, nil, nil)
	},
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(fuzzCmd)
	fuzzCmd.AddCommand(fuzzStartCmd, fuzzStopCmd, fuzzStatusCmd)

	fuzzStartCmd.Flags().StringVar(&fuzzIDs, "ids", "", "comma-separated CAN identifiers to fuzz")
	fuzzStartCmd.Flags().Float64Var(&fuzzRate, "rate", 10, "frames per second")
	fuzzStartCmd.Flags().IntVar(&fuzzMaxFrames, "max-frames", 0, "stop after N frames (0 = until stopped)")
	_ = fuzzStartCmd.MarkFlagRequired("ids")
}
