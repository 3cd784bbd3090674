package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	offlinePID     string
	offlineWindow  int
	offlineScope   string
	offlineSamples string

	livePID      string
	liveIface    string
	liveInterval int
	liveService  string
	liveCorrInt  int

	acceptIndex int
	acceptName  string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run correlation discovery sessions",
}

var discoverOfflineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Correlate recorded OBD samples against captured traffic",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(offlineSamples)
		if err != nil {
			return fmt.Errorf("read samples: %w", err)
		}
		var samples []struct {
			Timestamp float64 `json:"timestamp"`
			Value     float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &samples); err != nil {
			return fmt.Errorf("parse samples: %w", err)
		}
		body := map[string]interface{}{
			"pid":      offlinePID,
			"windowMs": offlineWindow,
			"scopeId":  offlineScope,
			"samples":  samples,
		}
		return call(xhttp.MethodPost, "/api/discovery/offline", nil, body, nil)
	},
}

var discoverLiveCmd = &cobra.Command{
	Use:   "live",
	Short: "Start a live streaming discovery session",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"pid":                  livePID,
			"interface":            liveIface,
			"intervalMs":           liveInterval,
			"service":              liveService,
			"correlationIntervalS": liveCorrInt,
		}
		return call(xhttp.MethodPost, "/api/discovery/live/start", nil, body, nil)
	},
}

var discoverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the live discovery session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(xhttp.MethodPost, "/api/discovery/live/stop", nil, nil, nil)
	},
}

var discoverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and ranked candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(xhttp.MethodGet, "/api/discovery/status", nil, nil, nil)
	},
}

var discoverAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Persist a ranked candidate as a signal",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"index": acceptIndex,
			"name":  acceptName,
		}
		return call(xhttp.MethodPost, "/api/discovery/accept", nil, body, nil)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.AddCommand(discoverOfflineCmd, discoverLiveCmd, discoverStopCmd, discoverStatusCmd, discoverAcceptCmd)

	discoverOfflineCmd.Flags().StringVar(&offlinePID, "pid", "", "OBD PID to correlate (hex, e.g. 0C)")
	discoverOfflineCmd.Flags().IntVar(&offlineWindow, "window-ms", 50, "correlation window in milliseconds")
	discoverOfflineCmd.Flags().StringVar(&offlineScope, "scope", "", "engine capture scope identifier")
	discoverOfflineCmd.Flags().StringVar(&offlineSamples, "samples", "", "JSON file with [{timestamp, value}] samples")
	_ = discoverOfflineCmd.MarkFlagRequired("pid")
	_ = discoverOfflineCmd.MarkFlagRequired("samples")

	discoverLiveCmd.Flags().StringVar(&livePID, "pid", "", "OBD PID to poll and correlate (hex)")
	discoverLiveCmd.Flags().StringVar(&liveIface, "interface", "can0", "bus interface name")
	discoverLiveCmd.Flags().IntVar(&liveInterval, "interval-ms", 200, "OBD polling interval")
	discoverLiveCmd.Flags().StringVar(&liveService, "service", "01", "OBD service (hex)")
	discoverLiveCmd.Flags().IntVar(&liveCorrInt, "correlation-interval", 5, "engine recompute interval in seconds")
	_ = discoverLiveCmd.MarkFlagRequired("pid")

	discoverAcceptCmd.Flags().IntVar(&acceptIndex, "index", 0, "candidate index in the ranked snapshot")
	discoverAcceptCmd.Flags().StringVar(&acceptName, "name", "", "override the derived signal name")
}
