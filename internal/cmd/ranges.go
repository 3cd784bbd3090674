package cmd

import (
	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	rangesIDs    string
	rangesSource string
)

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Merge observed byte ranges across CAN identifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := map[string][]string{
			"source": {rangesSource},
		}
		if rangesIDs != "" {
			query["ids"] = []string{rangesIDs}
		}
		return call(xhttp.MethodGet, "/api/ranges", query, nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(rangesCmd)

	rangesCmd.Flags().StringVar(&rangesIDs, "ids", "", "comma-separated CAN identifiers (empty = all observed)")
	rangesCmd.Flags().StringVar(&rangesSource, "source", "auto", "analysis source: auto, live or gateway")
}
