package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var importFile string

var importSamplesCmd = &cobra.Command{
	Use:   "import-samples",
	Short: "Parse an OBD log file into correlation samples",
	Long: `Parses a Torque/CSV-style OBD log server-side and prints the
normalized samples with a per-PID summary. Feed the samples into
'discover offline'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open %s: %w", importFile, err)
		}
		defer f.Close()
		return call(xhttp.MethodPost, "/api/discovery/import", nil, f, nil)
	},
}

func init() {
	rootCmd.AddCommand(importSamplesCmd)

	importSamplesCmd.Flags().StringVarP(&importFile, "file", "f", "", "OBD log file (CSV)")
	_ = importSamplesCmd.MarkFlagRequired("file")
}
