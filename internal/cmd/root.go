package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	xhttp "CANProbe/pkg/http"
)

var (
	serverURL  string
	reqTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "canctl",
	Short: "Operator CLI for the CANProbe diagnostics console",
	Long: `canctl drives a running CANProbe instance over its HTTP API:
signal model upkeep, frame decode/encode, byte-range inspection,
fuzzing and correlation discovery sessions.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "CANProbe base URL")
	rootCmd.PersistentFlags().DurationVar(&reqTimeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.CompletionOptions.HiddenDefaultCmd = false
}

// envelope mirrors the API response wrapper. Status carries the
// semantic code; the transport code is always 200.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// call sends a request, unwraps the envelope, and decodes data into out
// (raw data is pretty-printed when out is nil).
func call(method, path string, query map[string][]string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), reqTimeout)
	defer cancel()

	client := xhttp.NewClient(xhttp.WithTimeout(reqTimeout))
	var env envelope
	err := client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      method,
		URL:         strings.TrimRight(serverURL, "/") + path,
		QueryParams: query,
		Body:        body,
	}, &env)
	if err != nil {
		return err
	}

	if env.Status >= 400 {
		var errs []apiError
		if json.Unmarshal(env.Data, &errs) == nil && len(errs) > 0 {
			e := errs[0]
			if e.Field != "" {
				return fmt.Errorf("%s: %s (field %s)", e.Code, e.Message, e.Field)
			}
			return fmt.Errorf("%s: %s", e.Code, e.Message)
		}
		return fmt.Errorf("%d %s", env.Status, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return printJSON(env.Data)
}

// callRaw fetches a non-enveloped endpoint (blob exports) into buf.
func callRaw(path string, query map[string][]string, buf *[]byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), reqTimeout)
	defer cancel()

	client := xhttp.NewClient(xhttp.WithTimeout(reqTimeout))
	return client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         strings.TrimRight(serverURL, "/") + path,
		QueryParams: query,
	}, buf)
}

func printJSON(v interface{}) error {
	raw, ok := v.(json.RawMessage)
	if ok {
		var buf interface{}
		if err := json.Unmarshal(raw, &buf); err != nil {
			fmt.Println(string(raw))
			return nil
		}
		v = buf
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
