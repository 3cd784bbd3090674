// Package engine talks to the external correlation engine: one-shot
// batch requests over HTTP and live discovery over WebSocket.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"CANProbe/internal/domain/models"
	domsvc "CANProbe/internal/domain/service"
	"CANProbe/pkg/config"
	xhttp "CANProbe/pkg/http"
)

// offlineRequest is the engine's batch request body.
type offlineRequest struct {
	Samples  []models.OBDSample `json:"samples"`
	WindowMS int                `json:"windowMs"`
	PID      string             `json:"pid"`
	ScopeID  string             `json:"scopeId,omitempty"`
}

// OfflineClient issues batch correlation requests.
type OfflineClient struct {
	baseURL string
	client  *xhttp.Client
}

func NewOfflineClient(cfg *config.Config) *OfflineClient {
	timeout := cfg.Engine.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OfflineClient{
		baseURL: strings.TrimRight(cfg.Engine.BaseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// Run posts the sample batch and decodes the ranked candidates. An
// explicit engine error body comes back as *models.EngineError with the
// engine's message untouched.
func (c *OfflineClient) Run(ctx context.Context, req models.OfflineDiscoveryRequest) (*models.RunResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("engine base url not configured")
	}
	body := offlineRequest{
		Samples:  req.Samples,
		WindowMS: req.WindowMS,
		PID:      req.PID,
		ScopeID:  req.ScopeID,
	}
	resp, err := c.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/correlate",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var engineErr models.EngineError
		if json.Unmarshal(raw, &engineErr) == nil && engineErr.Message != "" {
			return nil, &engineErr
		}
		return nil, fmt.Errorf("engine status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out models.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	return &out, nil
}

var _ domsvc.OfflineCorrelator = (*OfflineClient)(nil)
