// Package gateway drives the CAN gateway's HTTP surface: frame
// injection, per-ID byte analyses, and on-demand OBD reads.
package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
	"CANProbe/pkg/config"
	xhttp "CANProbe/pkg/http"
)

type frameRequest struct {
	CANID   string `json:"canId"`
	Payload string `json:"payload"`
}

// Client is an HTTP client for the gateway process that owns the CAN
// socket.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// SendFrame injects one frame onto the bus.
func (c *Client) SendFrame(ctx context.Context, canID string, payload []byte) error {
	if len(payload) == 0 || len(payload) > 8 {
		return fmt.Errorf("frame payload must be 1..8 bytes, got %d", len(payload))
	}
	body := frameRequest{
		CANID:   models.NormalizeCANID(canID),
		Payload: strings.ToUpper(hex.EncodeToString(payload)),
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/frames",
		Body:   body,
	}, nil)
	if err != nil {
		return fmt.Errorf("send frame %s: %w", body.CANID, err)
	}
	return nil
}

// Analyses returns the gateway's own per-ID byte statistics.
func (c *Client) Analyses(ctx context.Context) ([]models.IDAnalysis, error) {
	var out []models.IDAnalysis
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/analyses",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("fetch analyses: %w", err)
	}
	return out, nil
}

// ReadPID polls a single OBD value through the gateway.
func (c *Client) ReadPID(ctx context.Context, pid string) (*models.OBDSample, error) {
	var out models.OBDSample
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/obd/%s", c.baseURL, url.PathEscape(strings.ToUpper(pid))),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("read pid %s: %w", pid, err)
	}
	return &out, nil
}

var (
	_ repository.FrameSender      = (*Client)(nil)
	_ repository.AnalysisProvider = (*Client)(nil)
)
