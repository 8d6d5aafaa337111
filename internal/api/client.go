// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"
)

const (
	PathPosition  = "/api/domiciliario/ubicacion"
	PathHeartbeat = "/api/domiciliario-heartbeat"
	PathOrders    = "/api/pedidos-domiciliario"

	DefaultReportTimeout = 15 * time.Second
	DefaultPollTimeout   = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// Config is the client's transport configuration.
type Config struct {
	BaseURL       string
	ReportTimeout time.Duration // position report
	PollTimeout   time.Duration // heartbeat and order poll
	Headers       map[string]string
}

// Client implements reporter.API over HTTP/JSON.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	reportTimeout time.Duration
	pollTimeout   time.Duration
	headers       map[string]string
}

// NewClient creates a client. Zero timeouts fall back to the defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base url required")
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = DefaultReportTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{},
		reportTimeout: cfg.ReportTimeout,
		pollTimeout:   cfg.PollTimeout,
		headers:       headers,
	}, nil
}

// Factory returns a reporter.ClientFactory that binds each session's
// endpoint base to a new client with the given transport settings.
func Factory(base Config) reporter.ClientFactory {
	return func(cfg reporter.Config) (reporter.API, error) {
		c := base
		c.BaseURL = cfg.EndpointBase
		return NewClient(c)
	}
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type positionPayload struct {
	Latitud   float64 `json:"latitud"`
	Longitud  float64 `json:"longitud"`
	Timestamp int64   `json:"timestamp"`
	Accuracy  float64 `json:"accuracy"`
	Provider  string  `json:"provider"`
}

// ReportPosition posts one sample. Success is HTTP 200 only.
func (c *Client) ReportPosition(ctx context.Context, s reporter.PositionSample) error {
	ts := s.CapturedAt
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	body := positionPayload{
		Latitud:   s.Latitude,
		Longitud:  s.Longitude,
		Timestamp: ts,
		Accuracy:  s.AccuracyMeters,
		Provider:  string(s.Provider),
	}

	ctx, cancel := context.WithTimeout(ctx, c.reportTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, PathPosition, body)
	return err
}

// SendHeartbeat posts an empty JSON object.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, PathHeartbeat, struct{}{})
	return err
}

// ListOrders fetches the courier's orders.
func (c *Client) ListOrders(ctx context.Context) ([]reporter.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	data, err := c.do(ctx, http.MethodGet, PathOrders, nil)
	if err != nil {
		return nil, err
	}
	var orders []reporter.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", reporter.ErrParse, PathOrders, err)
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("api %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", reporter.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read body: %v", reporter.ErrNetwork, method, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       snippet(data),
		}
	}
	return data, nil
}

func snippet(b []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(b))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
