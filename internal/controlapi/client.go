package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	panel "gameserver_panel"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 16 // 64 KB
	maxBodyInError  = 256
)

// TransportError covers network failures, non-2xx responses and undecodable bodies.
type TransportError struct {
	Action     panel.Action
	StatusCode int    // 0 when no response was received
	Body       string // truncated response body, if any
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("control api %s: status %d (%s)", e.Action, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("control api %s: status %d: %v", e.Action, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("control api %s: %v", e.Action, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client sends authenticated action requests to the single control endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The client is copied, never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout, whatever http.Client is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the operator log channel.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

// WithMetrics enables request counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c
}

// Endpoint returns the configured control endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// QueryStatus asks for the current server status.
func (c *Client) QueryStatus(ctx context.Context, token string) (panel.ServerStatus, error) {
	return c.SendAction(ctx, token, panel.ActionStatus)
}

// SendAction POSTs {"action": action} with the raw id token as Authorization header.
func (c *Client) SendAction(ctx context.Context, token string, action panel.Action) (panel.ServerStatus, error) {
	st, err := c.do(ctx, token, action)
	c.metrics.ObserveControlRequest(string(action), err)
	if err != nil {
		c.log.Errorw("control_api_request_failed", "action", action, "err", err)
		return panel.ServerStatus{}, err
	}
	c.log.Debugw("control_api_response", "action", action, "status", st.Status)
	return st, nil
}

func (c *Client) do(ctx context.Context, token string, action panel.Action) (panel.ServerStatus, error) {
	payload, err := json.Marshal(panel.ActionRequest{Action: action})
	if err != nil {
		return panel.ServerStatus{}, &TransportError{Action: action, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return panel.ServerStatus{}, &TransportError{Action: action, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return panel.ServerStatus{}, &TransportError{Action: action, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return panel.ServerStatus{}, &TransportError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return panel.ServerStatus{}, &TransportError{Action: action, StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	var st panel.ServerStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return panel.ServerStatus{}, &TransportError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return st, nil
}

// truncate cuts the body to maxBodyInError bytes on a rune boundary.
func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxBodyInError {
		return s
	}
	n := maxBodyInError
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
