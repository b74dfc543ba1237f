// Package authority is the thin HTTP transport to the government credential
// sandbox. It owns request shaping and response classification only; deciding
// what a response means for a ledger record belongs to the reconcile package.
package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vc-gateway/internal/credential/revocation"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the classified outcome of one authority round-trip. Data holds
// the JSON envelope when the body was an object; Raw holds the body verbatim
// when it was not (some sandbox versions return the signed token bare).
type Result struct {
	OK           bool
	Status       int
	Data         map[string]any
	Raw          string
	Detail       string
	DetailFields map[string]any
}

// Config configures the authority client.
type Config struct {
	BaseURL string
	// RoutingPrefix is prepended to request paths. The nonce lookup retries
	// once without it, because not every sandbox deployment mounts the
	// prefixed route.
	RoutingPrefix string
	BearerToken   string
	Timeout       time.Duration
	HTTPClient    HTTPDoer
	Logger        *slog.Logger
}

// Client talks to the authority sandbox.
type Client struct {
	baseURL string
	prefix  string
	bearer  string
	http    HTTPDoer
	logger  *slog.Logger
}

// New creates an authority client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		prefix:  revocation.NormalizePrefix(cfg.RoutingPrefix),
		bearer:  cfg.BearerToken,
		http:    httpClient,
		logger:  logger,
	}
}

// RoutingPrefix returns the normalized routing prefix in effect.
func (c *Client) RoutingPrefix() string {
	return c.prefix
}

// BaseURL returns the configured authority base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Nonce fetches the eventual signed credential for a transaction id. When the
// prefixed path yields a 404 the call is retried once without the routing
// prefix; everything else is returned as-is.
func (c *Client) Nonce(ctx context.Context, transactionID string) (Result, error) {
	path := "/api/credential/nonce?transactionId=" + url.QueryEscape(transactionID)

	result, err := c.do(ctx, http.MethodGet, c.prefix+path, nil)
	if err != nil {
		return Result{}, err
	}
	if result.Status == http.StatusNotFound && c.prefix != "" {
		c.logger.DebugContext(ctx, "nonce lookup retrying without routing prefix",
			"transaction_id", transactionID,
		)
		return c.do(ctx, http.MethodGet, path, nil)
	}
	return result, nil
}

// Revoke issues the revocation call for a previously computed internal path.
// The authority rejects a second revoke of the same CID; that rejection is
// surfaced, not swallowed, so callers see the idempotency conflict.
func (c *Client) Revoke(ctx context.Context, path string) (Result, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.do(ctx, http.MethodPut, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{}, fmt.Errorf("build authority request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("authority request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read authority response: %w", err)
	}

	return classify(resp.StatusCode, payload), nil
}

// classify turns a raw HTTP exchange into a Result. Success bodies may be a
// JSON envelope or a bare token; failure bodies may carry "detail" as a
// string or a structured object.
func classify(status int, body []byte) Result {
	result := Result{
		OK:     status >= 200 && status < 300,
		Status: status,
	}

	trimmed := strings.TrimSpace(string(body))
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err == nil {
		result.Data = envelope
	} else if trimmed != "" {
		result.Raw = trimmed
	}

	if result.OK {
		return result
	}

	switch detail := result.Data["detail"].(type) {
	case string:
		result.Detail = detail
	case map[string]any:
		result.DetailFields = detail
		encoded, _ := json.Marshal(detail)
		result.Detail = string(encoded)
	default:
		if msg, ok := result.Data["message"].(string); ok {
			result.Detail = msg
		} else if errStr, ok := result.Data["error"].(string); ok {
			result.Detail = errStr
		} else if trimmed != "" && result.Data == nil {
			result.Detail = trimmed
		}
	}
	if result.Detail == "" {
		result.Detail = http.StatusText(status)
	}
	return result
}
