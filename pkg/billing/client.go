package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/logger"
	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/requestid"
)

// API paths relative to the configured base URL.
const (
	PathSubscription      = "/subscription"
	PathCheckoutSession   = "/stripe/create-checkout-session"
	PathVerifySession     = "/stripe/verify-session"
	PathCustomerPortal    = "/stripe/customer-portal"
	PathFeatureLimit      = "/feature-limit"
	defaultUserAgent      = "lifeplanner-billing/1.0"
	maxResponseBodyLength = 1 << 20
)

// Operation names used in errors, logs and metrics.
const (
	OpFetchSubscription   = "fetch_subscription"
	OpCreateCheckout      = "create_checkout_session"
	OpVerifySession       = "verify_session"
	OpCreatePortal        = "create_customer_portal_session"
	OpGetFeatureLimits    = "get_feature_limits"
	OpUpdateFeatureLimits = "update_feature_limits"
)

// Config holds the environment-driven client configuration.
type Config struct {
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
}

// Client calls the billing endpoints of the planner API on behalf of a principal.
// Every call obtains a fresh bearer token from the principal and no call is
// retried here; retries belong to the caller (see package query).
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics
	userAgent  string
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		baseURL:    base,
		httpClient: o.httpClient,
		logger:     o.logger.With(logger.Component("billing")),
		userAgent:  o.userAgent,
	}

	if o.registerer != nil {
		m, err := newMetrics(o.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	return c, nil
}

// NewClientFromConfig creates a client from a loaded Config.
func NewClientFromConfig(cfg Config, opts ...Option) (*Client, error) {
	return NewClient(cfg.BaseURL, opts...)
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: URL is required", ErrInvalidBaseURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// response is a fully read API response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// send performs one authenticated request. It fails with ErrUnauthenticated
// before any I/O when p is nil, and with ErrNetwork when the transport fails.
// Non-success statuses are returned as a response, not an error.
func (c *Client) send(ctx context.Context, p *principal.Principal, method, path string, payload any) (*response, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}

	token, err := p.Token(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: failed to obtain token: %w", ErrAuthenticationFailed, err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req = requestid.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

// statusError classifies a non-success response.
// 401 and 403 map to the auth classes, everything else to ErrNetwork.
func statusError(op string, resp *response) error {
	class := ErrNetwork
	switch resp.status {
	case http.StatusUnauthorized:
		class = ErrAuthenticationFailed
	case http.StatusForbidden:
		class = ErrAccessDenied
	}

	return &APIError{
		Operation:  op,
		StatusCode: resp.status,
		Message:    errorMessage(resp.body),
		Body:       resp.body,
		class:      class,
	}
}

// errorMessage extracts a human readable message from a JSON error body,
// falling back to a trimmed single-line excerpt of the raw body.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
	}

	msg := strings.ReplaceAll(string(body), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// isEmptyBody reports whether a success body carries no value.
func isEmptyBody(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) == 0 || bytes.Equal(body, []byte("null"))
}

// finish records metrics and logs the outcome of one call.
func (c *Client) finish(ctx context.Context, op string, p *principal.Principal, start time.Time, status int, err error) {
	outcome := outcomeOf(status, err)
	elapsed := time.Since(start)
	c.metrics.observe(op, outcome, elapsed)

	attrs := []any{
		logger.Operation(op),
		logger.UserID(p.ID()),
		logger.Duration(elapsed),
		slog.String("outcome", outcome),
	}
	if status > 0 {
		attrs = append(attrs, logger.StatusCode(status))
	}

	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		c.logger.WarnContext(ctx, "billing call failed", append(attrs, logger.Error(err))...)
		return
	}
	c.logger.DebugContext(ctx, "billing call finished", attrs...)
}
