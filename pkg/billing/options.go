package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer
	userAgent  string
}

// defaultOptions uses an HTTP client without an overall timeout:
// request deadlines come from the caller's context and the transport.
func defaultOptions() *options {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	return &options{
		httpClient: &http.Client{Transport: transport},
		logger:     slog.Default(),
		userAgent:  defaultUserAgent,
	}
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets a custom HTTP client.
// Useful for custom transports, proxies, or testing.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithLogger sets the logger used for call outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics registers request counters and latency histograms on reg.
// Collectors already registered by another client on the same registerer are reused.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}
