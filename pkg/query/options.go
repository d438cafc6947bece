package query

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/retry"
)

const (
	defaultCacheTime = 5 * time.Minute
	defaultCacheSize = 64
)

type options struct {
	refetchInterval time.Duration
	staleTime       time.Duration
	cacheTime       time.Duration
	cacheSize       int
	policy          retry.Policy
	logger          *slog.Logger
}

func defaultOptions() *options {
	return &options{
		cacheTime: defaultCacheTime,
		cacheSize: defaultCacheSize,
		policy:    retry.DefaultPolicy(),
		logger:    slog.Default(),
	}
}

// Option configures a SubscriptionQuery.
type Option func(*options)

// WithRefetchInterval makes Run reload the subscription every d.
// Zero or negative disables polling.
func WithRefetchInterval(d time.Duration) Option {
	return func(o *options) {
		o.refetchInterval = max(d, 0)
	}
}

// WithStaleTime sets how long Get serves a cached result without reloading.
// The default of zero makes every Get reload.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) {
		o.staleTime = max(d, 0)
	}
}

// WithCacheTime sets how long a successful result stays in memory.
func WithCacheTime(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cacheTime = d
		}
	}
}

// WithCacheSize bounds the number of principals with a cached result.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithRetryPolicy replaces the retry policy of subscription loads.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithBackoff keeps the retry classification and changes only the delays.
func WithBackoff(b retry.Backoff) Option {
	return func(o *options) {
		o.policy.Backoff = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
