package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of lifeplanner_billing_requests_total.
const (
	OutcomeSuccess         = "success"
	OutcomeNotFound        = "not_found"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeAuthFailed      = "auth_failed"
	OutcomeAccessDenied    = "access_denied"
	OutcomeNetworkError    = "network_error"
	OutcomeParseError      = "parse_error"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeCancelled       = "cancelled"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Subsystem: "billing",
			Name:      "requests_total",
			Help:      "Total number of billing API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifeplanner",
			Subsystem: "billing",
			Name:      "request_duration_seconds",
			Help:      "Billing API call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return &metrics{requests: requests, duration: duration}, nil
}

// register adds c to reg, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register billing metrics: %w", err)
	}
	return c, nil
}

func (m *metrics) observe(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func outcomeOf(status int, err error) string {
	switch {
	case err == nil && status == http.StatusNotFound:
		return OutcomeNotFound
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrAuthenticationFailed):
		return OutcomeAuthFailed
	case errors.Is(err, ErrAccessDenied):
		return OutcomeAccessDenied
	case errors.Is(err, ErrParse):
		return OutcomeParseError
	case errors.Is(err, ErrInvalidSessionID), errors.Is(err, ErrInvalidFeatureLimits):
		return OutcomeInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeNetworkError
	}
}
