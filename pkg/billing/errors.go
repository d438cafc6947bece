package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Every error returned by Client matches exactly one of them
// (or a context error) through errors.Is.
var (
	ErrUnauthenticated      = errors.New("billing: no authenticated principal")
	ErrAuthenticationFailed = errors.New("billing: authentication failed")
	ErrAccessDenied         = errors.New("billing: access denied")
	ErrNetwork              = errors.New("billing: network error")
	ErrParse                = errors.New("billing: malformed response body")
)

// Operation-specific failures of the payment calls. They are reported together
// with a failure class, so errors.Is matches both.
var (
	ErrCheckoutCreationFailed    = errors.New("billing: checkout session creation failed")
	ErrPaymentVerificationFailed = errors.New("billing: payment verification failed")
	ErrPortalAccessFailed        = errors.New("billing: customer portal access failed")
)

// Input validation errors, returned before any request is made.
var (
	ErrInvalidBaseURL       = errors.New("billing: invalid API base URL")
	ErrInvalidSessionID     = errors.New("billing: checkout session id is required")
	ErrInvalidFeatureLimits = errors.New("billing: invalid feature limits")
)

// APIError is a non-success response from the billing API.
// Body holds the server's response exactly as received.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Body       []byte

	class error
	opErr error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Operation)
	b.WriteString(": ")
	if e.opErr != nil {
		b.WriteString(strings.TrimPrefix(e.opErr.Error(), "billing: "))
		b.WriteString(": ")
	}
	b.WriteString(strings.TrimPrefix(e.class.Error(), "billing: "))
	fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap exposes the failure class and, for payment calls, the operation error.
func (e *APIError) Unwrap() []error {
	if e.opErr == nil {
		return []error{e.class}
	}
	return []error{e.class, e.opErr}
}

// IsAuthError reports whether err is an authentication or authorization failure.
// Such failures are terminal: repeating the call cannot succeed.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrAccessDenied)
}

// IsRetryable reports whether repeating a read may succeed.
// Auth failures, invalid input and cancelled contexts are never retried.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case IsAuthError(err):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrInvalidBaseURL),
		errors.Is(err, ErrInvalidSessionID),
		errors.Is(err, ErrInvalidFeatureLimits):
		return false
	default:
		return true
	}
}

// withOperation tags err with an operation failure unless it already matches one.
func withOperation(err, opErr error) error {
	if err == nil || opErr == nil {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.opErr == nil {
		apiErr.opErr = opErr
		return apiErr
	}
	if errors.Is(err, opErr) {
		return err
	}
	return fmt.Errorf("%w: %w", opErr, err)
}
