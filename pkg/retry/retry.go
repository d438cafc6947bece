package retry

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 3

// Policy decides whether and when a failed read is repeated.
type Policy struct {
	// MaxRetries bounds the retries after the first attempt. Negative means none.
	MaxRetries int
	// Backoff computes the wait before each retry. Nil retries immediately.
	Backoff Backoff
	// Retryable classifies errors. Nil retries every error.
	Retryable func(error) bool
}

// DefaultPolicy retries transient billing failures three times with DefaultBackoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff(),
		Retryable:  DefaultRetryable,
	}
}

// DefaultRetryable refuses to repeat authentication and authorization
// failures, invalid input and cancelled contexts. Everything else is retried.
func DefaultRetryable(err error) bool {
	return billing.IsRetryable(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, the retries are
// exhausted or ctx is done. It returns the number of attempts made and the last
// error; when ctx ends during a wait, the context error is joined with it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			return attempts, nil
		}

		if attempts > p.MaxRetries || !p.retryable(err) {
			return attempts, err
		}

		if waitErr := sleep(ctx, p.delay(attempts)); waitErr != nil {
			return attempts, errors.Join(waitErr, err)
		}
	}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.NextInterval(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
