package retry

import (
	"cmp"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before a retry. Attempt 1 is the first retry.
// Implementations must be safe for concurrent use.
type Backoff interface {
	NextInterval(attempt int) time.Duration
}

// BackoffFunc adapts a function to Backoff.
type BackoffFunc func(attempt int) time.Duration

func (f BackoffFunc) NextInterval(attempt int) time.Duration {
	return f(attempt)
}

// Exponential grows the delay by Multiplier per attempt up to MaxInterval:
// min(Initial * Multiplier^(attempt-1) * (1 ± Jitter), MaxInterval).
// Zero fields fall back to 1s, 30s and 2. Zero jitter is deterministic.
type Exponential struct {
	Initial     time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	Jitter      float64
}

func (e Exponential) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := cmp.Or(e.Initial, time.Second)
	maxInterval := cmp.Or(e.MaxInterval, 30*time.Second)
	multiplier := cmp.Or(e.Multiplier, 2)

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.Jitter > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.Jitter
	}

	return time.Duration(min(interval, float64(maxInterval)))
}

// Linear waits Interval * attempt, capped at MaxInterval.
type Linear struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l Linear) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	interval := cmp.Or(l.Interval, time.Second)
	maxInterval := cmp.Or(l.MaxInterval, 30*time.Second)
	return min(interval*time.Duration(attempt), maxInterval)
}

// Fixed always waits Interval.
type Fixed struct {
	Interval time.Duration
}

func (f Fixed) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoff doubles from one second and caps at thirty: 1s, 2s, 4s, 8s, 16s, 30s.
func DefaultBackoff() Backoff {
	return Exponential{
		Initial:     time.Second,
		MaxInterval: 30 * time.Second,
		Multiplier:  2,
	}
}
