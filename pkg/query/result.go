package query

import (
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

// Result is the outcome of one subscription load.
// The zero value is the result of a disabled query: no principal, no request.
type Result struct {
	Subscription *billing.Subscription
	Err          error
	// Attempts is the number of requests made, retries included.
	Attempts  int
	FetchedAt time.Time
}

// IsPremium reports whether the result grants premium access.
// Errors and missing subscriptions fall back to the free tier.
func (r Result) IsPremium() bool {
	return r.Err == nil && r.Subscription.IsPremium()
}

// Disabled reports whether no request was made because nobody is signed in.
func (r Result) Disabled() bool {
	return r.Attempts == 0 && r.Err == nil && r.FetchedAt.IsZero()
}
