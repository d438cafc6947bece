package billing

import (
	"encoding/json"
	"time"
)

// Status is the payment provider's subscription status.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPaused            Status = "paused"
)

// Subscription is the billing record the backend keeps for a user.
// A nil *Subscription means the user is on the free tier.
// The client only reads it; Raw keeps the payload as received.
type Subscription struct {
	ID                string     `json:"id,omitempty"`
	CustomerID        string     `json:"customerId,omitempty"`
	Status            Status     `json:"status"`
	PlanID            string     `json:"planId,omitempty"`
	CurrentPeriodEnd  *Timestamp `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	type alias Subscription
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Subscription(a)
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// IsActive reports whether the provider considers the subscription paid or trialing.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsPremiumAt reports whether the subscription grants premium access at now.
// Nil, inactive and lapsed subscriptions are all treated as free tier.
func (s *Subscription) IsPremiumAt(now time.Time) bool {
	if !s.IsActive() {
		return false
	}
	if s.CurrentPeriodEnd != nil && !s.CurrentPeriodEnd.IsZero() && now.After(s.CurrentPeriodEnd.Time) {
		return false
	}
	return true
}

// IsPremium reports whether the subscription grants premium access now.
func (s *Subscription) IsPremium() bool {
	return s.IsPremiumAt(time.Now().UTC())
}

// WillCancel reports whether the subscription ends at the close of the current period.
func (s *Subscription) WillCancel() bool {
	return s != nil && s.CancelAtPeriodEnd
}
