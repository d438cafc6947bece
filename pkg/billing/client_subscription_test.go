package billing_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

func TestClient_FetchSubscription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantNil  bool
		wantErr  error
		checkSub func(t *testing.T, sub *billing.Subscription)
	}{
		{
			name:   "active subscription",
			status: http.StatusOK,
			body:   `{"id":"sub_1","customerId":"cus_1","status":"active","planId":"premium_monthly","currentPeriodEnd":{"_seconds":4102444800,"_nanoseconds":0}}`,
			checkSub: func(t *testing.T, sub *billing.Subscription) {
				assert.Equal(t, "sub_1", sub.ID)
				assert.Equal(t, "cus_1", sub.CustomerID)
				assert.Equal(t, billing.StatusActive, sub.Status)
				assert.Equal(t, "premium_monthly", sub.PlanID)
				require.NotNil(t, sub.CurrentPeriodEnd)
				assert.Equal(t, int64(4102444800), sub.CurrentPeriodEnd.Unix())
				assert.True(t, sub.IsPremium())
				assert.JSONEq(t, `{"id":"sub_1","customerId":"cus_1","status":"active","planId":"premium_monthly","currentPeriodEnd":{"_seconds":4102444800,"_nanoseconds":0}}`, string(sub.Raw))
			},
		},
		{
			name:   "unknown fields are kept in raw",
			status: http.StatusOK,
			body:   `{"status":"canceled","stripePriceId":"price_1"}`,
			checkSub: func(t *testing.T, sub *billing.Subscription) {
				assert.Equal(t, billing.StatusCanceled, sub.Status)
				assert.False(t, sub.IsPremium())
				assert.Contains(t, string(sub.Raw), "stripePriceId")
			},
		},
		{name: "not found means free tier", status: http.StatusNotFound, body: `{"error":"no subscription"}`, wantNil: true},
		{name: "empty body", status: http.StatusOK, body: "", wantNil: true},
		{name: "null body", status: http.StatusOK, body: "null", wantNil: true},
		{name: "unparsable body", status: http.StatusOK, body: "<html>oops</html>", wantNil: true},
		{name: "wrong shape", status: http.StatusOK, body: `["active"]`, wantNil: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: billing.ErrAuthenticationFailed},
		{name: "forbidden", status: http.StatusForbidden, wantErr: billing.ErrAccessDenied},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: billing.ErrNetwork},
		{name: "bad request", status: http.StatusBadRequest, wantErr: billing.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/subscription", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			sub, err := client.FetchSubscription(context.Background(), testPrincipal("t"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sub)

				var apiErr *billing.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Equal(t, billing.OpFetchSubscription, apiErr.Operation)
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, sub)
				assert.False(t, sub.IsPremium())
				return
			}
			require.NotNil(t, sub)
			tt.checkSub(t, sub)
		})
	}
}

func TestSubscription_IsPremiumAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := &billing.Timestamp{Time: now.Add(24 * time.Hour)}
	past := &billing.Timestamp{Time: now.Add(-time.Hour)}

	tests := []struct {
		name string
		sub  *billing.Subscription
		want bool
	}{
		{name: "nil", sub: nil, want: false},
		{name: "active without period end", sub: &billing.Subscription{Status: billing.StatusActive}, want: true},
		{name: "trialing", sub: &billing.Subscription{Status: billing.StatusTrialing, CurrentPeriodEnd: future}, want: true},
		{name: "active but lapsed", sub: &billing.Subscription{Status: billing.StatusActive, CurrentPeriodEnd: past}, want: false},
		{name: "past due", sub: &billing.Subscription{Status: billing.StatusPastDue, CurrentPeriodEnd: future}, want: false},
		{name: "canceled", sub: &billing.Subscription{Status: billing.StatusCanceled}, want: false},
		{name: "unknown status", sub: &billing.Subscription{Status: "mystery"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sub.IsPremiumAt(now))
		})
	}
}

func TestSubscription_WillCancel(t *testing.T) {
	t.Parallel()

	var nilSub *billing.Subscription
	assert.False(t, nilSub.WillCancel())
	assert.True(t, (&billing.Subscription{Status: billing.StatusActive, CancelAtPeriodEnd: true}).WillCancel())
}
