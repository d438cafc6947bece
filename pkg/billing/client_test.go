package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/requestid"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...billing.Option) *billing.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := billing.NewClient(server.URL+"/api", opts...)
	require.NoError(t, err)
	return client
}

func testPrincipal(token string) *principal.Principal {
	return principal.New("user-1", "user@example.com", principal.StaticTokenSource(token))
}

// rotatingSource hands out the next token on each call.
type rotatingSource struct {
	mu     sync.Mutex
	tokens []string
	calls  int
}

func (r *rotatingSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.tokens[min(r.calls, len(r.tokens)-1)]
	r.calls++
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

type failingSource struct{ err error }

func (f failingSource) Token() (*oauth2.Token, error) { return nil, f.err }

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "trims trailing slash", baseURL: "http://localhost:5000/api/", want: "http://localhost:5000/api"},
		{name: "https", baseURL: "https://planner.example.com/api", want: "https://planner.example.com/api"},
		{name: "empty", baseURL: "  ", wantErr: true},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "missing host", baseURL: "http:///api", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := billing.NewClient(tt.baseURL)
			if tt.wantErr {
				require.ErrorIs(t, err, billing.ErrInvalidBaseURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.BaseURL())
		})
	}
}

func TestNewClientFromConfig(t *testing.T) {
	t.Parallel()

	client, err := billing.NewClientFromConfig(billing.Config{BaseURL: "http://localhost:5000/api"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", client.BaseURL())
}

func TestClient_RequestHeaders(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/subscription", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "planctl-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "req-123", r.Header.Get(requestid.Header))
		w.WriteHeader(http.StatusNotFound)
	}, billing.WithUserAgent("planctl-test"))

	ctx := requestid.WithContext(context.Background(), "req-123")
	sub, err := client.FetchSubscription(ctx, testPrincipal("token-abc"))
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestClient_UnauthenticatedMakesNoRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	_, err := client.FetchSubscription(ctx, nil)
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)

	_, err = client.CreateCheckoutSession(ctx, nil, billing.CheckoutOptions{})
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)
	assert.ErrorIs(t, err, billing.ErrCheckoutCreationFailed)

	_, err = client.VerifyStripeSession(ctx, nil, "cs_test_1")
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)
	assert.ErrorIs(t, err, billing.ErrPaymentVerificationFailed)

	_, err = client.CreateCustomerPortalSession(ctx, nil, billing.PortalOptions{})
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)
	assert.ErrorIs(t, err, billing.ErrPortalAccessFailed)

	_, err = client.GetFeatureLimits(ctx, nil)
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)

	_, err = client.UpdateFeatureLimits(ctx, nil, &billing.FeatureLimits{})
	assert.ErrorIs(t, err, billing.ErrUnauthenticated)

	assert.Zero(t, calls.Load())
}

func TestClient_TokenSourceFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	p := principal.New("user-1", "", failingSource{err: errors.New("refresh failed")})
	_, err := client.FetchSubscription(context.Background(), p)
	assert.ErrorIs(t, err, billing.ErrAuthenticationFailed)
	assert.True(t, billing.IsAuthError(err))
	assert.False(t, billing.IsRetryable(err))
	assert.Zero(t, calls.Load())
}

func TestClient_FreshTokenPerCall(t *testing.T) {
	t.Parallel()

	var seen []string
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		seen = append(seen, auth)
		mu.Unlock()

		if auth != "Bearer first" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"token revoked"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	source := &rotatingSource{tokens: []string{"first", "second"}}
	p := principal.New("user-1", "", source)

	sub, err := client.FetchSubscription(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, sub)

	_, err = client.FetchSubscription(context.Background(), p)
	require.ErrorIs(t, err, billing.ErrAuthenticationFailed)

	var apiErr *billing.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "token revoked", apiErr.Message)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := billing.NewClient(server.URL)
	require.NoError(t, err)
	server.Close()

	_, err = client.FetchSubscription(context.Background(), testPrincipal("t"))
	assert.ErrorIs(t, err, billing.ErrNetwork)
	assert.True(t, billing.IsRetryable(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSubscription(ctx, testPrincipal("t"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, billing.IsRetryable(err))
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	status := http.StatusNotFound
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}, billing.WithMetrics(reg))

	// A second client on the same registry reuses the collectors.
	_, err := billing.NewClient("http://localhost:5000/api", billing.WithMetrics(reg))
	require.NoError(t, err)

	p := testPrincipal("t")
	ctx := context.Background()

	_, err = client.FetchSubscription(ctx, p)
	require.NoError(t, err)

	mu.Lock()
	status = http.StatusForbidden
	mu.Unlock()
	_, err = client.FetchSubscription(ctx, p)
	require.Error(t, err)

	_, err = client.FetchSubscription(ctx, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpFetchSubscription, billing.OutcomeNotFound))
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpFetchSubscription, billing.OutcomeAccessDenied))
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpFetchSubscription, billing.OutcomeUnauthenticated))
}

func TestClient_MetricsForRejectedInput(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}, billing.WithMetrics(reg))

	ctx := context.Background()
	p := testPrincipal("t")

	_, err := client.VerifyStripeSession(ctx, nil, "cs_1")
	require.ErrorIs(t, err, billing.ErrUnauthenticated)
	_, err = client.VerifyStripeSession(ctx, p, "  ")
	require.ErrorIs(t, err, billing.ErrInvalidSessionID)

	_, err = client.UpdateFeatureLimits(ctx, nil, &billing.FeatureLimits{})
	require.ErrorIs(t, err, billing.ErrUnauthenticated)
	_, err = client.UpdateFeatureLimits(ctx, p, &billing.FeatureLimits{Free: billing.TierLimits{MaxGoals: -2}})
	require.ErrorIs(t, err, billing.ErrInvalidFeatureLimits)

	assert.Zero(t, requests.Load())
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpVerifySession, billing.OutcomeUnauthenticated))
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpVerifySession, billing.OutcomeInvalidInput))
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpUpdateFeatureLimits, billing.OutcomeUnauthenticated))
	assert.Equal(t, 1.0, counterValue(t, reg, billing.OpUpdateFeatureLimits, billing.OutcomeInvalidInput))
}

func counterValue(t *testing.T, reg *prometheus.Registry, op, outcome string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "lifeplanner_billing_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == op && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}
