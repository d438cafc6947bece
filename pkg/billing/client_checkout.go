package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/requestid"
)

// CheckoutOptions are optional parameters of a checkout session.
// The zero value lets the backend pick the default premium price and redirect URLs.
type CheckoutOptions struct {
	PriceID    string `json:"priceId,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// CheckoutSession is a hosted checkout created by the payment provider.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// VerifyResult is the backend's verdict on a completed checkout session.
type VerifyResult struct {
	Verified      bool          `json:"success"`
	PaymentStatus string        `json:"paymentStatus,omitempty"`
	Message       string        `json:"message,omitempty"`
	Subscription  *Subscription `json:"subscription,omitempty"`
}

// PortalOptions are optional parameters of a customer portal session.
type PortalOptions struct {
	ReturnURL string `json:"returnUrl,omitempty"`
}

// PortalSession is a pre-authenticated link to the provider's billing portal.
type PortalSession struct {
	URL string `json:"url"`
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

// CreateCheckoutSession starts a checkout for the principal.
// It is a one-shot, side-effecting call and is never retried.
// Failures match ErrCheckoutCreationFailed and their failure class.
func (c *Client) CreateCheckoutSession(ctx context.Context, p *principal.Principal, opts CheckoutOptions) (*CheckoutSession, error) {
	var session CheckoutSession
	err := c.post(ctx, p, OpCreateCheckout, PathCheckoutSession, opts, &session)
	if err == nil && session.SessionID == "" && session.URL == "" {
		err = fmt.Errorf("%w: response has neither session id nor url", ErrParse)
	}
	if err != nil {
		return nil, withOperation(err, ErrCheckoutCreationFailed)
	}
	return &session, nil
}

// VerifyStripeSession asks the backend to confirm the payment of a finished
// checkout session. Failures match ErrPaymentVerificationFailed and their failure class.
func (c *Client) VerifyStripeSession(ctx context.Context, p *principal.Principal, sessionID string) (*VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)

	var invalid error
	switch {
	case p == nil:
		invalid = ErrUnauthenticated
	case sessionID == "":
		invalid = ErrInvalidSessionID
	}
	if invalid != nil {
		c.finish(ctx, OpVerifySession, p, time.Now(), 0, invalid)
		return nil, withOperation(invalid, ErrPaymentVerificationFailed)
	}

	var result VerifyResult
	if err := c.post(ctx, p, OpVerifySession, PathVerifySession, verifyRequest{SessionID: sessionID}, &result); err != nil {
		return nil, withOperation(err, ErrPaymentVerificationFailed)
	}
	return &result, nil
}

// CreateCustomerPortalSession returns a link to the provider's billing portal.
// Failures match ErrPortalAccessFailed and their failure class.
func (c *Client) CreateCustomerPortalSession(ctx context.Context, p *principal.Principal, opts PortalOptions) (*PortalSession, error) {
	var session PortalSession
	err := c.post(ctx, p, OpCreatePortal, PathCustomerPortal, opts, &session)
	if err == nil && session.URL == "" {
		err = fmt.Errorf("%w: response has no portal url", ErrParse)
	}
	if err != nil {
		return nil, withOperation(err, ErrPortalAccessFailed)
	}
	return &session, nil
}

// post sends a JSON body and decodes a JSON success response into out.
func (c *Client) post(ctx context.Context, p *principal.Principal, op, path string, payload, out any) error {
	return c.exchange(ctx, p, op, http.MethodPost, path, payload, out)
}

// exchange performs one call whose success body must decode into out.
func (c *Client) exchange(ctx context.Context, p *principal.Principal, op, method, path string, payload, out any) error {
	ctx, _ = requestid.Ensure(ctx)
	start := time.Now()

	resp, err := c.send(ctx, p, method, path, payload)
	if err != nil {
		c.finish(ctx, op, p, start, 0, err)
		return err
	}

	if !resp.ok() {
		err := statusError(op, resp)
		c.finish(ctx, op, p, start, resp.status, err)
		return err
	}

	if isEmptyBody(resp.body) {
		err := fmt.Errorf("%w: empty response body", ErrParse)
		c.finish(ctx, op, p, start, resp.status, err)
		return err
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		err = fmt.Errorf("%w: %w", ErrParse, err)
		c.finish(ctx, op, p, start, resp.status, err)
		return err
	}

	c.finish(ctx, op, p, start, resp.status, nil)
	return nil
}
