package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/requestid"
)

// FetchSubscription returns the principal's subscription, or nil when the user
// has none (free tier).
//
//   - 404 and an empty or null body yield (nil, nil).
//   - 401 fails with ErrAuthenticationFailed, 403 with ErrAccessDenied,
//     any other non-success status with ErrNetwork.
//   - A success body that does not decode is logged and yields (nil, nil):
//     a malformed payload must not block the caller, which then shows the free tier.
func (c *Client) FetchSubscription(ctx context.Context, p *principal.Principal) (*Subscription, error) {
	ctx, _ = requestid.Ensure(ctx)
	start := time.Now()

	resp, err := c.send(ctx, p, http.MethodGet, PathSubscription, nil)
	if err != nil {
		c.finish(ctx, OpFetchSubscription, p, start, 0, err)
		return nil, err
	}

	if resp.status == http.StatusNotFound {
		c.finish(ctx, OpFetchSubscription, p, start, resp.status, nil)
		return nil, nil
	}

	if !resp.ok() {
		err := statusError(OpFetchSubscription, resp)
		c.finish(ctx, OpFetchSubscription, p, start, resp.status, err)
		return nil, err
	}

	sub, err := decodeSubscription(resp.body)
	if err != nil {
		// Parse failures degrade to "no subscription".
		c.finish(ctx, OpFetchSubscription, p, start, resp.status, err)
		return nil, nil
	}

	c.finish(ctx, OpFetchSubscription, p, start, resp.status, nil)
	return sub, nil
}

// decodeSubscription decodes a success body of GET /subscription.
// Empty and null bodies decode to nil; anything that is not a subscription
// object fails with ErrParse.
func decodeSubscription(body []byte) (*Subscription, error) {
	if isEmptyBody(body) {
		return nil, nil
	}

	var sub Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &sub, nil
}
