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

// GetFeatureLimits returns the limits document of both tiers.
func (c *Client) GetFeatureLimits(ctx context.Context, p *principal.Principal) (*FeatureLimits, error) {
	var limits FeatureLimits
	if err := c.exchange(ctx, p, OpGetFeatureLimits, http.MethodGet, PathFeatureLimit, nil, &limits); err != nil {
		return nil, err
	}
	return &limits, nil
}

// UpdateFeatureLimits replaces the limits document.
//
// Only administrators may do this, and only the server decides who is one:
// the request is always sent, and a rejection comes back as ErrAccessDenied
// with the server's body unmodified in APIError.Body. When the server
// acknowledges with an empty body, the submitted limits are returned.
func (c *Client) UpdateFeatureLimits(ctx context.Context, p *principal.Principal, limits *FeatureLimits) (*FeatureLimits, error) {
	ctx, _ = requestid.Ensure(ctx)
	start := time.Now()

	if p == nil {
		c.finish(ctx, OpUpdateFeatureLimits, p, start, 0, ErrUnauthenticated)
		return nil, ErrUnauthenticated
	}
	if err := limits.Validate(); err != nil {
		c.finish(ctx, OpUpdateFeatureLimits, p, start, 0, err)
		return nil, err
	}

	resp, err := c.send(ctx, p, http.MethodPut, PathFeatureLimit, limits)
	if err != nil {
		c.finish(ctx, OpUpdateFeatureLimits, p, start, 0, err)
		return nil, err
	}

	if !resp.ok() {
		err := statusError(OpUpdateFeatureLimits, resp)
		c.finish(ctx, OpUpdateFeatureLimits, p, start, resp.status, err)
		return nil, err
	}

	if isEmptyBody(resp.body) {
		c.finish(ctx, OpUpdateFeatureLimits, p, start, resp.status, nil)
		saved := *limits
		return &saved, nil
	}

	var saved FeatureLimits
	if err := json.Unmarshal(resp.body, &saved); err != nil {
		err = fmt.Errorf("%w: %w", ErrParse, err)
		c.finish(ctx, OpUpdateFeatureLimits, p, start, resp.status, err)
		return nil, err
	}

	c.finish(ctx, OpUpdateFeatureLimits, p, start, resp.status, nil)
	return &saved, nil
}
