package principal

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// Principal is an authenticated user of the planner.
// It never stores a bearer token; every Token call asks the token source again,
// so callers must not keep the returned value past a single request.
type Principal struct {
	UserID string
	Email  string

	// Tokens issues bearer credentials for this principal.
	Tokens oauth2.TokenSource
}

// New creates a principal backed by the given token source.
func New(userID, email string, tokens oauth2.TokenSource) *Principal {
	return &Principal{
		UserID: userID,
		Email:  email,
		Tokens: tokens,
	}
}

// Token obtains a fresh bearer token for a single request.
// The context is checked before the token source is consulted because
// oauth2.TokenSource has no context parameter.
func (p *Principal) Token(ctx context.Context) (string, error) {
	if p == nil {
		return "", ErrNoPrincipal
	}
	if p.Tokens == nil {
		return "", ErrNoTokenSource
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tok, err := p.Tokens.Token()
	if err != nil {
		return "", err
	}
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return "", ErrEmptyToken
	}

	return tok.AccessToken, nil
}

// ID returns the user identifier or an empty string for a nil principal.
func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	return p.UserID
}
