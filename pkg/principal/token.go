package principal

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// IDTokenClaims are the identity claims read from an ID token issued by the
// authentication provider. Only the fields the client needs are decoded.
type IDTokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseIDToken decodes the claims of an ID token WITHOUT verifying its signature.
// Verification is the backend's job; the client only needs the subject for
// logging and cache keys.
func ParseIDToken(raw string) (*IDTokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := &IDTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// FromToken builds a principal whose identity is taken from the claims of raw
// and whose bearer tokens come from tokens.
// Pass a nil source to use raw itself as a static token.
func FromToken(raw string, tokens oauth2.TokenSource) (*Principal, error) {
	claims, err := ParseIDToken(raw)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = StaticTokenSource(raw)
	}
	return New(claims.Subject, claims.Email, tokens), nil
}

// StaticTokenSource always returns the same token.
// Meant for tests and one-shot CLI invocations.
func StaticTokenSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: strings.TrimSpace(token),
		TokenType:   "Bearer",
	})
}

// FileTokenSource reads the token from path on every call, so an external
// refresher can rotate the file while the process keeps running.
func FileTokenSource(path string) oauth2.TokenSource {
	return fileTokenSource{path: path}
}

type fileTokenSource struct {
	path string
}

func (f fileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenFileAccess, err)
	}
	return bearerToken(string(data))
}

// EnvTokenSource reads the token from the named environment variable on every call.
func EnvTokenSource(name string) oauth2.TokenSource {
	return envTokenSource{name: name}
}

type envTokenSource struct {
	name string
}

func (e envTokenSource) Token() (*oauth2.Token, error) {
	return bearerToken(os.Getenv(e.name))
}

func bearerToken(raw string) (*oauth2.Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}

	// Expiry is informational only; the backend decides whether the token is still valid.
	if claims, err := ParseIDToken(raw); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}

	return tok, nil
}
