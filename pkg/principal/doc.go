// Package principal models the authenticated user on whose behalf billing calls
// are made.
//
// A Principal pairs a user identity with an oauth2.TokenSource. Bearer tokens are
// requested from the source for every call and are never stored on the principal,
// so a token rotated by the authentication provider is picked up on the next
// request.
//
// Session holds the currently signed-in principal and lets watchers react to
// sign-in and sign-out through the Changed channel.
//
// # Usage
//
//	p, err := principal.FromToken(idToken, principal.FileTokenSource("/run/planner/token"))
//	if err != nil {
//		// handle malformed token
//	}
//
//	session := principal.NewSessionWith(p)
//	defer session.SignOut()
//
// # Token sources
//
//   - StaticTokenSource returns a fixed token (tests, one-shot commands).
//   - FileTokenSource re-reads a file on every call.
//   - EnvTokenSource re-reads an environment variable on every call.
//
// ParseIDToken decodes claims without verifying the signature. Signature
// verification is performed by the backend.
package principal
