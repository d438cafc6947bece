// Package billing is the client for the subscription and feature-limit
// endpoints of the planner API.
//
// Every operation takes the acting principal explicitly. A nil principal fails
// with ErrUnauthenticated before any request is made; otherwise a bearer token
// is obtained from the principal for each call and never stored.
//
// Failures fall into a small set of classes that callers branch on with
// errors.Is:
//
//	ErrUnauthenticated       no principal
//	ErrAuthenticationFailed  token unavailable or rejected (401)
//	ErrAccessDenied          principal lacks permission (403)
//	ErrNetwork               transport failure or any other non-success status
//	ErrParse                 success response that does not decode
//
// Non-success responses are returned as *APIError, which keeps the server body
// as received. FetchSubscription treats 404, empty bodies and undecodable
// bodies as "no subscription", so a nil *Subscription always means free tier.
//
// Basic usage:
//
//	client, err := billing.NewClient("https://api.example.com/api",
//		billing.WithLogger(log),
//		billing.WithMetrics(prometheus.DefaultRegisterer),
//	)
//	if err != nil {
//		return err
//	}
//
//	sub, err := client.FetchSubscription(ctx, p)
//	switch {
//	case billing.IsAuthError(err):
//		// ask the user to sign in again
//	case err != nil:
//		return err
//	case sub.IsPremium():
//		// premium features
//	}
//
// The client never retries. Package query layers retries, caching and polling
// on top of FetchSubscription.
package billing
