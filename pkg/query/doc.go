// Package query keeps the signed-in user's subscription loaded in memory.
//
// SubscriptionQuery sits between the UI-facing code and billing.Client. It is
// disabled while nobody is signed in, retries transient failures (but never
// 401 or 403), shares one request among overlapping callers and, in Run, polls
// at a configurable interval until the user signs out.
//
//	q := query.NewSubscriptionQuery(client, session,
//		query.WithRefetchInterval(time.Minute),
//		query.WithStaleTime(30*time.Second),
//	)
//	go q.Run(ctx, func(res query.Result) {
//		showPremium(res.IsPremium())
//	})
//
// Results are fail-closed: an error or a missing subscription reads as the
// free tier.
package query
