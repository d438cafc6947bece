// Package retry repeats failed reads with a bounded number of attempts and a
// backoff between them.
//
//	attempts, err := retry.DefaultPolicy().Do(ctx, func(ctx context.Context) error {
//		sub, err = client.FetchSubscription(ctx, p)
//		return err
//	})
//
// DefaultPolicy makes at most four attempts and never repeats authentication
// or authorization failures, which cannot succeed on a second try.
// Side-effecting calls such as checkout creation must not be wrapped in a policy.
package retry
