package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/lifeplanner/pkg/principal"
	"github.com/dmitrymomot/lifeplanner/pkg/query"
)

const defaultSessionCheck = 5 * time.Second

var (
	watchInterval      time.Duration
	watchSessionCheck  time.Duration
	watchMetricsAddr   string
	watchStaleDuration time.Duration
)

type watchEvent struct {
	Time      time.Time `json:"time"`
	UserID    string    `json:"userId,omitempty"`
	Tier      string    `json:"tier"`
	Status    string    `json:"status,omitempty"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	SignedOut bool      `json:"signedOut,omitempty"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the subscription until interrupted",
	Long: `Poll the signed-in user's subscription and print one JSON line per result.

The token source is checked periodically: when the token disappears polling stops,
and it resumes as soon as a token is available again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchSessionCheck <= 0 {
			return fmt.Errorf("--session-check must be positive, got %s", watchSessionCheck)
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session := principal.NewSession()
		q := query.NewSubscriptionQuery(a.client, session,
			query.WithRefetchInterval(watchInterval),
			query.WithStaleTime(watchStaleDuration),
			query.WithLogger(a.log),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		g, ctx := errgroup.WithContext(ctx)

		if addr := cmp.Or(watchMetricsAddr, a.cfg.MetricsAddr); addr != "" {
			g.Go(func() error {
				return serveMetrics(ctx, addr, a.registry, a.log)
			})
		}

		g.Go(func() error {
			syncSession(ctx, session, a.signedIn, watchSessionCheck, func() {
				_ = enc.Encode(watchEvent{Time: time.Now().UTC(), Tier: "free", SignedOut: true})
			})
			return nil
		})

		g.Go(func() error {
			return q.Run(ctx, func(res query.Result) {
				p, _ := session.Current()
				ev := watchEvent{
					Time:     res.FetchedAt.UTC(),
					UserID:   p.ID(),
					Tier:     "free",
					Attempts: res.Attempts,
				}
				if res.IsPremium() {
					ev.Tier = "premium"
				}
				if res.Subscription != nil {
					ev.Status = string(res.Subscription.Status)
				}
				if res.Err != nil {
					ev.Error = res.Err.Error()
				}
				_ = enc.Encode(ev)
			})
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// syncSession keeps session in step with the token source: it signs in when a
// token for a new user appears and signs out when the token goes away.
// A non-positive every falls back to defaultSessionCheck.
func syncSession(ctx context.Context, session *principal.Session, current func() *principal.Principal, every time.Duration, onSignOut func()) {
	if every <= 0 {
		every = defaultSessionCheck
	}

	check := func() {
		p := current()
		active, ok := session.Current()
		switch {
		case p == nil && ok:
			session.SignOut()
			onSignOut()
		case p != nil && (!ok || active.ID() != p.ID()):
			session.SignIn(p)
		}
	}

	check()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func init() {
	flags := watchCmd.Flags()
	flags.DurationVar(&watchInterval, "interval", 30*time.Second, "refetch interval, 0 disables polling")
	flags.DurationVar(&watchSessionCheck, "session-check", defaultSessionCheck, "how often the token source is checked")
	flags.DurationVar(&watchStaleDuration, "stale", 0, "how long a loaded subscription is considered fresh")
	flags.StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")
}
