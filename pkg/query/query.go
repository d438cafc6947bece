package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
	"github.com/dmitrymomot/lifeplanner/pkg/logger"
	"github.com/dmitrymomot/lifeplanner/pkg/principal"
)

// Fetcher loads the subscription of a principal. *billing.Client implements it.
type Fetcher interface {
	FetchSubscription(ctx context.Context, p *principal.Principal) (*billing.Subscription, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, p *principal.Principal) (*billing.Subscription, error)

func (f FetcherFunc) FetchSubscription(ctx context.Context, p *principal.Principal) (*billing.Subscription, error) {
	return f(ctx, p)
}

// SubscriptionQuery keeps the signed-in user's subscription loaded.
//
// It is enabled only while the session has a principal. Loads are retried per
// the retry policy, overlapping loads for one principal share a single request,
// and successful results are cached in memory, never persisted.
// Safe for concurrent use.
type SubscriptionQuery struct {
	fetcher Fetcher
	session *principal.Session
	opts    *options
	logger  *slog.Logger

	cache *expirable.LRU[string, Result]
	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*inflightLoad
}

// inflightLoad identifies one running load, so a finished load never
// unregisters a newer one for the same key.
type inflightLoad struct {
	cancel context.CancelFunc
}

// NewSubscriptionQuery creates a query over fetcher for the principal of session.
func NewSubscriptionQuery(fetcher Fetcher, session *principal.Session, opts ...Option) *SubscriptionQuery {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &SubscriptionQuery{
		fetcher:  fetcher,
		session:  session,
		opts:     o,
		logger:   o.logger.With(logger.Component("subscription_query")),
		cache:    expirable.NewLRU[string, Result](o.cacheSize, nil, o.cacheTime),
		inflight: make(map[string]*inflightLoad),
	}
}

// CacheKey returns the cache key of p's subscription.
func CacheKey(p *principal.Principal) string {
	return "subscription:" + p.ID()
}

// Enabled reports whether a principal is signed in.
func (q *SubscriptionQuery) Enabled() bool {
	_, ok := q.session.Current()
	return ok
}

// Fetch loads the current principal's subscription, bypassing the cache.
// Without a principal it returns the zero Result and makes no request.
func (q *SubscriptionQuery) Fetch(ctx context.Context) Result {
	p, ok := q.session.Current()
	if !ok {
		return Result{}
	}
	return q.fetch(ctx, p)
}

// Get returns the cached result while it is younger than the stale time,
// and loads it otherwise.
func (q *SubscriptionQuery) Get(ctx context.Context) Result {
	p, ok := q.session.Current()
	if !ok {
		return Result{}
	}
	if res, ok := q.cache.Get(CacheKey(p)); ok && time.Since(res.FetchedAt) < q.opts.staleTime {
		return res
	}
	return q.fetch(ctx, p)
}

// Cached returns the cached result of the current principal without loading.
func (q *SubscriptionQuery) Cached() (Result, bool) {
	p, ok := q.session.Current()
	if !ok {
		return Result{}, false
	}
	return q.cache.Peek(CacheKey(p))
}

// Invalidate drops the current principal's cached result, so the next Get reloads.
func (q *SubscriptionQuery) Invalidate() {
	if p, ok := q.session.Current(); ok {
		q.cache.Remove(CacheKey(p))
	}
}

// Run loads the subscription whenever a principal signs in and then every
// refetch interval, passing each result to onResult. On sign-out it stops
// polling at once, cancels a load in flight and drops the cached result.
// Run blocks until ctx is done and returns its error.
func (q *SubscriptionQuery) Run(ctx context.Context, onResult func(Result)) error {
	for {
		changed := q.session.Changed()
		if p, ok := q.session.Current(); ok {
			q.poll(ctx, p, changed, onResult)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// poll serves p until ctx is done or the session changes.
func (q *SubscriptionQuery) poll(ctx context.Context, p *principal.Principal, changed <-chan struct{}, onResult func(Result)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-changed:
			cancel()
		case <-ctx.Done():
		}
	}()

	log := q.logger.With(logger.UserID(p.ID()))
	log.DebugContext(ctx, "subscription polling started", slog.Duration("interval", q.opts.refetchInterval))

	defer func() {
		if current, _ := q.session.Current(); current != p {
			q.forget(p)
			log.DebugContext(context.WithoutCancel(ctx), "subscription polling stopped, principal signed out")
		}
	}()

	var ticks <-chan time.Time
	if q.opts.refetchInterval > 0 {
		ticker := time.NewTicker(q.opts.refetchInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		res := q.fetch(ctx, p)
		if ctx.Err() != nil {
			return
		}
		onResult(res)

		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
	}
}

func (q *SubscriptionQuery) fetch(ctx context.Context, p *principal.Principal) Result {
	key := CacheKey(p)
	ch := q.group.DoChan(key, func() (any, error) {
		return q.load(ctx, key, p), nil
	})

	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err(), FetchedAt: time.Now()}
	case r := <-ch:
		return r.Val.(Result)
	}
}

// load performs one retried request. It outlives the caller that started it,
// since other callers may share it, and ends early only through forget.
func (q *SubscriptionQuery) load(ctx context.Context, key string, p *principal.Principal) Result {
	ctx, cancel := context.WithCancel(principal.WithContext(context.WithoutCancel(ctx), p))
	own := &inflightLoad{cancel: cancel}
	q.mu.Lock()
	q.inflight[key] = own
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		if q.inflight[key] == own {
			delete(q.inflight, key)
		}
		q.mu.Unlock()
		cancel()
	}()

	var sub *billing.Subscription
	attempts, err := q.opts.policy.Do(ctx, func(ctx context.Context) error {
		s, err := q.fetcher.FetchSubscription(ctx, p)
		if err != nil {
			return err
		}
		sub = s
		return nil
	})

	res := Result{Subscription: sub, Err: err, Attempts: attempts, FetchedAt: time.Now()}
	if err != nil {
		q.logger.WarnContext(ctx, "subscription load failed, treating user as free tier",
			logger.UserID(p.ID()),
			logger.Attempt(attempts),
			logger.Error(err),
		)
		return res
	}

	q.mu.Lock()
	if current, _ := q.session.Current(); ctx.Err() == nil && current == p {
		q.cache.Add(key, res)
	}
	q.mu.Unlock()

	return res
}

// forget cancels p's load in flight and drops its cached result.
func (q *SubscriptionQuery) forget(p *principal.Principal) {
	key := CacheKey(p)

	q.mu.Lock()
	defer q.mu.Unlock()

	if load, ok := q.inflight[key]; ok {
		load.cancel()
		delete(q.inflight, key)
	}
	q.cache.Remove(key)
	q.group.Forget(key)
}
