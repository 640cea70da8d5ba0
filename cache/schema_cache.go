package cache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/health"
	"github.com/jonwraymond/abicache/observe"
)

// SchemaCache resolves account ABIs through a Fetcher and remembers them.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Coalescing: at most one fetch per key is in flight; every caller waiting
// on it receives the same *abi.ABI or the same error value.
// - Failures: nothing is stored for a failed fetch; the next GetABI retries.
// - Ownership: stored ABIs are shared and must not be modified.
// - SetABI racing an in-flight fetch of the same key: the later write wins.
type SchemaCache struct {
	fetcher Fetcher
	keyer   Keyer
	policy  Policy
	logger  observe.Logger
	metrics observe.Metrics
	mw      FetchWrapper

	mu       sync.Mutex
	resolved map[string]*abi.ABI
	pending  map[string]*pendingFetch

	hits        atomic.Int64
	misses      atomic.Int64
	coalesced   atomic.Int64
	fetches     atomic.Int64
	fetchErrors atomic.Int64
	injects     atomic.Int64
}

// pendingFetch is the shared handle of one in-flight fetch. abi and err are
// written before done is closed and never after.
type pendingFetch struct {
	done chan struct{}
	abi  *abi.ABI
	err  error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries     int   `json:"entries"`
	Pending     int   `json:"pending"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Coalesced   int64 `json:"coalesced"`
	Fetches     int64 `json:"fetches"`
	FetchErrors int64 `json:"fetchErrors"`
	Injects     int64 `json:"injects"`
}

// Option configures a SchemaCache.
type Option func(*SchemaCache)

// WithPolicy sets the cache policy.
func WithPolicy(p Policy) Option {
	return func(c *SchemaCache) {
		c.policy = p
	}
}

// WithKeyer replaces the default NameKeyer.
func WithKeyer(k Keyer) Option {
	return func(c *SchemaCache) {
		if k != nil {
			c.keyer = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(c *SchemaCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder for lookups and injections.
func WithMetrics(m observe.Metrics) Option {
	return func(c *SchemaCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// FetchWrapper decorates the remote fetch step. *observe.Middleware
// implements it. Wrapped functions must pass the *FetchResult through.
type FetchWrapper interface {
	Wrap(fn observe.FetchFunc) observe.FetchFunc
}

// WithMiddleware wraps every remote fetch with mw, typically an
// *observe.Middleware adding a span, fetch metrics and a log line.
func WithMiddleware(mw FetchWrapper) Option {
	return func(c *SchemaCache) {
		c.mw = mw
	}
}

// New creates a SchemaCache in front of fetcher. A nil fetcher gives an
// inject-only cache whose misses fail with ErrNoFetcher.
func New(fetcher Fetcher, opts ...Option) *SchemaCache {
	c := &SchemaCache{
		fetcher:  fetcher,
		keyer:    NewNameKeyer(),
		policy:   DefaultPolicy(),
		logger:   observe.NoopLogger(),
		metrics:  observe.NoopMetrics(),
		resolved: make(map[string]*abi.ABI),
		pending:  make(map[string]*pendingFetch),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetABI returns the ABI of account, fetching it at most once.
//
// A resolved entry is returned immediately. Otherwise the caller joins the
// fetch in flight for the key, or starts one. The fetch runs detached from
// ctx: a caller whose ctx ends stops waiting and gets ctx.Err(), while the
// fetch continues for the other waiters.
//
// An empty payload fails with *NotFoundError. Fetch errors are returned
// unchanged; a payload that does not parse returns *abi.ValidationError.
func (c *SchemaCache) GetABI(ctx context.Context, account any) (*abi.ABI, error) {
	key, name, err := c.keyer.Key(account)
	if err != nil {
		return nil, err
	}
	meta := observe.AccountMeta{Account: key}

	c.mu.Lock()
	if a, ok := c.resolved[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		c.metrics.RecordLookup(ctx, meta, observe.OutcomeHit)
		return a, nil
	}
	p, inFlight := c.pending[key]
	if !inFlight {
		p = &pendingFetch{done: make(chan struct{})}
		c.pending[key] = p
	}
	c.mu.Unlock()

	if inFlight {
		c.coalesced.Add(1)
		c.metrics.RecordLookup(ctx, meta, observe.OutcomeCoalesced)
	} else {
		c.misses.Add(1)
		c.metrics.RecordLookup(ctx, meta, observe.OutcomeMiss)
		go c.fetch(context.WithoutCancel(ctx), key, name, p)
	}

	select {
	case <-p.done:
		return p.abi, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch settles p. The pending entry is removed, and on success the resolved
// entry installed, under one lock acquisition before any waiter is released.
func (c *SchemaCache) fetch(ctx context.Context, key string, name abi.Name, p *pendingFetch) {
	if c.policy.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.FetchTimeout)
		defer cancel()
	}

	a, err := c.load(ctx, key, name)

	c.mu.Lock()
	p.abi, p.err = a, err
	if c.pending[key] == p {
		delete(c.pending, key)
	}
	if err == nil {
		c.resolved[key] = a
	}
	c.mu.Unlock()

	close(p.done)
}

func (c *SchemaCache) load(ctx context.Context, key string, name abi.Name) (a *abi.ABI, err error) {
	meta := observe.AccountMeta{Account: key, Source: "fetch"}
	logger := c.logger.WithAccount(meta)

	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
		if err != nil {
			c.fetchErrors.Add(1)
			logger.Warn(ctx, "abi lookup failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}()

	if c.fetcher == nil {
		return nil, ErrNoFetcher
	}

	fetch := func(ctx context.Context, _ observe.AccountMeta) (any, error) {
		return c.fetcher.FetchRawABI(ctx, name)
	}
	if c.mw != nil {
		fetch = c.mw.Wrap(fetch)
	}

	c.fetches.Add(1)
	out, err := fetch(ctx, meta)
	if err != nil {
		return nil, err
	}

	res, ok := out.(*FetchResult)
	if !ok && out != nil {
		return nil, fmt.Errorf("%w: got %T", ErrUnexpectedResult, out)
	}
	if res == nil || len(res.ABI) == 0 {
		return nil, &NotFoundError{Account: key}
	}

	a, err = abi.From(res.ABI)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "abi resolved", observe.Field{Key: "version", Value: a.Version})
	return a, nil
}

// SetABI stores an ABI for account without a network call.
//
// input is anything abi.From accepts. With merge false, or when no ABI is
// stored for account, the parsed ABI replaces the entry. With merge true the
// stored and parsed ABIs are combined according to Policy.Merge. Invalid
// input returns *abi.ValidationError and leaves the cache unchanged.
//
// SetABI never waits for, or affects, a fetch in flight.
func (c *SchemaCache) SetABI(account any, input any, merge bool) error {
	key, _, err := c.keyer.Key(account)
	if err != nil {
		return err
	}
	a, err := abi.From(input)
	if err != nil {
		return err
	}

	c.mu.Lock()
	existing, ok := c.resolved[key]
	merged := merge && ok
	if merged {
		a = c.policy.merge(existing, a)
	}
	c.resolved[key] = a
	c.mu.Unlock()

	c.injects.Add(1)
	meta := observe.AccountMeta{Account: key, Source: "inject"}
	ctx := context.Background()
	c.metrics.RecordInject(ctx, meta, merged)
	c.logger.WithAccount(meta).Debug(ctx, "abi injected",
		observe.Field{Key: "merged", Value: merged},
		observe.Field{Key: "structs", Value: len(a.Structs)},
	)
	return nil
}

// Lookup returns the stored ABI of account without fetching.
func (c *SchemaCache) Lookup(account any) (*abi.ABI, bool) {
	key, _, err := c.keyer.Key(account)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.resolved[key]
	return a, ok
}

// IsPending reports whether a fetch for account is in flight.
func (c *SchemaCache) IsPending(account any) bool {
	key, _, err := c.keyer.Key(account)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key]
	return ok
}

// Prefetch resolves accounts concurrently and returns the first error.
// Accounts that resolve are stored even when another account fails.
func (c *SchemaCache) Prefetch(ctx context.Context, accounts ...any) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.policy.prefetchLimit())
	for _, account := range accounts {
		g.Go(func() error {
			_, err := c.GetABI(gctx, account)
			return err
		})
	}
	return g.Wait()
}

// Len returns the number of stored ABIs.
func (c *SchemaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolved)
}

// Keys returns the stored account keys in sorted order.
func (c *SchemaCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.resolved))
}

// Stats returns a snapshot of the cache counters.
func (c *SchemaCache) Stats() Stats {
	c.mu.Lock()
	entries, pending := len(c.resolved), len(c.pending)
	c.mu.Unlock()

	return Stats{
		Entries:     entries,
		Pending:     pending,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Coalesced:   c.coalesced.Load(),
		Fetches:     c.fetches.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Injects:     c.injects.Load(),
	}
}

// HealthChecker reports the cache as healthy with its counters as details.
// A cache without a Fetcher is degraded: only injected ABIs can be served.
func (c *SchemaCache) HealthChecker() health.Checker {
	return health.NewCheckerFunc("abi-cache", func(context.Context) health.Result {
		s := c.Stats()
		details := map[string]any{
			"entries":      s.Entries,
			"pending":      s.Pending,
			"fetches":      s.Fetches,
			"fetch_errors": s.FetchErrors,
		}
		if c.fetcher == nil {
			return health.Degraded("no fetcher configured").WithDetails(details)
		}
		return health.Healthy("abi cache ready").WithDetails(details)
	})
}

var _ FetchWrapper = (*observe.Middleware)(nil)
