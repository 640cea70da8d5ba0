package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds a whole CheckAll pass.
const DefaultCheckTimeout = 10 * time.Second

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds Check and CheckAll. Default DefaultCheckTimeout.
	Timeout time.Duration

	// MaxParallel caps how many checks CheckAll runs at once. Zero runs them
	// all together; 1 runs them one after another.
	MaxParallel int
}

// Aggregator runs a set of named checkers. It is safe for concurrent use.
type Aggregator struct {
	timeout     time.Duration
	maxParallel int

	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	a := &Aggregator{timeout: cfg.Timeout, maxParallel: cfg.MaxParallel, checkers: make(map[string]Checker)}
	if a.timeout <= 0 {
		a.timeout = DefaultCheckTimeout
	}
	return a
}

// Register adds checker under name, replacing any previous one.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	a.checkers[name] = checker
	a.mu.Unlock()
}

// CheckerNames returns the registered names in order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Sorted(maps.Keys(a.checkers))
}

// Check runs the checker registered as name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, checker), nil
}

// CheckAll runs every checker and keys the results by registration name.
// A checker still running at the deadline is reported unhealthy with
// ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Sorted(maps.Keys(a.checkers))
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out := make([]Result, len(checkers))
	var g errgroup.Group
	if a.maxParallel > 0 {
		g.SetLimit(a.maxParallel)
	}
	for i, checker := range checkers {
		g.Go(func() error {
			out[i] = run(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]Result, len(names))
	for i, name := range names {
		results[name] = out[i]
	}
	return results
}

// Worst returns the worst status in results. No results is healthy.
func Worst(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

func run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		r := checker.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r.WithDuration(time.Since(start))
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout).WithDuration(time.Since(start))
		r.Timestamp = start
		return r
	}
}

var summaries = [...]string{
	StatusHealthy:   "all checks passed",
	StatusDegraded:  "some checks degraded",
	StatusUnhealthy: "some checks failed",
}

// Checker folds the aggregator into a single checker named "aggregate". Its
// details hold one entry per registered checker.
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		results := a.CheckAll(ctx)
		details := make(map[string]any, len(results))
		for name, r := range results {
			details[name] = map[string]any{
				"status":   r.Status.String(),
				"message":  r.Message,
				"duration": r.Duration.String(),
			}
		}

		status := Worst(results)
		var err error
		if status == StatusUnhealthy {
			err = ErrCheckFailed
		}
		return newResult(status, summaries[status], err).WithDetails(details)
	})
}
