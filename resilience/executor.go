package resilience

import (
	"context"
	"time"
)

// Guard runs an operation under some protection. CircuitBreaker,
// RateLimiter, Bulkhead, Timeout and Executor are guards.
type Guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Config describes an Executor. Nil or zero fields disable that guard.
type Config struct {
	CircuitBreaker *CircuitBreakerConfig
	RateLimit      *RateLimiterConfig
	MaxConcurrent  int
	Timeout        time.Duration
}

// IsZero reports whether c enables no guard.
func (c Config) IsZero() bool {
	return c.CircuitBreaker == nil && c.RateLimit == nil && c.MaxConcurrent <= 0 && c.Timeout <= 0
}

// Executor nests guards around an operation, the first guard outermost.
// A nil Executor runs operations directly.
type Executor struct {
	guards []Guard
}

// NewExecutor returns an Executor over guards, outermost first. Nil guards
// are skipped.
func NewExecutor(guards ...Guard) *Executor {
	e := &Executor{}
	for _, g := range guards {
		if g != nil {
			e.guards = append(e.guards, g)
		}
	}
	return e
}

// NewExecutorFromConfig enables the guards cfg names. A call meets them in
// the order rate limiter, bulkhead, circuit breaker, timeout, so the breaker
// counts a timed out call as a failure and never sees calls the limiter or
// the bulkhead turned away.
func NewExecutorFromConfig(cfg Config) *Executor {
	var guards []Guard
	if cfg.RateLimit != nil {
		guards = append(guards, NewRateLimiter(*cfg.RateLimit))
	}
	if cfg.MaxConcurrent > 0 {
		guards = append(guards, NewBulkhead(BulkheadConfig{MaxConcurrent: cfg.MaxConcurrent}))
	}
	if cfg.CircuitBreaker != nil {
		guards = append(guards, NewCircuitBreaker(*cfg.CircuitBreaker))
	}
	if cfg.Timeout > 0 {
		guards = append(guards, Timeout(cfg.Timeout))
	}
	return NewExecutor(guards...)
}

// CircuitBreaker returns the first circuit breaker guard, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	if e == nil {
		return nil
	}
	for _, g := range e.guards {
		if cb, ok := g.(*CircuitBreaker); ok {
			return cb
		}
	}
	return nil
}

// Execute runs op inside every guard.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}
	call := op
	for i := len(e.guards) - 1; i >= 0; i-- {
		call = wrap(call, e.guards[i])
	}
	return call(ctx)
}

func wrap(inner func(context.Context) error, g Guard) func(context.Context) error {
	return func(ctx context.Context) error {
		return g.Execute(ctx, inner)
	}
}

var (
	_ Guard = (*CircuitBreaker)(nil)
	_ Guard = (*RateLimiter)(nil)
	_ Guard = (*Bulkhead)(nil)
	_ Guard = Timeout(0)
	_ Guard = (*Executor)(nil)
)
