// Package resilience guards calls to the upstream chain API.
//
// The ABI cache never retries a failed fetch itself; a failure is reported
// to every waiter and the next lookup starts a fresh fetch. What this
// package adds is protection for the upstream node: a circuit breaker that
// stops hammering a failing endpoint, a token-bucket rate limiter, a
// bulkhead bounding concurrent requests and a per-request timeout.
//
// Guards compose through an Executor, usually built from configuration:
//
//	exec := resilience.NewExecutorFromConfig(resilience.Config{
//	    CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 5},
//	    RateLimit:      &resilience.RateLimiterConfig{Rate: 50, Burst: 10},
//	    MaxConcurrent:  16,
//	    Timeout:        5 * time.Second,
//	})
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return client.do(ctx, req)
//	})
//
// Any value with an Execute method is a Guard, so NewExecutor also nests
// hand-built guards, outermost first.
//
// Errors produced by a guard itself satisfy IsRejection. The circuit
// breaker and the rate limiter also attach a wait, read with RetryAfter.
package resilience
