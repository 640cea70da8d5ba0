package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/abicache/resilience"
)

var errNode = errors.New("chain: 502 bad gateway")

func ExampleCircuitBreaker_State() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		OnStateChange: func(from, to resilience.State) {
			fmt.Printf("circuit %s -> %s\n", from, to)
		},
	})

	ctx := context.Background()
	for range 2 {
		_ = cb.Execute(ctx, func(context.Context) error { return errNode })
	}

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println(err)

	cb.Reset()
	fmt.Println(cb.State())
	// Output:
	// circuit closed -> open
	// resilience: circuit breaker is open
	// circuit open -> closed
	// closed
}

func ExampleRateLimiter_Execute() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 0.01, Burst: 2})

	ctx := context.Background()
	for i := range 3 {
		err := rl.Execute(ctx, func(context.Context) error { return nil })
		fmt.Printf("request %d: %v\n", i+1, err)
	}
	// Output:
	// request 1: <nil>
	// request 2: <nil>
	// request 3: resilience: rate limit exceeded
}

func ExampleBulkhead_Metrics() {
	b := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 2})

	ctx := context.Background()
	for range 2 {
		if _, err := b.Acquire(ctx); err != nil {
			fmt.Println(err)
		}
	}
	_, err := b.Acquire(ctx)

	m := b.Metrics()
	fmt.Println(err)
	fmt.Printf("active=%d available=%d rejected=%d\n", m.Active, m.Available, m.Rejected)
	// Output:
	// resilience: bulkhead at capacity
	// active=2 available=0 rejected=1
}

func ExampleExecuteWithTimeout() {
	err := resilience.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	fmt.Println(err)
	fmt.Println(resilience.IsRejection(err))
	// Output:
	// resilience: operation timed out
	// true
}

func ExampleNewExecutorFromConfig() {
	exec := resilience.NewExecutorFromConfig(resilience.Config{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute},
		MaxConcurrent:  4,
		Timeout:        time.Second,
	})

	ctx := context.Background()
	fmt.Println(exec.Execute(ctx, func(context.Context) error { return errNode }))
	fmt.Println(exec.Execute(ctx, func(context.Context) error { return nil }))
	fmt.Println(exec.CircuitBreaker().State())
	// Output:
	// chain: 502 bad gateway
	// resilience: circuit breaker is open
	// open
}
