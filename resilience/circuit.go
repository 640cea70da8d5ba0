package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of a CircuitBreaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls with ErrCircuitOpen until ResetTimeout passes.
	StateOpen
	// StateHalfOpen lets HalfOpenProbes calls through to test the upstream.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig configures a CircuitBreaker. Zero fields take the
// defaults noted.
type CircuitBreakerConfig struct {
	// MaxFailures is the run of consecutive failures that opens the
	// circuit. Default 5.
	MaxFailures int

	// ResetTimeout is how long an open circuit rejects before probing.
	// Default 30s.
	ResetTimeout time.Duration

	// HalfOpenProbes is how many calls a half-open circuit admits at once.
	// Default 1.
	HalfOpenProbes int

	// OnStateChange observes transitions. It runs with the breaker locked
	// and must not call back into it.
	OnStateChange func(from, to State)

	// IsFailure classifies a call's error. The default counts every error
	// except context.Canceled.
	IsFailure func(err error) bool
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenProbes <= 0 {
		c.HalfOpenProbes = 1
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return c
}

// CircuitBreaker stops calling an upstream that keeps failing and lets a
// probe through once ResetTimeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	openedAt time.Time
	streak   int
	probes   int
	stats    CircuitBreakerMetrics
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config.withDefaults(), now: time.Now}
}

// Execute runs op unless the circuit rejects it. A rejection is a
// *RetryAfterError wrapping ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.settle(cb.config.IsFailure(err))
	return err
}

// State returns the current state. An open circuit whose ResetTimeout has
// passed reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.streak = 0
	cb.moveTo(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if cb.probes < cb.config.HalfOpenProbes {
			cb.probes++
			return nil
		}
		cb.stats.Rejected++
		return &RetryAfterError{Err: ErrCircuitOpen, After: time.Second}
	default:
		cb.stats.Rejected++
		wait := cb.config.ResetTimeout - cb.now().Sub(cb.openedAt)
		return &RetryAfterError{Err: ErrCircuitOpen, After: max(wait, time.Second)}
	}
}

func (cb *CircuitBreaker) settle(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		cb.stats.Successes++
		cb.streak = 0
		if cb.state == StateHalfOpen {
			cb.moveTo(StateClosed)
		}
		return
	}

	cb.stats.Failures++
	cb.stats.LastFailure = cb.now()
	cb.streak++
	if cb.state == StateHalfOpen || cb.streak >= cb.config.MaxFailures {
		cb.moveTo(StateOpen)
	}
}

func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
		cb.stats.Opened++
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	m := cb.stats
	m.State = cb.current()
	m.Streak = cb.streak
	return m
}

// CircuitBreakerMetrics are lifetime counters of a CircuitBreaker. Streak is
// the current run of consecutive failures.
type CircuitBreakerMetrics struct {
	State       State
	Streak      int
	Failures    int64
	Successes   int64
	Rejected    int64
	Opened      int64
	LastFailure time.Time
}
