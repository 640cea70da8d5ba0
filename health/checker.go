package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status represents the health status of a component. Higher is worse.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrCheckFailed wraps the cause of an unhealthy result.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is the result error of a checker that did not return
	// within AggregatorConfig.Timeout.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckerNotFound is returned for an unregistered checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)

// Result is the outcome of one check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, message string, err error) Result {
	return Result{Status: s, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy returns a healthy result.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded returns a degraded result: the component serves, with reduced
// capability.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy returns an unhealthy result caused by err.
func Unhealthy(message string, err error) Result { return newResult(StatusUnhealthy, message, err) }

// WithDetails returns r with details set.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration returns r with its duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker is one named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc returns a Checker named name that calls fn.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Pinger is implemented by components that can be probed for reachability,
// such as the chain API client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker checks a Pinger.
type PingChecker struct {
	name   string
	pinger Pinger
	slow   time.Duration
}

// PingOption configures a PingChecker.
type PingOption func(*PingChecker)

// WithSlowThreshold reports a successful ping that took at least d as
// degraded.
func WithSlowThreshold(d time.Duration) PingOption {
	return func(p *PingChecker) {
		p.slow = d
	}
}

// NewPingChecker reports healthy when pinger answers and unhealthy
// otherwise.
func NewPingChecker(name string, pinger Pinger, opts ...PingOption) *PingChecker {
	p := &PingChecker{name: name, pinger: pinger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PingChecker) Name() string { return p.name }

// Ping forwards to the underlying Pinger.
func (p *PingChecker) Ping(ctx context.Context) error {
	return p.pinger.Ping(ctx)
}

// Check pings the component and times the answer.
func (p *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := p.pinger.Ping(ctx)
	took := time.Since(start)

	switch {
	case err != nil:
		return Unhealthy(p.name+" unreachable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).WithDuration(took)
	case p.slow > 0 && took >= p.slow:
		return Degraded(fmt.Sprintf("%s slow: answered in %s", p.name, took.Round(time.Millisecond))).
			WithDetails(map[string]any{"latency_ms": took.Milliseconds(), "threshold_ms": p.slow.Milliseconds()}).
			WithDuration(took)
	default:
		return Healthy(p.name + " reachable").WithDuration(took)
	}
}

var (
	_ Checker = (*CheckerFunc)(nil)
	_ Checker = (*PingChecker)(nil)
	_ Pinger  = (*PingChecker)(nil)
)
