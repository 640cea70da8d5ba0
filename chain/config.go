package chain

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/abicache/resilience"
	"github.com/jonwraymond/abicache/secret"
)

// Config describes a Client. APIKey accepts ${ENV} and secretref: values.
type Config struct {
	URL          string
	APIKeyHeader string
	APIKey       string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Resilience   resilience.Config
}

// DefaultAPIKeyHeader is used when Config.APIKey is set without a header.
const DefaultAPIKeyHeader = "X-API-Key"

// NewFromConfig resolves cfg's secrets and builds a Client. A circuit
// breaker without IsFailure counts only IsUpstreamFailure errors. opts are
// applied after cfg.
func NewFromConfig(ctx context.Context, cfg Config, resolver *secret.Resolver, opts ...Option) (*Client, error) {
	var base []Option

	if cfg.APIKey != "" {
		key, err := resolver.ResolveValue(ctx, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("%w: api key: %w", ErrInvalidConfig, err)
		}
		header := cfg.APIKeyHeader
		if header == "" {
			header = DefaultAPIKeyHeader
		}
		base = append(base, WithAPIKey(header, key))
	}
	if cfg.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.RetryMax > 0 {
		base = append(base, WithRetry(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax))
	}
	if !cfg.Resilience.IsZero() {
		rc := cfg.Resilience
		if rc.CircuitBreaker != nil && rc.CircuitBreaker.IsFailure == nil {
			cb := *rc.CircuitBreaker
			cb.IsFailure = IsUpstreamFailure
			rc.CircuitBreaker = &cb
		}
		base = append(base, WithExecutor(resilience.NewExecutorFromConfig(rc)))
	}

	return NewClient(cfg.URL, append(base, opts...)...)
}
