package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/chain"
	"github.com/jonwraymond/abicache/health"
	"github.com/jonwraymond/abicache/resilience"
	"github.com/jonwraymond/abicache/secret"
)

// Resolver builds a strict secret resolver from c.Secrets. With no
// providers configured it resolves from the environment only.
func (c *Config) Resolver() (*secret.Resolver, error) {
	if len(c.Secrets) == 0 {
		return secret.NewResolver(true, &secret.EnvProvider{}), nil
	}
	specs := make([]secret.Spec, len(c.Secrets))
	for i, sp := range c.Secrets {
		specs[i] = secret.Spec{Name: sp.Name, Config: sp.Config}
	}
	providers, err := secret.DefaultRegistry.Open(specs...)
	if err != nil {
		return nil, fmt.Errorf("%w: secrets: %w", ErrInvalidConfig, err)
	}
	return secret.NewResolver(true, providers...), nil
}

// ClientConfig converts c for chain.NewFromConfig.
func (c ChainConfig) ClientConfig() chain.Config {
	cfg := chain.Config{
		URL:          c.URL,
		APIKeyHeader: c.APIKeyHeader,
		APIKey:       c.APIKey,
		Timeout:      c.Timeout.D(),
		RetryMax:     c.RetryMax,
		RetryWaitMin: c.RetryWaitMin.D(),
		RetryWaitMax: c.RetryWaitMax.D(),
		Resilience: resilience.Config{
			MaxConcurrent: c.MaxConcurrent,
			Timeout:       c.RequestTimeout.D(),
		},
	}
	if cb := c.CircuitBreaker; cb != nil {
		cfg.Resilience.CircuitBreaker = &resilience.CircuitBreakerConfig{
			MaxFailures:  cb.MaxFailures,
			ResetTimeout: cb.ResetTimeout.D(),
		}
	}
	if rl := c.RateLimit; rl != nil {
		cfg.Resilience.RateLimit = &resilience.RateLimiterConfig{
			Rate:        rl.Rate,
			Burst:       rl.Burst,
			WaitOnLimit: rl.Wait,
			MaxWait:     rl.MaxWait.D(),
		}
	}
	return cfg
}

// Policy converts c to a cache.Policy.
func (c CacheConfig) Policy() (cache.Policy, error) {
	mode, err := cache.ParseMergeMode(c.Merge)
	if err != nil {
		return cache.Policy{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cache.Policy{
		Merge:               mode,
		FetchTimeout:        c.FetchTimeout.D(),
		PrefetchConcurrency: c.PrefetchConcurrency,
	}, nil
}

// Aggregator returns the aggregator settings.
func (c HealthConfig) Aggregator() health.AggregatorConfig {
	return health.AggregatorConfig{Timeout: c.CheckTimeout.D()}
}

// Memory returns the memory checker settings. entries reports the cache
// size and may be nil.
func (c HealthConfig) Memory(entries func() int) health.MemoryCheckerConfig {
	return health.MemoryCheckerConfig{
		WarningThreshold:  c.MemoryWarning,
		CriticalThreshold: c.MemoryCritical,
		MaxAlloc:          c.MaxAllocBytes,
		Entries:           entries,
		MaxEntries:        c.MaxEntries,
	}
}

// ApplySeeds injects every seed file into sc. Relative paths are resolved
// against baseDir. It stops at the first failure.
func (c CacheConfig) ApplySeeds(sc *cache.SchemaCache, baseDir string) error {
	for _, s := range c.Seeds {
		path := s.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.Account, err)
		}
		if err := sc.SetABI(s.Account, data, s.Merge); err != nil {
			return fmt.Errorf("seed %s from %s: %w", s.Account, path, err)
		}
	}
	return nil
}
