package main

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/chain"
	"github.com/jonwraymond/abicache/observe"
)

// preload fetches accounts into sc, retrying with exponential backoff for
// up to maxWait while the node fails. Answers that a retry cannot change,
// such as an account without an ABI or an unknown account, end the retries
// at once.
func preload(ctx context.Context, sc *cache.SchemaCache, accounts []string, maxWait time.Duration, logger observe.Logger) error {
	if len(accounts) == 0 {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	attempt := func() error {
		err := sc.Prefetch(ctx, lo.ToAnySlice(accounts)...)
		if err == nil || chain.IsUpstreamFailure(err) && !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, abi.ErrInvalidName) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn(ctx, "preload failed, retrying",
			observe.Field{Key: "error", Value: err},
			observe.Field{Key: "retry_in", Value: next.String()},
		)
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), notify)
}
