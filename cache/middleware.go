package cache

import (
	"context"

	"github.com/jonwraymond/abicache/abi"
)

// FetchMiddleware decorates a Fetcher.
type FetchMiddleware func(next Fetcher) Fetcher

// Chain applies middlewares to f. The first middleware is the outermost.
func Chain(f Fetcher, mws ...FetchMiddleware) Fetcher {
	for i := len(mws) - 1; i >= 0; i-- {
		f = mws[i](f)
	}
	return f
}

// WithFallback returns a middleware that asks secondary when the wrapped
// Fetcher succeeds without a payload. Errors from the wrapped Fetcher are
// returned as is.
func WithFallback(secondary Fetcher) FetchMiddleware {
	return func(next Fetcher) Fetcher {
		return FetcherFunc(func(ctx context.Context, account abi.Name) (*FetchResult, error) {
			res, err := next.FetchRawABI(ctx, account)
			if err != nil {
				return nil, err
			}
			if res != nil && len(res.ABI) > 0 {
				return res, nil
			}
			return secondary.FetchRawABI(ctx, account)
		})
	}
}

// StaticFetcher serves ABIs from a fixed map keyed by canonical account name.
// Unknown accounts yield an empty result.
type StaticFetcher map[string][]byte

// FetchRawABI returns the stored payload for account.
func (s StaticFetcher) FetchRawABI(_ context.Context, account abi.Name) (*FetchResult, error) {
	return &FetchResult{Account: account.String(), ABI: s[account.String()]}, nil
}

var _ Fetcher = StaticFetcher(nil)
