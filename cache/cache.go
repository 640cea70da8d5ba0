package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/abicache/abi"
)

// Sentinel errors for cache operations.
var (
	// ErrNotFound indicates the fetch succeeded but returned no ABI payload.
	// All *NotFoundError values match it.
	ErrNotFound = errors.New("cache: abi not found")

	// ErrInvalidKey indicates an account identifier that cannot be used as a key.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrNoFetcher indicates a lookup missed and the cache has no Fetcher.
	ErrNoFetcher = errors.New("cache: no fetcher configured")

	// ErrFetchPanic indicates the Fetcher panicked.
	ErrFetchPanic = errors.New("cache: fetch panicked")

	// ErrUnexpectedResult indicates fetch middleware returned something other
	// than a *FetchResult.
	ErrUnexpectedResult = errors.New("cache: unexpected fetch result")
)

// NotFoundError reports an account whose ABI could not be loaded.
type NotFoundError struct {
	Account string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cache: abi for %s could not be loaded", e.Account)
}

// Is reports whether this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FetchResult is the raw answer of a Fetcher.
type FetchResult struct {
	// Account is the account the chain answered for.
	Account string

	// ABI is the binary abi_def or ABI JSON. Empty means the account has no ABI.
	ABI []byte

	// Hash is the chain's hash of the ABI, if reported.
	Hash string
}

// Fetcher loads the raw ABI of an account from a remote source.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines.
// - Errors: a missing ABI is a nil error with an empty payload; errors are
// reserved for transport and protocol failures and reach callers unchanged.
type Fetcher interface {
	FetchRawABI(ctx context.Context, account abi.Name) (*FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, account abi.Name) (*FetchResult, error)

// FetchRawABI calls f.
func (f FetcherFunc) FetchRawABI(ctx context.Context, account abi.Name) (*FetchResult, error) {
	return f(ctx, account)
}

// Provider resolves account ABIs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: GetABI blocks until the ABI is available or ctx is done.
// - Ownership: returned ABIs are shared and must not be modified.
type Provider interface {
	GetABI(ctx context.Context, account any) (*abi.ABI, error)
}

var _ Provider = (*SchemaCache)(nil)
