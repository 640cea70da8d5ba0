package cache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/abicache/abi"
)

func tokenJSON(t testing.TB) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/eosio.token.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// fakeFetcher serves payloads by account and counts calls. When gate is
// non-nil every call blocks until it is closed.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	gate     chan struct{}
	calls    atomic.Int64
	perKey   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
		perKey:   make(map[string]int),
	}
}

func (f *fakeFetcher) set(account string, payload []byte) *fakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[fetchedAs(account)] = payload
	return f
}

func (f *fakeFetcher) fail(account string, err error) *fakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fetchedAs(account)] = err
	return f
}

func (f *fakeFetcher) hold() *fakeFetcher {
	f.gate = make(chan struct{})
	return f
}

func (f *fakeFetcher) release() {
	close(f.gate)
}

func (f *fakeFetcher) callsFor(account string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perKey[fetchedAs(account)]
}

// fetchedAs returns the name a Fetcher receives for account.
func fetchedAs(account string) string {
	name, err := abi.ParseNameLenient(account)
	if err != nil {
		return account
	}
	return name.String()
}

func (f *fakeFetcher) FetchRawABI(ctx context.Context, account abi.Name) (*FetchResult, error) {
	f.calls.Add(1)
	key := account.String()

	f.mu.Lock()
	f.perKey[key]++
	payload, err := f.payloads[key], f.errs[key]
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &FetchResult{Account: key, ABI: payload}, nil
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// waiters returns how many GetABI calls have joined or started a fetch.
func waiters(c *SchemaCache) int64 {
	s := c.Stats()
	return s.Misses + s.Coalesced
}
