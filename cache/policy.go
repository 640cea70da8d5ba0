package cache

import (
	"fmt"
	"time"

	"github.com/jonwraymond/abicache/abi"
)

// MergeMode selects how SetABI combines an injected ABI with a stored one.
type MergeMode int

const (
	// MergeConcat appends every list of the new ABI to the stored one,
	// keeping duplicates. Merging the same ABI twice appends it twice.
	MergeConcat MergeMode = iota

	// MergeDedupe keeps one element per identity; new elements replace
	// stored ones with the same name in place.
	MergeDedupe
)

// String returns the configuration name of the mode.
func (m MergeMode) String() string {
	switch m {
	case MergeConcat:
		return "concat"
	case MergeDedupe:
		return "dedupe"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// ParseMergeMode parses "concat" or "dedupe". The empty string is MergeConcat.
func ParseMergeMode(s string) (MergeMode, error) {
	switch s {
	case "", "concat":
		return MergeConcat, nil
	case "dedupe":
		return MergeDedupe, nil
	default:
		return 0, fmt.Errorf("cache: unknown merge mode %q", s)
	}
}

// Policy configures SchemaCache behavior.
type Policy struct {
	// Merge selects the SetABI merge strategy.
	Merge MergeMode

	// FetchTimeout bounds each remote fetch. Zero means no bound.
	FetchTimeout time.Duration

	// PrefetchConcurrency limits concurrent lookups in Prefetch.
	// Zero or negative means DefaultPrefetchConcurrency.
	PrefetchConcurrency int
}

// DefaultPrefetchConcurrency is used when Policy.PrefetchConcurrency is unset.
const DefaultPrefetchConcurrency = 8

// DefaultPolicy returns the default policy: concatenating merges, no fetch
// timeout, DefaultPrefetchConcurrency.
func DefaultPolicy() Policy {
	return Policy{
		Merge:               MergeConcat,
		PrefetchConcurrency: DefaultPrefetchConcurrency,
	}
}

func (p Policy) merge(existing, incoming *abi.ABI) *abi.ABI {
	if p.Merge == MergeDedupe {
		return existing.MergeUnique(incoming)
	}
	return existing.Merge(incoming)
}

func (p Policy) prefetchLimit() int {
	if p.PrefetchConcurrency <= 0 {
		return DefaultPrefetchConcurrency
	}
	return p.PrefetchConcurrency
}
