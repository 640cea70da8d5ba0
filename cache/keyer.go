package cache

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/abicache/abi"
)

// Keyer canonicalizes account identifiers into cache keys.
//
// Contract:
// - Determinism: identifiers naming the same account produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: invalid identifiers return an error matching ErrInvalidKey.
type Keyer interface {
	// Key returns the canonical key and the parsed name of account.
	Key(account any) (string, abi.Name, error)
}

// NameKeyer keys accounts by their Antelope name.
//
// Accepted identifiers: abi.Name, string, uint64 and fmt.Stringer. Names
// that differ only by trailing dots share a key. A textual identifier keeps
// its own spelling as the key: "ghost.account" is keyed "ghost.account"
// even though its 13th character only encodes as "d" in the fetched name.
type NameKeyer struct{}

// NewNameKeyer creates a new name keyer.
func NewNameKeyer() *NameKeyer {
	return &NameKeyer{}
}

// Key returns the canonical key for account.
func (k *NameKeyer) Key(account any) (string, abi.Name, error) {
	switch v := account.(type) {
	case abi.Name:
		return nameKey(v)
	case string:
		return textKey(v)
	case uint64:
		return nameKey(abi.Name(v))
	case fmt.Stringer:
		return textKey(v.String())
	default:
		return "", 0, fmt.Errorf("%w: unsupported account type %T", ErrInvalidKey, account)
	}
}

func nameKey(name abi.Name) (string, abi.Name, error) {
	if name.IsEmpty() {
		return "", 0, fmt.Errorf("%w: empty account name", ErrInvalidKey)
	}
	return name.String(), name, nil
}

func textKey(s string) (string, abi.Name, error) {
	s = strings.TrimRight(strings.TrimSpace(s), ".")
	name, err := abi.ParseNameLenient(s)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if name.IsEmpty() {
		return "", 0, fmt.Errorf("%w: empty account name", ErrInvalidKey)
	}
	return s, name, nil
}

var _ Keyer = (*NameKeyer)(nil)
