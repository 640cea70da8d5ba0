package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Resolver turns configuration values into secrets.
//
// ResolveValue first expands ${VAR}, then replaces every
// secretref:<provider>:<ref> with the provider's answer. Answers are
// remembered, so a reference shared by several settings (the chain API key
// and an auth key, say) hits its provider once. A strict resolver rejects
// empty answers. Resolver is safe for concurrent use.
type Resolver struct {
	strict bool

	mu        sync.Mutex
	providers map[string]Provider
	resolved  map[string]string
}

// NewResolver creates a resolver over providers. Nil providers are skipped.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		strict:    strict,
		providers: make(map[string]Provider, len(providers)),
		resolved:  make(map[string]string),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its Name and forgets the
// answers it gave before.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	name := provider.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	for key := range r.resolved {
		if strings.HasPrefix(key, name+":") {
			delete(r.resolved, key)
		}
	}
}

// Close closes every provider and drops remembered answers.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	clear(r.resolved)
	return errors.Join(errs...)
}

// ResolveValue resolves value. A nil Resolver only expands the environment.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil || r == nil {
		return expanded, err
	}

	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookup(ctx, provider, ref)
	}

	var firstErr error
	out := inlineRef.ReplaceAllStringFunc(expanded, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := inlineRef.FindStringSubmatch(m)
		v, err := r.lookup(ctx, sub[1], sub[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

const refPrefix = "secretref:"

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

// ParseSecretRef parses a value that is exactly one reference:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) lookup(ctx context.Context, providerName, ref string) (string, error) {
	key := providerName + ":" + ref

	r.mu.Lock()
	if v, ok := r.resolved[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	provider, ok := r.providers[providerName]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}

	v, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: provider %q ref %q", ErrEmptyValue, providerName, ref)
	}

	r.mu.Lock()
	r.resolved[key] = v
	r.mu.Unlock()
	return v, nil
}
