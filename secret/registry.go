package secret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds a Provider from its configuration block.
type Factory func(cfg map[string]any) (Provider, error)

// Spec names a provider to open and its configuration.
type Spec struct {
	Name   string
	Config map[string]any
}

// Registry maps provider names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under name. Names are trimmed and may be registered
// once.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return fmt.Errorf("%w: name and factory are required", ErrInvalidRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("%w: provider %q already registered", ErrInvalidRegistration, name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered as name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	factory := r.factories[name]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("secret: provider %q: %w", name, err)
	}
	return p, nil
}

// Open creates one provider per spec, in order. If any fails the ones
// already created are closed.
func (r *Registry) Open(specs ...Spec) ([]Provider, error) {
	providers := make([]Provider, 0, len(specs))
	for _, s := range specs {
		p, err := r.Create(s.Name, s.Config)
		if err != nil {
			errs := []error{err}
			for _, opened := range providers {
				errs = append(errs, opened.Close())
			}
			return nil, errors.Join(errs...)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// List returns the registered names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// DefaultRegistry holds the built-in env and file providers.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register("env", NewEnvProvider)
	_ = r.Register("file", NewFileProvider)
	return r
}()

// decodeOptions decodes a provider configuration block into opts, rejecting
// unknown keys and mistyped values.
func decodeOptions(cfg map[string]any, opts any) error {
	if len(cfg) == 0 {
		return nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}
	return nil
}
