package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// CompositeAuthenticator asks each authenticator that supports a request in
// turn. The first acceptance wins. If every one rejects, the result carries
// all their reasons.
type CompositeAuthenticator struct {
	Authenticators []Authenticator
}

// NewCompositeAuthenticator drops nil entries from auths.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{
		Authenticators: slices.DeleteFunc(slices.Clone(auths), func(a Authenticator) bool { return a == nil }),
	}
}

func (c *CompositeAuthenticator) Name() string { return "composite" }

func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	return slices.ContainsFunc(c.Authenticators, func(a Authenticator) bool {
		return a.Supports(ctx, req)
	})
}

// Authenticate stops at the first acceptance or internal error.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var rejected []error
	for _, a := range c.Authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("auth: %s: %w", a.Name(), err)
		}
		if result.Authenticated {
			return result, nil
		}
		rejected = append(rejected, result.Error)
	}
	switch len(rejected) {
	case 0:
		return Reject(c.Name(), ErrMissingCredentials), nil
	case 1:
		return Reject(c.Name(), rejected[0]), nil
	default:
		return Reject(c.Name(), errors.Join(rejected...)), nil
	}
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
