package auth

import (
	"context"
	"fmt"
)

// Actions on ABI resources.
const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionPrefetch = "prefetch"
	ActionList     = "list"
)

// ResourceTypeABI is the resource type of every ABI request. Permission
// strings may name it: "abi:eosio.*:read".
const ResourceTypeABI = "abi"

// Authorizer decides whether an identity may act on an account.
type Authorizer interface {
	// Authorize returns nil when allowed and an error matching ErrForbidden
	// (usually *AuthzError) when not.
	Authorize(ctx context.Context, req *AuthzRequest) error

	Name() string
}

// AuthzRequest asks whether Subject may perform Action on Account.
type AuthzRequest struct {
	Subject *Identity

	// Account is the ABI account, or "*" for account-independent actions
	// such as ActionList.
	Account string

	Action       string
	ResourceType string
}

// NewABIRequest builds an AuthzRequest for action on account.
func NewABIRequest(subject *Identity, account, action string) *AuthzRequest {
	return &AuthzRequest{Subject: subject, Account: account, Action: action, ResourceType: ResourceTypeABI}
}

// AuthzError is a denied AuthzRequest. It matches ErrForbidden.
type AuthzError struct {
	Subject string
	Account string
	Action  string
	Reason  string
	Cause   error
}

func (e *AuthzError) Error() string {
	who := e.Subject
	if who == "" {
		who = "unknown subject"
	}
	return fmt.Sprintf("forbidden: %s may not %s abi %q: %s", who, e.Action, e.Account, e.Reason)
}

func (e *AuthzError) Unwrap() error { return e.Cause }

func (e *AuthzError) Is(target error) bool { return target == ErrForbidden }

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func".
func (f AuthorizerFunc) Name() string { return "func" }
