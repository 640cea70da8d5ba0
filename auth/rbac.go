package auth

import (
	"context"
	"slices"
	"strings"
)

// RBACConfig configures the RBAC authorizer.
type RBACConfig struct {
	// Roles defines role configurations.
	Roles map[string]RoleConfig `json:"roles,omitempty"`

	// DefaultRole is assigned to identities without explicit roles.
	DefaultRole string `json:"defaultRole,omitempty"`
}

// RoleConfig defines permissions for a role.
type RoleConfig struct {
	// Permissions are "<type>:<account pattern>:<action>",
	// "<account pattern>:<action>" or "<action>" strings.
	Permissions []string `json:"permissions,omitempty"`

	// Inherits lists roles this role inherits from.
	Inherits []string `json:"inherits,omitempty"`

	// DeniedAccounts are account patterns this role may never touch.
	// Deny wins over any permission, including inherited ones.
	DeniedAccounts []string `json:"deniedAccounts,omitempty"`
}

// RBACAuthorizer provides role-based access control over ABI accounts.
type RBACAuthorizer struct {
	config RBACConfig
}

// NewRBACAuthorizer creates a new RBAC authorizer.
func NewRBACAuthorizer(config RBACConfig) *RBACAuthorizer {
	return &RBACAuthorizer{config: config}
}

// Name returns "rbac".
func (a *RBACAuthorizer) Name() string {
	return "rbac"
}

// Authorize allows req when one of the subject's roles, expanded through
// inheritance, grants it and none of them denies the account.
func (a *RBACAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return deny(req, "no identity provided")
	}

	roles := a.collectRoles(req.Subject)
	for _, name := range roles {
		for _, denied := range a.config.Roles[name].DeniedAccounts {
			if matchPattern(denied, req.Account) {
				return deny(req, "account denied for role "+name)
			}
		}
	}

	for _, name := range roles {
		if slices.ContainsFunc(a.config.Roles[name].Permissions, func(perm string) bool {
			return matchPermission(perm, req)
		}) {
			return nil
		}
	}
	return deny(req, "no role permits this action")
}

func deny(req *AuthzRequest, reason string) *AuthzError {
	e := &AuthzError{Account: req.Account, Action: req.Action, Reason: reason}
	if req.Subject != nil {
		e.Subject = req.Subject.Principal
	}
	return e
}

// collectRoles expands the subject's roles (or DefaultRole) through
// inheritance, breadth first, each role once.
func (a *RBACAuthorizer) collectRoles(subject *Identity) []string {
	queue := append([]string(nil), subject.Roles...)
	if len(queue) == 0 && a.config.DefaultRole != "" {
		queue = append(queue, a.config.DefaultRole)
	}

	seen := make(map[string]bool)
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		queue = append(queue, a.config.Roles[current].Inherits...)
	}
	return result
}

// matchPattern matches "*", a trailing-"*" prefix, or an exact value.
func matchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

// matchPermission checks a permission string against a request.
func matchPermission(perm string, req *AuthzRequest) bool {
	parts := strings.Split(perm, ":")

	resourceType, resource, action := "*", "*", ""
	switch len(parts) {
	case 1:
		action = parts[0]
	case 2:
		resource, action = parts[0], parts[1]
	case 3:
		resourceType, resource, action = parts[0], parts[1], parts[2]
	default:
		return false
	}

	return (resourceType == "*" || resourceType == req.ResourceType) &&
		matchPattern(resource, req.Account) &&
		(action == "*" || action == req.Action)
}

var _ Authorizer = (*RBACAuthorizer)(nil)
