package auth

import "fmt"

// Role is the fixed role enumeration. Values match the persisted column
// and the role claim embedded in access tokens.
type Role string

const (
	RoleCitizen Role = "CITOYEN"
	RoleAgent   Role = "AGENT"
	RoleManager Role = "GESTIONNAIRE"
	RoleAdmin   Role = "ADMIN"
)

// PermAll is the wildcard permission held by ADMIN. It satisfies any
// permission check and is tested before the per-role sets.
const PermAll = "*"

// rolePermissions is the static role -> permission table. There is no
// dynamic permission storage; changing a role's capabilities is a code
// change.
var rolePermissions = map[Role][]string{
	RoleCitizen: {
		"signaler:create",
		"signaler:read",
		"containers:read",
		"profile:read",
		"profile:update",
	},
	RoleAgent: {
		"signaler:read",
		"signaler:update",
		"containers:read",
		"tournee:read",
		"tournee:update",
		"collecte:create",
	},
	RoleManager: {
		"signaler:read",
		"signaler:update",
		"containers:read",
		"containers:update",
		"tournee:create",
		"tournee:read",
		"tournee:update",
		"users:read",
		"analytics:read",
	},
	RoleAdmin: {PermAll},
}

// ParseRole validates a raw role value. The empty string maps to
// RoleCitizen, the registration default.
func ParseRole(raw string) (Role, error) {
	if raw == "" {
		return RoleCitizen, nil
	}
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
	return role, nil
}

// Valid reports whether the role is part of the enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// HasPermission reports whether the role holds the permission. The
// wildcard is checked first.
func (r Role) HasPermission(perm string) bool {
	perms := rolePermissions[r]
	for _, p := range perms {
		if p == PermAll {
			return true
		}
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the role holds at least one of the
// listed permissions (OR semantics).
func (r Role) HasAnyPermission(perms ...string) bool {
	for _, p := range perms {
		if r.HasPermission(p) {
			return true
		}
	}
	return false
}
