package auth

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("")
	if err != nil {
		t.Fatalf("ParseRole empty: %v", err)
	}
	if role != RoleCitizen {
		t.Fatalf("empty role should default to CITOYEN, got %s", role)
	}

	for _, raw := range []string{"CITOYEN", "AGENT", "GESTIONNAIRE", "ADMIN"} {
		role, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%s): %v", raw, err)
		}
		if string(role) != raw {
			t.Fatalf("ParseRole(%s) = %s", raw, role)
		}
	}

	if _, err := ParseRole("SUPERUSER"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
	// Role values are case-sensitive.
	if _, err := ParseRole("admin"); !errors.Is(err, ErrValidation) {
		t.Fatalf("lowercase role should be rejected, got %v", err)
	}
}

func TestHasPermission(t *testing.T) {
	if !RoleCitizen.HasPermission("signaler:create") {
		t.Fatalf("CITOYEN should create reports")
	}
	if RoleCitizen.HasPermission("users:read") {
		t.Fatalf("CITOYEN must not read users")
	}
	if !RoleAgent.HasPermission("collecte:create") {
		t.Fatalf("AGENT should record collections")
	}
	if RoleAgent.HasPermission("signaler:create") {
		t.Fatalf("AGENT must not create reports")
	}
	if !RoleManager.HasPermission("users:read") {
		t.Fatalf("GESTIONNAIRE should read users")
	}
	if RoleManager.HasPermission("users:delete") {
		t.Fatalf("GESTIONNAIRE must not delete users")
	}
}

func TestAdminWildcard(t *testing.T) {
	for _, perm := range []string{"users:delete", "signaler:create", "anything:at-all"} {
		if !RoleAdmin.HasPermission(perm) {
			t.Fatalf("ADMIN wildcard should grant %s", perm)
		}
	}
}

func TestHasAnyPermission(t *testing.T) {
	// One held permission out of several is enough.
	if !RoleManager.HasAnyPermission("users:delete", "users:read") {
		t.Fatalf("GESTIONNAIRE holds users:read, any-of check should pass")
	}
	if RoleCitizen.HasAnyPermission("users:read", "analytics:read") {
		t.Fatalf("CITOYEN holds neither permission")
	}
	if RoleCitizen.HasAnyPermission() {
		t.Fatalf("empty permission list should never pass")
	}
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	if Role("GHOST").HasPermission("signaler:read") {
		t.Fatalf("unknown role must hold no permissions")
	}
}
