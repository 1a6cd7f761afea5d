package auth

import (
	"testing"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func TestIsSuperAdminEmail_CaseInsensitiveTrimmed(t *testing.T) {
	admins := []string{" Root@Example.com "}
	if !IsSuperAdminEmail("root@example.com", admins) {
		t.Fatal("expected match")
	}
	if IsSuperAdminEmail("other@example.com", admins) {
		t.Fatal("expected no match")
	}
}

func TestRequireWorkspaceOwner(t *testing.T) {
	owner := &Identity{WorkspaceID: "ws_1"}
	if err := RequireWorkspaceOwner(owner, "ws_1"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := RequireWorkspaceOwner(owner, "ws_2"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	superAdmin := &Identity{WorkspaceID: "ws_1", IsSuperAdmin: true}
	if err := RequireWorkspaceOwner(superAdmin, "ws_2"); err != nil {
		t.Fatalf("super-admin should bypass isolation, got %v", err)
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	if err := RequireSuperAdmin(&Identity{IsSuperAdmin: false}); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := RequireSuperAdmin(&Identity{IsSuperAdmin: true}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequirePermission(t *testing.T) {
	identity := &Identity{}
	if err := RequirePermission(identity, store.RoleViewer, "tools.manage"); err != ErrForbidden {
		t.Fatalf("viewer should be denied tools.manage, got %v", err)
	}
	if err := RequirePermission(identity, store.RoleMember, "tools.manage"); err != nil {
		t.Fatalf("member should be allowed tools.manage, got %v", err)
	}

	superAdmin := &Identity{IsSuperAdmin: true}
	if err := RequirePermission(superAdmin, store.RoleViewer, "workspace.manage_settings"); err != nil {
		t.Fatalf("super-admin should bypass permission table, got %v", err)
	}
}
