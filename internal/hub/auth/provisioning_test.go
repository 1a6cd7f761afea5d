package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func newTestProvisioner(t *testing.T) (*Provisioner, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewProvisioner(s), s
}

func TestProvisionUser_CreatesWorkspaceOnFirstLogin(t *testing.T) {
	p, _ := newTestProvisioner(t)
	ctx := context.Background()

	result, err := p.ProvisionUser(ctx, "alice@example.com", "Alice", "Smith", false, "local")
	if err != nil {
		t.Fatalf("ProvisionUser: %v", err)
	}
	if !result.Created {
		t.Fatal("expected Created = true on first login")
	}
	if !result.User.MFAGraceEnd.Valid {
		t.Fatal("expected MFA grace period to be recorded")
	}
}

func TestProvisionUser_IsIdempotentOnSecondLogin(t *testing.T) {
	p, _ := newTestProvisioner(t)
	ctx := context.Background()

	first, err := p.ProvisionUser(ctx, "alice@example.com", "Alice", "Smith", false, "local")
	if err != nil {
		t.Fatalf("first ProvisionUser: %v", err)
	}
	second, err := p.ProvisionUser(ctx, "alice@example.com", "Alice", "Smith", false, "local")
	if err != nil {
		t.Fatalf("second ProvisionUser: %v", err)
	}
	if second.Created {
		t.Fatal("expected Created = false on second login")
	}
	if first.User.WorkspaceID != second.User.WorkspaceID {
		t.Fatal("expected the same workspace across logins")
	}
}

func TestProvisionUser_ResolvesSlugCollision(t *testing.T) {
	p, _ := newTestProvisioner(t)
	ctx := context.Background()

	r1, err := p.ProvisionUser(ctx, "alice@example.com", "Alice", "", false, "local")
	if err != nil {
		t.Fatalf("ProvisionUser 1: %v", err)
	}
	r2, err := p.ProvisionUser(ctx, "alice@other.com", "Alice", "", false, "local")
	if err != nil {
		t.Fatalf("ProvisionUser 2: %v", err)
	}

	if r1.User.WorkspaceID == r2.User.WorkspaceID {
		t.Fatal("expected distinct workspaces for distinct users")
	}
}

func TestSlugify(t *testing.T) {
	if got := slugify("Alice Smith!!"); got != "alice-smith" {
		t.Fatalf("slugify = %q", got)
	}
}
