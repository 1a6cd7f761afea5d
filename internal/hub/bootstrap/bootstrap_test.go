package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func newTestBootstrapper(t *testing.T) (*Bootstrapper, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestRun_EmptyDatabaseTransitionsToUnconfigured(t *testing.T) {
	b, _ := newTestBootstrapper(t)
	state, err := b.Run(context.Background(), EnvSeed{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateUnconfigured {
		t.Fatalf("state = %q, want UNCONFIGURED", state)
	}
}

func TestRun_IsIdempotentOnceConfigured(t *testing.T) {
	b, _ := newTestBootstrapper(t)
	ctx := context.Background()

	if _, err := b.Run(ctx, EnvSeed{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := b.Configure(ctx, ModeLocal); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	state, err := b.Run(ctx, EnvSeed{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if state != StateConfigured {
		t.Fatalf("state = %q, want CONFIGURED", state)
	}
}

func TestLoad_DerivesEncryptionKeyFromSalt(t *testing.T) {
	b, _ := newTestBootstrapper(t)
	ctx := context.Background()

	if _, err := b.Run(ctx, EnvSeed{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Fatalf("EncryptionKey length = %d, want 32", len(cfg.EncryptionKey))
	}
}

func TestImportEnv_SeedsRuntimeConfig(t *testing.T) {
	b, _ := newTestBootstrapper(t)
	ctx := context.Background()

	seed := EnvSeed{
		Host:             "127.0.0.1",
		Port:             9090,
		AllowedOrigins:   []string{"https://app.example.com"},
		HSTSEnabled:      true,
		SuperAdminEmails: []string{"root@example.com"},
	}
	if _, err := b.Run(ctx, seed); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 9090 {
		t.Fatalf("unexpected host/port: %s:%d", cfg.Host, cfg.Port)
	}
	if !cfg.HSTSEnabled {
		t.Fatal("expected HSTS enabled")
	}
	if len(cfg.SuperAdmins) != 1 || cfg.SuperAdmins[0] != "root@example.com" {
		t.Fatalf("unexpected super admins: %v", cfg.SuperAdmins)
	}
}

func TestConfigure_RejectsUnconfiguredMode(t *testing.T) {
	b, _ := newTestBootstrapper(t)
	ctx := context.Background()
	if _, err := b.Run(ctx, EnvSeed{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := b.Configure(ctx, ModeUnconfigured); err == nil {
		t.Fatal("expected error configuring into UNCONFIGURED mode")
	}
}
