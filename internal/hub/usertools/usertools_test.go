package usertools

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/bdobrica/Ruriko/internal/hub/registry"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

const workflowDescriptor = `
tool_name: workflow
display_name: Workflow
category: productivity
auth_type: key
config_schema:
  type: object
  required: [api_key, base_url]
  properties:
    api_key: {type: string}
    base_url: {type: string}
required_oauth: []
`

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := registry.New(s)
	root := fstest.MapFS{"workflow/descriptor.yaml": &fstest.MapFile{Data: []byte(workflowDescriptor)}}
	if err := r.Discover(context.Background(), root); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	return New(s, r), s
}

func TestAddTool_RejectsMissingRequiredConfig(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.AddTool(context.Background(), "u_1", "workflow", map[string]any{"api_key": "k"})
	if err == nil {
		t.Fatal("expected invalid-config error")
	}
}

func TestAddTool_IsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	cfg := map[string]any{"api_key": "k", "base_url": "http://x"}

	if err := m.AddTool(ctx, "u_1", "workflow", cfg); err != nil {
		t.Fatalf("first AddTool: %v", err)
	}
	if err := m.AddTool(ctx, "u_1", "workflow", cfg); err != nil {
		t.Fatalf("second AddTool: %v", err)
	}

	catalogue, err := m.GetCatalogue(ctx, "u_1")
	if err != nil {
		t.Fatalf("GetCatalogue: %v", err)
	}
	if len(catalogue) != 1 || catalogue[0].Status != StatusActive {
		t.Fatalf("unexpected catalogue: %+v", catalogue)
	}
}

func TestRemoveTool_PreservesConfigForReEnable(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	cfg := map[string]any{"api_key": "k", "base_url": "http://x"}

	if err := m.AddTool(ctx, "u_1", "workflow", cfg); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := m.RemoveTool(ctx, "u_1", "workflow"); err != nil {
		t.Fatalf("RemoveTool: %v", err)
	}

	catalogue, _ := m.GetCatalogue(ctx, "u_1")
	if catalogue[0].Status != StatusNotInstalled {
		t.Fatalf("expected not_installed after remove, got %s", catalogue[0].Status)
	}

	if err := m.AddTool(ctx, "u_1", "workflow", map[string]any{}); err != nil {
		t.Fatalf("re-AddTool: %v", err)
	}
	catalogue, _ = m.GetCatalogue(ctx, "u_1")
	if catalogue[0].Status != StatusActive {
		t.Fatalf("expected config preserved across soft-delete, got %+v", catalogue[0])
	}
}

func TestUpdateToolConfig_MergesPartial(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if err := m.AddTool(ctx, "u_1", "workflow", map[string]any{"api_key": "k", "base_url": "http://x"}); err != nil {
		t.Fatalf("AddTool: %v", err)
	}

	if err := m.UpdateToolConfig(ctx, "u_1", "workflow", map[string]any{"base_url": "http://y"}); err != nil {
		t.Fatalf("UpdateToolConfig: %v", err)
	}

	cfg, err := m.GetToolConfig(ctx, "u_1", "workflow")
	if err != nil {
		t.Fatalf("GetToolConfig: %v", err)
	}
	if cfg["api_key"] != "k" || cfg["base_url"] != "http://y" {
		t.Fatalf("unexpected merged config: %+v", cfg)
	}
}

func TestGetMissingConfig(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	missing, err := m.GetMissingConfig(ctx, "u_1", "workflow")
	if err != nil {
		t.Fatalf("GetMissingConfig: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing keys, got %v", missing)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	_, s := newTestManager(t)
	key := make([]byte, 32)
	cs := NewCredentialStore(s, key)
	ctx := context.Background()

	err := cs.StoreCredential(ctx, "u_1", "matrix", "matrix", Credential{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		Scopes:       "rooms.read",
	})
	if err != nil {
		t.Fatalf("StoreCredential: %v", err)
	}

	cred, err := cs.GetCredential(ctx, "u_1", "matrix", "matrix")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred.AccessToken != "access-123" || cred.RefreshToken != "refresh-456" {
		t.Fatalf("unexpected credential: %+v", cred)
	}

	if err := cs.DeleteCredential(ctx, "u_1", "matrix", "matrix"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	if _, err := cs.GetCredential(ctx, "u_1", "matrix", "matrix"); err != ErrCredentialNotFound {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestStoreOpaqueCredential_RoundTripsVerbatim(t *testing.T) {
	_, s := newTestManager(t)
	key := make([]byte, 32)
	cs := NewCredentialStore(s, key)
	ctx := context.Background()

	blob := []byte(`{"legacy_format":true,"nested":{"a":1}}`)
	if err := cs.StoreOpaqueCredential(ctx, "u_1", "workflow", "workflow", blob); err != nil {
		t.Fatalf("StoreOpaqueCredential: %v", err)
	}

	cred, err := cs.GetCredential(ctx, "u_1", "workflow", "workflow")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred.AccessToken != string(blob) {
		t.Fatalf("blob not round-tripped verbatim: %s", cred.AccessToken)
	}
}
