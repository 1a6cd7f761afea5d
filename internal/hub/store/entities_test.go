package store

import (
	"context"
	"testing"
	"time"
)

func TestWorkspaceCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := &Workspace{ID: "ws_1", Name: "Acme", Slug: "acme", OwnerUserID: "u_1"}
	if err := s.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}

	got, err := s.GetWorkspace(ctx, "ws_1")
	if err != nil {
		t.Fatalf("GetWorkspace: %v", err)
	}
	if got.Slug != "acme" {
		t.Fatalf("slug = %q, want acme", got.Slug)
	}

	exists, err := s.SlugExists(ctx, "acme")
	if err != nil || !exists {
		t.Fatalf("SlugExists(acme) = %v, %v", exists, err)
	}

	if _, err := s.GetWorkspace(ctx, "missing"); err != ErrWorkspaceNotFound {
		t.Fatalf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := &Workspace{ID: "ws_1", Name: "Acme", Slug: "acme", OwnerUserID: "u_1"}
	if err := s.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}

	u := &User{ID: "u_1", Email: "a@example.com", Role: RoleWorkspaceOwner, WorkspaceID: "ws_1"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != "u_1" {
		t.Fatalf("ID = %q, want u_1", byEmail.ID)
	}

	if err := s.UpdateUserSuperAdmin(ctx, "u_1", true); err != nil {
		t.Fatalf("UpdateUserSuperAdmin: %v", err)
	}
	got, _ := s.GetUser(ctx, "u_1")
	if !got.IsSuperAdmin {
		t.Fatal("expected IsSuperAdmin = true")
	}

	users, err := s.ListUsersByWorkspace(ctx, "ws_1")
	if err != nil || len(users) != 1 {
		t.Fatalf("ListUsersByWorkspace: %v, len=%d", err, len(users))
	}
}

func TestUserToolLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddUserTool(ctx, "u_1", "workflow"); err != nil {
		t.Fatalf("AddUserTool: %v", err)
	}

	ut, err := s.GetUserTool(ctx, "u_1", "workflow")
	if err != nil {
		t.Fatalf("GetUserTool: %v", err)
	}
	if !ut.Enabled {
		t.Fatal("expected newly installed tool to be enabled")
	}

	if err := s.SetUserToolEnabled(ctx, "u_1", "workflow", false); err != nil {
		t.Fatalf("SetUserToolEnabled: %v", err)
	}
	ut, _ = s.GetUserTool(ctx, "u_1", "workflow")
	if ut.Enabled {
		t.Fatal("expected tool to be disabled")
	}

	if err := s.RemoveUserTool(ctx, "u_1", "workflow"); err != nil {
		t.Fatalf("RemoveUserTool: %v", err)
	}
	if _, err := s.GetUserTool(ctx, "u_1", "workflow"); err != ErrUserToolNotFound {
		t.Fatalf("expected ErrUserToolNotFound, got %v", err)
	}
}

func TestToolConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetToolConfig(ctx, "u_1", "workflow", "base_url", "https://example.com"); err != nil {
		t.Fatalf("SetToolConfig: %v", err)
	}
	if err := s.SetToolConfig(ctx, "u_1", "workflow", "timeout_seconds", "30"); err != nil {
		t.Fatalf("SetToolConfig: %v", err)
	}

	cfg, err := s.GetToolConfigs(ctx, "u_1", "workflow")
	if err != nil {
		t.Fatalf("GetToolConfigs: %v", err)
	}
	if cfg["base_url"] != "https://example.com" || cfg["timeout_seconds"] != "30" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if err := s.DeleteToolConfig(ctx, "u_1", "workflow", "timeout_seconds"); err != nil {
		t.Fatalf("DeleteToolConfig: %v", err)
	}
	cfg, _ = s.GetToolConfigs(ctx, "u_1", "workflow")
	if _, ok := cfg["timeout_seconds"]; ok {
		t.Fatal("expected timeout_seconds to be removed")
	}

	if err := s.RemoveToolConfigs(ctx, "u_1", "workflow"); err != nil {
		t.Fatalf("RemoveToolConfigs: %v", err)
	}
	cfg, _ = s.GetToolConfigs(ctx, "u_1", "workflow")
	if len(cfg) != 0 {
		t.Fatalf("expected no config left, got %+v", cfg)
	}
}

func TestOAuthTokenCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok := &OAuthToken{
		UserID:            "u_1",
		ToolName:          "matrix",
		Provider:          "matrix",
		AccessTokenCipher: []byte("ciphertext"),
		Scopes:            "rooms.read",
	}
	if err := s.UpsertOAuthToken(ctx, tok); err != nil {
		t.Fatalf("UpsertOAuthToken: %v", err)
	}

	got, err := s.GetOAuthToken(ctx, "u_1", "matrix", "matrix")
	if err != nil {
		t.Fatalf("GetOAuthToken: %v", err)
	}
	if string(got.AccessTokenCipher) != "ciphertext" {
		t.Fatalf("unexpected ciphertext: %s", got.AccessTokenCipher)
	}

	if err := s.DeleteOAuthToken(ctx, "u_1", "matrix", "matrix"); err != nil {
		t.Fatalf("DeleteOAuthToken: %v", err)
	}
	if _, err := s.GetOAuthToken(ctx, "u_1", "matrix", "matrix"); err != ErrOAuthTokenNotFound {
		t.Fatalf("expected ErrOAuthTokenNotFound, got %v", err)
	}
}

func TestAuditAppendAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := &AuditEntry{
			Action:   "tool.call",
			Category: AuditCategoryTool,
			ActorType: "user",
			Success:  true,
		}
		e.WorkspaceID.String, e.WorkspaceID.Valid = "ws_1", true
		if err := s.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	entries, err := s.ListAuditByWorkspace(ctx, "ws_1", 10, 0)
	if err != nil {
		t.Fatalf("ListAuditByWorkspace: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	byCat, err := s.ListAuditByCategory(ctx, AuditCategoryTool, 10, 0)
	if err != nil || len(byCat) != 3 {
		t.Fatalf("ListAuditByCategory: %v, len=%d", err, len(byCat))
	}

	n, err := s.PurgeAuditBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeAuditBefore: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows purged, got %d", n)
	}
}

func TestToolRegistryUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &ToolDescriptor{
		ToolName:      "workflow",
		DisplayName:   "Workflow",
		Category:      "productivity",
		AuthType:      AuthKey,
		ConfigSchema:  `{"type":"object"}`,
		RequiredOAuth: "[]",
	}
	if err := s.UpsertTool(ctx, d); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}

	got, err := s.GetTool(ctx, "workflow")
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got.AuthType != AuthKey {
		t.Fatalf("AuthType = %q, want key", got.AuthType)
	}

	d.DisplayName = "Workflow Tool"
	if err := s.UpsertTool(ctx, d); err != nil {
		t.Fatalf("UpsertTool (update): %v", err)
	}
	tools, err := s.ListTools(ctx)
	if err != nil || len(tools) != 1 {
		t.Fatalf("ListTools: %v, len=%d", err, len(tools))
	}
	if tools[0].DisplayName != "Workflow Tool" {
		t.Fatalf("DisplayName not updated: %q", tools[0].DisplayName)
	}
}
