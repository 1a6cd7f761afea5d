package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/audit"
	"github.com/bdobrica/Ruriko/internal/hub/auth"
	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
	"github.com/bdobrica/Ruriko/internal/hub/registry"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func newTestDeps(t *testing.T) (Dependencies, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	bs := bootstrap.New(s)
	if _, err := bs.Run(t.Context(), bootstrap.EnvSeed{}); err != nil {
		t.Fatalf("bootstrap.Run: %v", err)
	}
	running, err := bs.Get(t.Context())
	if err != nil {
		t.Fatalf("bootstrap.Get: %v", err)
	}

	apiKeys := auth.NewAPIKeyIssuer(s)
	lookupIdentity := func(ctx context.Context, userID string) (*auth.Identity, error) {
		u, err := s.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &auth.Identity{
			UserID:       u.ID,
			Email:        u.Email,
			WorkspaceID:  u.WorkspaceID,
			IsSuperAdmin: u.IsSuperAdmin,
		}, nil
	}

	deps := Dependencies{
		Store:       s,
		Bootstrap:   bs,
		Registry:    registry.New(s),
		Audit:       audit.New(s),
		APIKeys:     apiKeys,
		Provisioner: auth.NewProvisioner(s),
		Sessions: &auth.SessionResolver{
			Bootstrap:      bs,
			APIKeys:        apiKeys,
			LookupIdentity: lookupIdentity,
		},
		StartedAt: time.Now().UTC(),
		Running:   running,
	}
	return deps, s
}

func TestRequireIdentity_RejectsMissingCredentials(t *testing.T) {
	deps, _ := newTestDeps(t)
	req := httptest.NewRequest(http.MethodGet, "/api/workspace", nil)
	rec := httptest.NewRecorder()

	identity, ok := requireIdentity(rec, req, deps)
	if ok || identity != nil {
		t.Fatal("expected requireIdentity to reject a request with no credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireIdentity_AcceptsValidBearerToken(t *testing.T) {
	deps, s := newTestDeps(t)

	result, err := deps.Provisioner.ProvisionUser(t.Context(), "owner@example.com", "O", "W", false, "test")
	if err != nil {
		t.Fatalf("ProvisionUser: %v", err)
	}
	rawKey, err := deps.APIKeys.Issue(t.Context(), result.User.ID, "test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_ = s

	req := httptest.NewRequest(http.MethodGet, "/api/workspace", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()

	identity, ok := requireIdentity(rec, req, deps)
	if !ok {
		t.Fatalf("expected requireIdentity to accept a valid bearer token, status=%d", rec.Code)
	}
	if identity.UserID != result.User.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, result.User.ID)
	}
}

func TestRequireSuperAdmin_RejectsNonAdmin(t *testing.T) {
	deps, _ := newTestDeps(t)

	result, err := deps.Provisioner.ProvisionUser(t.Context(), "member@example.com", "M", "W", false, "test")
	if err != nil {
		t.Fatalf("ProvisionUser: %v", err)
	}
	rawKey, err := deps.APIKeys.Issue(t.Context(), result.User.ID, "test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()

	if _, ok := requireSuperAdmin(rec, req, deps); ok {
		t.Fatal("expected requireSuperAdmin to reject a non-admin identity")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestSafeJoin_NeutralizesPathTraversal(t *testing.T) {
	root := t.TempDir()
	resolved, err := safeJoin(root, "../../etc/passwd")
	if err != nil {
		t.Fatalf("safeJoin: %v", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("filepath.Abs: %v", err)
	}
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		t.Errorf("resolved = %q escaped root %q", resolved, absRoot)
	}
}

func TestSafeJoin_AllowsNestedPath(t *testing.T) {
	root := t.TempDir()
	resolved, err := safeJoin(root, "sub/dir")
	if err != nil {
		t.Fatalf("safeJoin: %v", err)
	}
	want := filepath.Join(root, "sub", "dir")
	if resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}
}

func TestConfigDrifted_DetectsPortChange(t *testing.T) {
	running := &bootstrap.RuntimeConfig{Host: "0.0.0.0", Port: 8443}
	saved := &bootstrap.RuntimeConfig{Host: "0.0.0.0", Port: 9443}
	if !configDrifted(running, saved) {
		t.Fatal("expected configDrifted to detect a port change")
	}
}

func TestConfigDrifted_FalseWhenUnchanged(t *testing.T) {
	running := &bootstrap.RuntimeConfig{Host: "0.0.0.0", Port: 8443, AllowedOrigins: []string{"https://a"}}
	saved := &bootstrap.RuntimeConfig{Host: "0.0.0.0", Port: 8443, AllowedOrigins: []string{"https://a"}}
	if configDrifted(running, saved) {
		t.Fatal("expected configDrifted to report no drift for identical configs")
	}
}

func TestPagination_DefaultsAndCaps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?limit=99999&offset=-5", nil)
	limit, offset := pagination(req)
	if limit != defaultAuditPageSize {
		t.Errorf("limit = %d, want default %d for an out-of-range value", limit, defaultAuditPageSize)
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0 for a negative value", offset)
	}
}

func TestFilterAuditEntries_FiltersByCategoryAndAction(t *testing.T) {
	entries := []*store.AuditEntry{
		{Category: store.AuditCategoryAuth, Action: "login_succeeded"},
		{Category: store.AuditCategoryTool, Action: "tool.added"},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?category=tool", nil)
	out := filterAuditEntries(entries, req)
	if len(out) != 1 || out[0].Action != "tool.added" {
		t.Fatalf("filterAuditEntries = %+v, want only the tool.added entry", out)
	}
}

func TestSetupLocal_ProvisionsAdminAndIssuesAPIKey(t *testing.T) {
	deps, _ := newTestDeps(t)
	mux := http.NewServeMux()
	registerSetupRoutes(mux, deps)

	req := httptest.NewRequest(http.MethodPost, "/api/setup/local", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["mode"] != string(bootstrap.ModeLocal) {
		t.Errorf("mode = %q, want %q", body["mode"], bootstrap.ModeLocal)
	}
	if body["api_key"] == "" {
		t.Error("expected a non-empty api_key in the response")
	}

	cfg, err := deps.Bootstrap.Get(t.Context())
	if err != nil {
		t.Fatalf("Bootstrap.Get: %v", err)
	}
	if cfg.AppMode != bootstrap.ModeLocal {
		t.Errorf("AppMode = %q, want %q after setup", cfg.AppMode, bootstrap.ModeLocal)
	}
}
