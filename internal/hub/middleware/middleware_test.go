package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_SetsFixedHeaders(t *testing.T) {
	h := SecurityHeaders(false)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected X-Frame-Options: DENY")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("expected no HSTS header when disabled")
	}
}

func TestSecurityHeaders_EmitsHSTSWhenEnabled(t *testing.T) {
	h := SecurityHeaders(true)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS header when enabled")
	}
}

func TestCORS_AllowsListedOriginWithCredentials(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("expected origin echoed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials allowed for a listed origin")
	}
}

func TestCORS_RejectsUnlistedOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS header for an unlisted origin")
	}
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	h := RequestID(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRequestID_PropagatesInboundValue(t *testing.T) {
	h := RequestID(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) != "fixed-id" {
		t.Fatalf("expected propagated id, got %q", rec.Header().Get(requestIDHeader))
	}
}

func newTestBootstrapper(t *testing.T) *bootstrap.Bootstrapper {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return bootstrap.New(s)
}

func TestSetupRequired_RedirectsBrowserWhenUnconfigured(t *testing.T) {
	b := newTestBootstrapper(t)
	if _, err := b.Run(t.Context(), bootstrap.EnvSeed{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	h := SetupRequired(b)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/app/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", rec.Code)
	}
}

func TestSetupRequired_Returns503JSONForAPIClients(t *testing.T) {
	b := newTestBootstrapper(t)
	if _, err := b.Run(t.Context(), bootstrap.EnvSeed{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	h := SetupRequired(b)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSetupRequired_AllowsWhitelistedPaths(t *testing.T) {
	b := newTestBootstrapper(t)
	if _, err := b.Run(t.Context(), bootstrap.EnvSeed{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	h := SetupRequired(b)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/api/setup/local", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected whitelisted path to pass through, got %d", rec.Code)
	}
}

func TestChain_RunsMiddlewareInOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("first"), mark("second"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order: %v", order)
	}
}
