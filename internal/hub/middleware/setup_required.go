package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
)

var setupAllowedPrefixes = []string{
	"/api/setup/",
	"/app/setup",
	"/app/",
	"/static/",
	"/health",
	"/api/health",
	"/api/server/health",
	"/docs",
	"/openapi",
}

func isSetupWhitelisted(path string) bool {
	for _, prefix := range setupAllowedPrefixes {
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

// setupRequiredBody is the structured 503 payload returned to API clients
// while the hub is unconfigured.
type setupRequiredBody struct {
	Error    string `json:"error"`
	SetupURL string `json:"setup_url"`
}

// SetupRequired gates all non-whitelisted paths behind the bootstrap
// state: while UNCONFIGURED, browser requests are redirected to
// /app/setup and API clients receive a structured 503.
func SetupRequired(b *bootstrap.Bootstrapper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSetupWhitelisted(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cfg, err := b.Get(r.Context())
			if err != nil || cfg.AppMode == bootstrap.ModeUnconfigured {
				if wantsHTML(r) {
					http.Redirect(w, r, "/app/setup", http.StatusSeeOther)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(setupRequiredBody{ //nolint:errcheck
					Error:    "hub is not configured",
					SetupURL: "/app/setup",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
