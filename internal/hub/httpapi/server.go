// Package httpapi implements the hub's REST surface mounted at /api,
// alongside the setup wizard's HTML-facing routes under /app/setup.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/audit"
	"github.com/bdobrica/Ruriko/internal/hub/auth"
	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
	"github.com/bdobrica/Ruriko/internal/hub/channels"
	"github.com/bdobrica/Ruriko/internal/hub/instances"
	"github.com/bdobrica/Ruriko/internal/hub/middleware"
	"github.com/bdobrica/Ruriko/internal/hub/registry"
	"github.com/bdobrica/Ruriko/internal/hub/store"
	"github.com/bdobrica/Ruriko/internal/hub/usertools"
)

// Dependencies bundles every subsystem the REST surface delegates to.
type Dependencies struct {
	Store       *store.Store
	Bootstrap   *bootstrap.Bootstrapper
	Registry    *registry.Registry
	Tools       *usertools.Manager
	Credentials *usertools.CredentialStore
	Instances   *instances.Manager
	Channels    *channels.Manager
	Audit       *audit.Logger
	Sessions    *auth.SessionResolver
	APIKeys     *auth.APIKeyIssuer
	Provisioner *auth.Provisioner

	// StartedAt records when the serving process came up, for uptime
	// reporting on /server/status.
	StartedAt time.Time
	// Running is the RuntimeConfig snapshot the process is actually
	// bound with (host/port/TLS), captured once at startup. It diverges
	// from a fresh Bootstrap.Load() read whenever an operator edits
	// server-affecting settings without restarting.
	Running *bootstrap.RuntimeConfig
	// RequestRestart triggers a graceful process restart, picking up
	// any newly applied configuration. Nil in tests that don't exercise
	// /server/restart.
	RequestRestart func()
}

// NewMux assembles the full route tree with the standard middleware
// chain applied.
func NewMux(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	registerPublicRoutes(mux, deps)
	registerUserRoutes(mux, deps)
	registerWorkspaceRoutes(mux, deps)
	registerAdminRoutes(mux, deps)
	registerServerControlRoutes(mux, deps)
	registerSetupRoutes(mux, deps)
	registerFSNetRoutes(mux, deps)

	return middleware.Chain(mux,
		middleware.RequestID,
		dynamicSecurityAndCORS(deps.Bootstrap),
		middleware.SetupRequired(deps.Bootstrap),
	)
}

// dynamicSecurityAndCORS re-reads RuntimeConfig on every request (it's
// cached internally by the Bootstrapper, so this is cheap) rather than
// freezing HSTS/CORS settings at mux-assembly time, since operators can
// change them after the hub is already serving traffic.
func dynamicSecurityAndCORS(b *bootstrap.Bootstrapper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg, err := b.Get(r.Context())
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
				return
			}
			h := middleware.Chain(next,
				middleware.SecurityHeaders(cfg.HSTSEnabled),
				middleware.CORS(cfg.AllowedOrigins),
			)
			h.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
