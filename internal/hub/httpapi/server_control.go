package httpapi

import (
	"net/http"
	"reflect"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
)

// registerServerControlRoutes wires the operator-facing endpoints for
// inspecting and applying the persisted RuntimeConfig against the
// process's actual bound settings.
func registerServerControlRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/server/status", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSuperAdmin(w, r, deps); !ok {
			return
		}
		saved, err := deps.Bootstrap.Load(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"running_config":   deps.Running,
			"saved_config":     saved,
			"restart_required": configDrifted(deps.Running, saved),
			"uptime_seconds":   time.Since(deps.StartedAt).Seconds(),
		})
	})

	mux.HandleFunc("POST /api/server/apply-config", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireSuperAdmin(w, r, deps)
		if !ok {
			return
		}
		saved, err := deps.Bootstrap.Load(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
			return
		}
		if !configDrifted(deps.Running, saved) {
			writeJSON(w, http.StatusOK, map[string]any{"restart_required": false})
			return
		}
		if deps.Audit != nil {
			deps.Audit.LogAdmin(r.Context(), "server.config_applied", actorFor(identity), "server", "config", transportFor(r), true, "")
		}
		writeJSON(w, http.StatusOK, map[string]any{"restart_required": true})
	})

	mux.HandleFunc("GET /api/server/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/server/restart", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireSuperAdmin(w, r, deps)
		if !ok {
			return
		}
		if deps.RequestRestart == nil {
			writeError(w, http.StatusServiceUnavailable, "restart not supported by this process")
			return
		}
		if deps.Audit != nil {
			deps.Audit.LogAdmin(r.Context(), "server.restart_requested", actorFor(identity), "server", "process", transportFor(r), true, "")
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "restarting"})
		deps.RequestRestart()
	})
}

// configDrifted reports whether the saved RuntimeConfig differs from what
// the process is actually bound with in a way that requires a restart to
// take effect (host/port/TLS are bind-time decisions; everything else is
// re-read live via Bootstrap.Get).
func configDrifted(running, saved *bootstrap.RuntimeConfig) bool {
	if running == nil || saved == nil {
		return false
	}
	return running.Host != saved.Host || running.Port != saved.Port || !reflect.DeepEqual(running.AllowedOrigins, saved.AllowedOrigins)
}
