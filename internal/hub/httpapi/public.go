package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// registerPublicRoutes wires the handful of endpoints reachable without
// any authentication, including while the hub is in the UNCONFIGURED
// state (the setup-required middleware whitelists /api/tools/* only
// after configuration; health/info are always reachable).
func registerPublicRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/tools/catalogue", func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Registry.Catalogue(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "catalogue unavailable")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	mux.HandleFunc("GET /api/tools/{name}/metadata", func(w http.ResponseWriter, r *http.Request) {
		tool, err := deps.Registry.Get(r.Context(), r.PathValue("name"))
		if errors.Is(err, store.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, tool)
	})

	mux.HandleFunc("GET /api/tools/{name}/schema", func(w http.ResponseWriter, r *http.Request) {
		tool, err := deps.Registry.Get(r.Context(), r.PathValue("name"))
		if errors.Is(err, store.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		var schema any
		if err := json.Unmarshal([]byte(tool.ConfigSchema), &schema); err != nil {
			writeError(w, http.StatusInternalServerError, "malformed stored schema")
			return
		}
		writeJSON(w, http.StatusOK, schema)
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/info", func(w http.ResponseWriter, r *http.Request) {
		cfg, err := deps.Bootstrap.Get(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"app_mode": cfg.AppMode,
			"host":     cfg.Host,
			"port":     cfg.Port,
		})
	})
}
