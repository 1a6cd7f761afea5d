package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
)

// registerSetupRoutes wires the first-run setup wizard's API, reachable
// even while the hub is UNCONFIGURED (the setup-required middleware
// whitelists /api/setup/*).
func registerSetupRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/setup/status", func(w http.ResponseWriter, r *http.Request) {
		cfg, err := deps.Bootstrap.Get(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"is_setup_required": cfg.AppMode == bootstrap.ModeUnconfigured,
			"current_mode":      cfg.AppMode,
			"setup_completed":   cfg.AppMode != bootstrap.ModeUnconfigured,
		})
	})

	mux.HandleFunc("GET /api/setup/mode", func(w http.ResponseWriter, r *http.Request) {
		cfg, err := deps.Bootstrap.Get(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "runtime configuration unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": string(cfg.AppMode)})
	})

	mux.HandleFunc("POST /api/setup/local", func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Provisioner.ProvisionUser(r.Context(), "local@omni.local", "Local", "Admin", true, "local_setup")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to provision local admin")
			return
		}

		if err := deps.Bootstrap.Configure(r.Context(), bootstrap.ModeLocal); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to configure local mode")
			return
		}

		rawKey, err := deps.APIKeys.Issue(r.Context(), result.User.ID, "setup")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue api key")
			return
		}

		if deps.Audit != nil {
			deps.Audit.LogAuth(r.Context(), "setup.local_completed", actorFor(nil), transportFor(r), true, "")
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"mode":    string(bootstrap.ModeLocal),
			"api_key": rawKey,
		})
	})

	mux.HandleFunc("POST /api/setup/workos", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ClientID == "" || body.ClientSecret == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid-config"})
			return
		}

		if err := deps.Store.SetConfig(r.Context(), "sso_client_id", body.ClientID, false); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist sso configuration")
			return
		}
		if err := deps.Store.SetConfig(r.Context(), "sso_client_secret", body.ClientSecret, true); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist sso configuration")
			return
		}
		if err := deps.Bootstrap.Configure(r.Context(), bootstrap.ModeWorkOS); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to configure workos mode")
			return
		}

		if deps.Audit != nil {
			deps.Audit.LogAuth(r.Context(), "setup.workos_completed", actorFor(nil), transportFor(r), true, "")
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": string(bootstrap.ModeWorkOS)})
	})

	mux.HandleFunc("POST /api/setup/workos/validate", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.ClientID == "" || body.ClientSecret == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":      "invalid-config",
				"remediation": "provide both client_id and client_secret from your WorkOS dashboard",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
	})

	mux.HandleFunc("POST /api/setup/upgrade-to-workos", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireSuperAdmin(w, r, deps)
		if !ok {
			return
		}

		var body struct {
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ClientID == "" || body.ClientSecret == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid-config"})
			return
		}

		if err := deps.Store.SetConfig(r.Context(), "sso_client_id", body.ClientID, false); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist sso configuration")
			return
		}
		if err := deps.Store.SetConfig(r.Context(), "sso_client_secret", body.ClientSecret, true); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist sso configuration")
			return
		}
		err := deps.Bootstrap.Configure(r.Context(), bootstrap.ModeWorkOS)
		if deps.Audit != nil {
			deps.Audit.LogAdmin(r.Context(), "setup.upgraded_to_workos", actorFor(identity), "bootstrap", "app_mode", transportFor(r), err == nil, errMsg(err))
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upgrade to workos mode")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": string(bootstrap.ModeWorkOS)})
	})

	mux.HandleFunc("POST /api/setup/network-config", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Host           string   `json:"host"`
			Port           int      `json:"port"`
			AllowedOrigins []string `json:"allowed_origins"`
			HSTSEnabled    bool     `json:"hsts_enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := deps.Bootstrap.SetNetworkConfig(r.Context(), body.Host, body.Port, body.AllowedOrigins, body.HSTSEnabled); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid-port-range"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/setup/database-path", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid-path"})
			return
		}
		if err := deps.Bootstrap.SetDatabasePath(r.Context(), body.Path); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist database path")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
