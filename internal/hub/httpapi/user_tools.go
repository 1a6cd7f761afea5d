package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bdobrica/Ruriko/common/redact"
	"github.com/bdobrica/Ruriko/internal/hub/auth"
	"github.com/bdobrica/Ruriko/internal/hub/instances"
	"github.com/bdobrica/Ruriko/internal/hub/store"
	"github.com/bdobrica/Ruriko/internal/hub/usertools"
)

// registerUserRoutes wires the authenticated-user-scope tool and
// credential endpoints under /api/user.
func registerUserRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/user/tools", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		entries, err := deps.Tools.GetCatalogue(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "catalogue unavailable")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	mux.HandleFunc("POST /api/user/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")

		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := deps.Tools.AddTool(r.Context(), identity.UserID, toolName, body.Config)
		logToolAction(r, deps, identity, "tool.added", toolName, err)
		if errors.Is(err, usertools.ErrInvalidConfig) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid-config"})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to add tool")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("DELETE /api/user/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")
		err := deps.Tools.RemoveTool(r.Context(), identity.UserID, toolName)
		logToolAction(r, deps, identity, "tool.removed", toolName, err)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to remove tool")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/user/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		cfg, err := deps.Tools.GetToolConfig(r.Context(), identity.UserID, r.PathValue("name"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load config")
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	})

	mux.HandleFunc("PUT /api/user/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")

		var partial map[string]any
		if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := deps.Tools.UpdateToolConfig(r.Context(), identity.UserID, toolName, partial)
		logToolAction(r, deps, identity, "tool.config_updated", toolName, err)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update config")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/user/tools/{name}/status", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")
		inst := deps.Instances.Get(identity.UserID, toolName)
		if inst == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": string(instances.StatusStopped)})
			return
		}
		body := map[string]any{"status": string(inst.Status)}
		if inst.LastErr != nil {
			body["error"] = inst.LastErr.Error()
		}
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("POST /api/user/tools/{name}/start", func(w http.ResponseWriter, r *http.Request) {
		handleInstanceAction(w, r, deps, "tool.started", func(ctx context.Context, userID, toolName string, cfg map[string]any) error {
			return deps.Instances.Start(r.Context(), userID, toolName, cfg)
		})
	})

	mux.HandleFunc("POST /api/user/tools/{name}/stop", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")
		err := deps.Instances.Stop(r.Context(), identity.UserID, toolName)
		logToolAction(r, deps, identity, "tool.stopped", toolName, err)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to stop tool")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/user/tools/{name}/refresh", func(w http.ResponseWriter, r *http.Request) {
		handleInstanceAction(w, r, deps, "tool.refreshed", func(ctx context.Context, userID, toolName string, cfg map[string]any) error {
			return deps.Instances.Refresh(r.Context(), userID, toolName, cfg)
		})
	})

	mux.HandleFunc("POST /api/user/tools/{name}/test", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName := r.PathValue("name")

		cfg, err := deps.Tools.GetToolConfig(r.Context(), identity.UserID, toolName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load config")
			return
		}
		missing, err := deps.Tools.GetMissingConfig(r.Context(), identity.UserID, toolName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to validate config")
			return
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid-config", "missing": missing})
			return
		}
		if err := deps.Instances.Refresh(r.Context(), identity.UserID, toolName, cfg); err != nil {
			logToolAction(r, deps, identity, "tool.tested", toolName, err)
			writeJSON(w, http.StatusOK, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		logToolAction(r, deps, identity, "tool.tested", toolName, nil)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	registerCredentialRoutes(mux, deps)
}

func handleInstanceAction(w http.ResponseWriter, r *http.Request, deps Dependencies, action string, do func(ctx context.Context, userID, toolName string, cfg map[string]any) error) {
	identity, ok := requireIdentity(w, r, deps)
	if !ok {
		return
	}
	toolName := r.PathValue("name")

	cfg, err := deps.Tools.GetToolConfig(r.Context(), identity.UserID, toolName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load config")
		return
	}

	err = do(r.Context(), identity.UserID, toolName, cfg)
	logToolAction(r, deps, identity, action, toolName, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to "+action)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func logToolAction(r *http.Request, deps Dependencies, identity *auth.Identity, action, toolName string, err error) {
	if deps.Audit == nil {
		return
	}
	if err != nil {
		action += "_failed"
	}
	deps.Audit.LogTool(r.Context(), identity.WorkspaceID, action, actorFor(identity), toolName, transportFor(r), err == nil, errMsg(err), nil)
}

func registerCredentialRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/user/credentials", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		tokens, err := deps.Credentials.ListCredentials(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list credentials")
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	})

	mux.HandleFunc("POST /api/user/credentials", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}

		var body struct {
			ToolName string            `json:"tool_name"`
			Provider string            `json:"provider"`
			Secrets  map[string]string `json:"secrets"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cred := usertools.Credential{
			ToolName:     body.ToolName,
			Provider:     body.Provider,
			AccessToken:  body.Secrets["access_token"],
			RefreshToken: body.Secrets["refresh_token"],
			Scopes:       body.Secrets["scopes"],
		}
		err := deps.Credentials.StoreCredential(r.Context(), identity.UserID, body.ToolName, body.Provider, cred)
		if deps.Audit != nil {
			deps.Audit.LogCredential(r.Context(), identity.WorkspaceID, "credential.stored", actorFor(identity), body.ToolName, body.Provider, transportFor(r),
				err == nil, redact.String(errMsg(err), cred.AccessToken, cred.RefreshToken))
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store credential")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("DELETE /api/user/credentials/{tool}/{provider}", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		toolName, provider := r.PathValue("tool"), r.PathValue("provider")
		err := deps.Credentials.DeleteCredential(r.Context(), identity.UserID, toolName, provider)
		if deps.Audit != nil {
			deps.Audit.LogCredential(r.Context(), identity.WorkspaceID, "credential.deleted", actorFor(identity), toolName, provider, transportFor(r), err == nil, errMsg(err))
		}
		if errors.Is(err, usertools.ErrCredentialNotFound) || errors.Is(err, store.ErrOAuthTokenNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete credential")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
