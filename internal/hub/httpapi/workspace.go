package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

const defaultAuditPageSize = 50

// registerWorkspaceRoutes wires workspace-scope settings and audit-log
// reads, gated on an authenticated identity belonging to the workspace.
func registerWorkspaceRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/workspace", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		ws, err := deps.Store.GetWorkspace(r.Context(), identity.WorkspaceID)
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			writeError(w, http.StatusNotFound, "workspace not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, ws)
	})

	mux.HandleFunc("PUT /api/workspace/settings", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		var settings map[string]any
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		encoded, err := json.Marshal(settings)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid settings payload")
			return
		}

		err = deps.Store.UpdateWorkspaceSettings(r.Context(), identity.WorkspaceID, string(encoded))
		if deps.Audit != nil {
			deps.Audit.LogWorkspace(r.Context(), identity.WorkspaceID, "workspace.settings_updated", actorFor(identity), transportFor(r), err == nil, errMsg(err))
		}
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			writeError(w, http.StatusNotFound, "workspace not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requireIdentity(w, r, deps)
		if !ok {
			return
		}
		limit, offset := pagination(r)
		entries, err := deps.Store.ListAuditByWorkspace(r.Context(), identity.WorkspaceID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list audit logs")
			return
		}
		entries = filterAuditEntries(entries, r)
		writeJSON(w, http.StatusOK, entries)
	})
}

// pagination parses limit/offset query params, defaulting to a bounded
// page size so callers can't force an unbounded scan.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultAuditPageSize
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// filterAuditEntries applies the optional category/action query filters
// client-side; the store query already paginates by workspace/category.
func filterAuditEntries(entries []*store.AuditEntry, r *http.Request) []*store.AuditEntry {
	category := r.URL.Query().Get("category")
	action := r.URL.Query().Get("action")
	if category == "" && action == "" {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if category != "" && string(e.Category) != category {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		out = append(out, e)
	}
	return out
}
