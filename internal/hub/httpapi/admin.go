package httpapi

import (
	"net/http"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// registerAdminRoutes wires the super-admin-scope endpoints: cross-tenant
// workspace listing and the global audit log.
func registerAdminRoutes(mux *http.ServeMux, deps Dependencies) {
	mux.HandleFunc("GET /api/admin/workspaces", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSuperAdmin(w, r, deps); !ok {
			return
		}
		workspaces, err := deps.Store.ListWorkspaces(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list workspaces")
			return
		}
		writeJSON(w, http.StatusOK, workspaces)
	})

	mux.HandleFunc("GET /api/admin/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSuperAdmin(w, r, deps); !ok {
			return
		}
		limit, offset := pagination(r)

		category := r.URL.Query().Get("category")
		if category == "" {
			writeError(w, http.StatusBadRequest, "category is required")
			return
		}
		entries, err := deps.Store.ListAuditByCategory(r.Context(), store.AuditCategory(category), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list audit logs")
			return
		}
		entries = filterAuditEntries(entries, r)
		writeJSON(w, http.StatusOK, entries)
	})
}
