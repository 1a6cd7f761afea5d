package httpapi

import (
	"context"
	"net/http"

	"github.com/bdobrica/Ruriko/internal/hub/auth"
)

type identityKey struct{}

func withIdentity(r *http.Request, identity *auth.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey{}, identity))
}

func identityFromContext(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return identity
}

// requireIdentity resolves the caller via deps.Sessions and writes a 401
// if none is present. It returns ok=false when the handler should stop.
func requireIdentity(w http.ResponseWriter, r *http.Request, deps Dependencies) (*auth.Identity, bool) {
	identity, err := deps.Sessions.Resolve(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return identity, true
}

// requireSuperAdmin additionally enforces the super-admin bit, recording
// the denial in the audit log.
func requireSuperAdmin(w http.ResponseWriter, r *http.Request, deps Dependencies) (*auth.Identity, bool) {
	identity, ok := requireIdentity(w, r, deps)
	if !ok {
		return nil, false
	}
	if !identity.IsSuperAdmin {
		if deps.Audit != nil {
			deps.Audit.LogAdmin(r.Context(), "authz.denied", actorFor(identity), "route", r.URL.Path, transportFor(r), false, "not a super admin")
		}
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "permission_denied", "permission": "super_admin"})
		return nil, false
	}
	return identity, true
}
