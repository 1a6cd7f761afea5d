package httpapi

import (
	"net/http"

	"github.com/bdobrica/Ruriko/common/trace"
	"github.com/bdobrica/Ruriko/internal/hub/audit"
	"github.com/bdobrica/Ruriko/internal/hub/auth"
)

func actorFor(identity *auth.Identity) audit.Actor {
	if identity == nil {
		return audit.Actor{Type: "system"}
	}
	t := "user"
	if identity.IsSuperAdmin {
		t = "super_admin"
	}
	return audit.Actor{ID: identity.UserID, Email: identity.Email, Type: t}
}

func transportFor(r *http.Request) audit.Transport {
	return audit.Transport{
		RequestID: trace.FromContext(r.Context()),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
