// Package auth implements dual-mode session validation (local and
// WorkOS-style SSO), super-admin policy, workspace provisioning, and the
// authorization primitives used by the HTTP API and protocol middleware.
package auth

import (
	"context"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID       string
	Email        string
	WorkspaceID  string
	IsSuperAdmin bool
	ExpiresAt    time.Time
	IssuedAt     time.Time
}

// Expired reports whether the session's exp claim has passed.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Validator authenticates an inbound cookie value into an Identity.
// Implementations never distinguish "absent", "malformed", or "expired"
// in the returned error's externally visible shape; callers translate
// any non-nil error into a generic 401.
type Validator interface {
	Validate(ctx context.Context, cookieValue string) (*Identity, error)
}

// Provisioner looks up or lazily creates the user and workspace rows for
// a freshly authenticated Identity, run once per successful
// authentication regardless of mode.
type Provisioner struct {
	store *store.Store
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(s *store.Store) *Provisioner {
	return &Provisioner{store: s}
}
