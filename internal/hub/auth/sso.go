package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WorkOSSessionCookieName is the cookie holding the sealed wos_session blob.
const WorkOSSessionCookieName = "wos_session"

// ErrSSOUnavailable signals that the configured SSO provider could not
// unseal, authenticate, or refresh the session — triggers cookie clear
// and 401.
var ErrSSOUnavailable = errors.New("auth: sso session unavailable")

// SSOValidator is the boundary between the Hub and an external SSO SDK.
// The Hub's own code never depends on a specific vendor SDK; a vendor
// adapter satisfies this interface and is wired in at startup based on
// configured SSO credentials.
type SSOValidator interface {
	// Unseal decrypts cookieValue into an opaque session handle.
	Unseal(ctx context.Context, cookieValue string) (SSOSession, error)
	// Authenticate verifies the unsealed session is currently valid.
	Authenticate(ctx context.Context, session SSOSession) (*Identity, error)
	// Refresh attempts to extend a near-expiry or expired session,
	// returning a new sealed cookie value and refreshed Identity.
	Refresh(ctx context.Context, session SSOSession) (newCookieValue string, identity *Identity, err error)
}

// SSOSession is an opaque handle produced by Unseal. The reference
// implementation represents it as JSON bytes; a real vendor SDK would
// return its own session type.
type SSOSession struct {
	Payload []byte
}

// SSOSessionValidator drives the unseal → authenticate → refresh chain
// described in the spec, independent of which SSOValidator backs it.
type SSOSessionValidator struct {
	sso SSOValidator
}

// NewSSOSessionValidator wraps sso to implement Validator.
func NewSSOSessionValidator(sso SSOValidator) *SSOSessionValidator {
	return &SSOSessionValidator{sso: sso}
}

// Validate implements Validator: unseal, authenticate, and on failure
// attempt one refresh before giving up.
func (v *SSOSessionValidator) Validate(ctx context.Context, cookieValue string) (*Identity, error) {
	session, err := v.sso.Unseal(ctx, cookieValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSSOUnavailable, err)
	}

	identity, err := v.sso.Authenticate(ctx, session)
	if err == nil {
		return identity, nil
	}

	_, identity, refreshErr := v.sso.Refresh(ctx, session)
	if refreshErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSSOUnavailable, refreshErr)
	}
	return identity, nil
}

// RefreshCookie re-runs the refresh step and returns the new cookie
// value, used by the proactive refresh middleware for near-expiry
// sessions on authenticated requests.
func (v *SSOSessionValidator) RefreshCookie(ctx context.Context, cookieValue string) (string, *Identity, error) {
	session, err := v.sso.Unseal(ctx, cookieValue)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSSOUnavailable, err)
	}
	newCookie, identity, err := v.sso.Refresh(ctx, session)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSSOUnavailable, err)
	}
	return newCookie, identity, nil
}

// NearExpiry reports whether identity's session should be proactively
// refreshed, i.e. within window of expiring.
func NearExpiry(identity *Identity, window time.Duration, now time.Time) bool {
	if identity.ExpiresAt.IsZero() {
		return false
	}
	return identity.ExpiresAt.Sub(now) < window
}
