package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
)

// ErrNoCredentials is returned when a request carries neither a
// recognized session cookie nor a bearer token.
var ErrNoCredentials = errors.New("auth: no session cookie or bearer token")

// LookupIdentityFunc resolves a user id (as recorded on an api key) to a
// full Identity, typically backed by the store.
type LookupIdentityFunc func(ctx context.Context, userID string) (*Identity, error)

// SessionResolver resolves an HTTP request to an Identity using whichever
// credential is present: the mode-appropriate session cookie, falling
// back to a bearer token.
type SessionResolver struct {
	Bootstrap      *bootstrap.Bootstrapper
	LocalValidator *LocalValidator
	SSOValidator   Validator
	APIKeys        *APIKeyIssuer
	LookupIdentity LookupIdentityFunc
}

// Resolve extracts an Identity from r, preferring the session cookie for
// the active app mode and falling back to a bearer token.
func (s *SessionResolver) Resolve(r *http.Request) (*Identity, error) {
	ctx := r.Context()

	cfg, err := s.Bootstrap.Get(ctx)
	if err != nil {
		return nil, err
	}

	switch cfg.AppMode {
	case bootstrap.ModeLocal:
		if cookie, err := r.Cookie(LocalSessionCookieName); err == nil && s.LocalValidator != nil {
			identity, verr := s.LocalValidator.Validate(ctx, cookie.Value)
			if verr == nil {
				return identity, nil
			}
		}
	case bootstrap.ModeWorkOS:
		if cookie, err := r.Cookie(WorkOSSessionCookieName); err == nil && s.SSOValidator != nil {
			identity, verr := s.SSOValidator.Validate(ctx, cookie.Value)
			if verr == nil {
				return identity, nil
			}
		}
	}

	if token, ok := bearerToken(r); ok && s.APIKeys != nil {
		return s.APIKeys.Validate(ctx, token, s.LookupIdentity)
	}

	return nil, ErrNoCredentials
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}
