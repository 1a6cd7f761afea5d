package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// LocalSessionCookieName is the cookie holding the signed local_session
// payload.
const LocalSessionCookieName = "local_session"

// LocalSessionTTL is the default expiry for freshly issued local sessions.
const LocalSessionTTL = 30 * 24 * time.Hour

// ErrInvalidSession is returned for any local-session validation failure:
// malformed cookie, bad signature, or expiry. The caller never learns
// which case occurred from the error alone.
var ErrInvalidSession = errors.New("auth: invalid session")

type localPayload struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	WorkspaceID  string `json:"workspace_id"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	Exp          int64  `json:"exp"`
	Iat          int64  `json:"iat"`
}

// LocalValidator signs and verifies local_session cookies using a secret
// derived from the generated local API key.
type LocalValidator struct {
	secret []byte
}

// NewLocalValidator creates a LocalValidator using secret for HMAC-SHA256.
func NewLocalValidator(secret []byte) *LocalValidator {
	return &LocalValidator{secret: secret}
}

// Sign produces a local_session cookie value for identity, valid for ttl
// (LocalSessionTTL when zero).
func (v *LocalValidator) Sign(identity Identity, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = LocalSessionTTL
	}
	now := time.Now().UTC()
	p := localPayload{
		UserID:       identity.UserID,
		Email:        identity.Email,
		WorkspaceID:  identity.WorkspaceID,
		IsSuperAdmin: identity.IsSuperAdmin,
		Exp:          now.Add(ttl).Unix(),
		Iat:          now.Unix(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("auth: marshal session payload: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	sig := v.sign(encoded)
	return encoded + "." + sig, nil
}

func (v *LocalValidator) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(encodedPayload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate verifies the signature with a constant-time comparison and
// enforces expiry.
func (v *LocalValidator) Validate(ctx context.Context, cookieValue string) (*Identity, error) {
	idx := lastDot(cookieValue)
	if idx < 0 {
		return nil, ErrInvalidSession
	}
	encoded, sig := cookieValue[:idx], cookieValue[idx+1:]

	expected := v.sign(encoded)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, ErrInvalidSession
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidSession
	}
	var p localPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalidSession
	}

	identity := &Identity{
		UserID:       p.UserID,
		Email:        p.Email,
		WorkspaceID:  p.WorkspaceID,
		IsSuperAdmin: p.IsSuperAdmin,
		ExpiresAt:    time.Unix(p.Exp, 0).UTC(),
		IssuedAt:     time.Unix(p.Iat, 0).UTC(),
	}
	if identity.Expired(time.Now()) {
		return nil, ErrInvalidSession
	}
	return identity, nil
}

// lastDot finds the last '.' separating the payload from its signature.
// The payload itself is base64url (never contains '.'), so the last dot
// in the cookie value is always the separator.
func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
