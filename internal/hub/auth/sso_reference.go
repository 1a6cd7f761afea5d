package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	hcrypto "github.com/bdobrica/Ruriko/common/crypto"
)

// ReferenceSSO is a self-contained SSOValidator implementation used when
// no vendor SSO SDK is configured. It seals sessions with the same
// AES-256-GCM primitive used for credential-at-rest encryption, keyed by
// the stored workos_cookie_password. It exists so app_mode=workos is
// exercisable end-to-end without a live external IdP; production
// deployments are expected to supply a vendor-backed SSOValidator
// satisfying the same interface.
type ReferenceSSO struct {
	key         []byte
	refreshTTL  time.Duration
	sessionTTL  time.Duration
	lookupEmail func(ctx context.Context, userID string) (*Identity, error)
}

// sealedPayload is what ReferenceSSO.Unseal decrypts and what Refresh
// re-seals.
type sealedPayload struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	WorkspaceID string    `json:"workspace_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewReferenceSSO creates a ReferenceSSO keyed by cookiePassword (32
// bytes). lookupIdentity resolves a user_id back to a fresh Identity
// during Refresh, mirroring how a real IdP SDK would re-derive claims.
func NewReferenceSSO(cookiePassword []byte, sessionTTL time.Duration, lookupIdentity func(ctx context.Context, userID string) (*Identity, error)) *ReferenceSSO {
	return &ReferenceSSO{key: cookiePassword, sessionTTL: sessionTTL, lookupEmail: lookupIdentity}
}

// Seal produces a wos_session cookie value for identity.
func (r *ReferenceSSO) Seal(identity Identity) (string, error) {
	p := sealedPayload{
		UserID:      identity.UserID,
		Email:       identity.Email,
		WorkspaceID: identity.WorkspaceID,
		ExpiresAt:   identity.ExpiresAt,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("auth: marshal sso payload: %w", err)
	}
	cipher, err := hcrypto.Encrypt(r.key, raw)
	if err != nil {
		return "", fmt.Errorf("auth: seal sso session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(cipher), nil
}

// Unseal decrypts cookieValue into an SSOSession carrying the decrypted
// JSON payload.
func (r *ReferenceSSO) Unseal(ctx context.Context, cookieValue string) (SSOSession, error) {
	cipher, err := base64.RawURLEncoding.DecodeString(cookieValue)
	if err != nil {
		return SSOSession{}, fmt.Errorf("auth: decode sso cookie: %w", err)
	}
	plain, err := hcrypto.Decrypt(r.key, cipher)
	if err != nil {
		return SSOSession{}, fmt.Errorf("auth: unseal sso cookie: %w", err)
	}
	return SSOSession{Payload: plain}, nil
}

// Authenticate checks the session's embedded expiry.
func (r *ReferenceSSO) Authenticate(ctx context.Context, session SSOSession) (*Identity, error) {
	var p sealedPayload
	if err := json.Unmarshal(session.Payload, &p); err != nil {
		return nil, fmt.Errorf("auth: decode sso session: %w", err)
	}
	if time.Now().After(p.ExpiresAt) {
		return nil, fmt.Errorf("auth: sso session expired at %s", p.ExpiresAt)
	}
	return &Identity{UserID: p.UserID, Email: p.Email, WorkspaceID: p.WorkspaceID, ExpiresAt: p.ExpiresAt}, nil
}

// Refresh re-derives the identity via lookupEmail and reseals a new
// session with an extended expiry.
func (r *ReferenceSSO) Refresh(ctx context.Context, session SSOSession) (string, *Identity, error) {
	var p sealedPayload
	if err := json.Unmarshal(session.Payload, &p); err != nil {
		return "", nil, fmt.Errorf("auth: decode sso session: %w", err)
	}

	identity, err := r.lookupEmail(ctx, p.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("auth: refresh lookup failed: %w", err)
	}
	identity.ExpiresAt = time.Now().Add(r.sessionTTL)

	newCookie, err := r.Seal(*identity)
	if err != nil {
		return "", nil, err
	}
	return newCookie, identity, nil
}
