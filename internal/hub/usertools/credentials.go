package usertools

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	hcrypto "github.com/bdobrica/Ruriko/common/crypto"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// ErrCredentialNotFound is returned when no credential exists for the
// requested (user, tool, provider) triple.
var ErrCredentialNotFound = store.ErrOAuthTokenNotFound

// Credential is the decrypted, caller-facing shape of a stored OAuthToken.
// Either a structured payload (AccessToken/RefreshToken/ExpiresAt/Scopes)
// or an opaque blob may be the origin; an opaque blob round-trips
// verbatim through AccessToken.
type Credential struct {
	ToolName     string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}

// CredentialStore encrypts and decrypts OAuthToken rows using the
// process's derived encryption key.
type CredentialStore struct {
	store *store.Store
	key   []byte
}

// NewCredentialStore creates a CredentialStore using key for AES-256-GCM.
func NewCredentialStore(s *store.Store, key []byte) *CredentialStore {
	return &CredentialStore{store: s, key: key}
}

// StoreCredential accepts either a structured Credential or, when Scopes
// and the other structured fields are all empty, treats AccessToken as an
// opaque JSON blob and stores it verbatim in the access-token slot.
func (c *CredentialStore) StoreCredential(ctx context.Context, userID, toolName, provider string, cred Credential) error {
	accessCipher, err := hcrypto.Encrypt(c.key, []byte(cred.AccessToken))
	if err != nil {
		return fmt.Errorf("usertools: encrypt access token: %w", err)
	}

	row := &store.OAuthToken{
		UserID:            userID,
		ToolName:          toolName,
		Provider:          provider,
		AccessTokenCipher: accessCipher,
		Scopes:            cred.Scopes,
	}
	if cred.RefreshToken != "" {
		refreshCipher, err := hcrypto.Encrypt(c.key, []byte(cred.RefreshToken))
		if err != nil {
			return fmt.Errorf("usertools: encrypt refresh token: %w", err)
		}
		row.RefreshTokenCipher = refreshCipher
	}
	if cred.ExpiresAt != nil {
		row.ExpiresAt = sql.NullTime{Time: *cred.ExpiresAt, Valid: true}
	}

	if err := c.store.UpsertOAuthToken(ctx, row); err != nil {
		return fmt.Errorf("usertools: upsert oauth token: %w", err)
	}
	return nil
}

// StoreOpaqueCredential stores blob verbatim in the access-token slot,
// matching the spec's "opaque JSON blob" storage path.
func (c *CredentialStore) StoreOpaqueCredential(ctx context.Context, userID, toolName, provider string, blob json.RawMessage) error {
	return c.StoreCredential(ctx, userID, toolName, provider, Credential{AccessToken: string(blob)})
}

// GetCredential decrypts and returns the stored credential.
func (c *CredentialStore) GetCredential(ctx context.Context, userID, toolName, provider string) (*Credential, error) {
	row, err := c.store.GetOAuthToken(ctx, userID, toolName, provider)
	if errors.Is(err, store.ErrOAuthTokenNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("usertools: get oauth token: %w", err)
	}

	access, err := hcrypto.Decrypt(c.key, row.AccessTokenCipher)
	if err != nil {
		return nil, fmt.Errorf("usertools: decrypt access token: %w", err)
	}

	cred := &Credential{
		ToolName: row.ToolName,
		Provider: row.Provider,
		AccessToken: string(access),
		Scopes:      row.Scopes,
	}
	if len(row.RefreshTokenCipher) > 0 {
		refresh, err := hcrypto.Decrypt(c.key, row.RefreshTokenCipher)
		if err != nil {
			return nil, fmt.Errorf("usertools: decrypt refresh token: %w", err)
		}
		cred.RefreshToken = string(refresh)
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		cred.ExpiresAt = &t
	}
	return cred, nil
}

// ListCredentials returns every (tool_name, provider) pair with a stored
// credential for userID, without decrypting token material.
func (c *CredentialStore) ListCredentials(ctx context.Context, userID string) ([]*store.OAuthToken, error) {
	tools, err := c.store.ListUserTools(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("usertools: list user tools: %w", err)
	}

	var out []*store.OAuthToken
	for _, ut := range tools {
		tok, err := c.store.GetOAuthToken(ctx, userID, ut.ToolName, ut.ToolName)
		if errors.Is(err, store.ErrOAuthTokenNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("usertools: get oauth token %q: %w", ut.ToolName, err)
		}
		out = append(out, tok)
	}
	return out, nil
}

// DeleteCredential removes a stored credential. Idempotent.
func (c *CredentialStore) DeleteCredential(ctx context.Context, userID, toolName, provider string) error {
	return c.store.DeleteOAuthToken(ctx, userID, toolName, provider)
}
