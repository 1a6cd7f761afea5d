package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrOAuthTokenNotFound is returned when no credential is stored for the
// requested (user, tool, provider) triple.
var ErrOAuthTokenNotFound = errors.New("store: oauth token not found")

// OAuthToken holds an encrypted credential for a user's tool. The
// ciphertext columns are produced by common/crypto before the row ever
// reaches the store; this package never sees plaintext secrets.
type OAuthToken struct {
	UserID               string
	ToolName             string
	Provider             string
	AccessTokenCipher    []byte
	RefreshTokenCipher   []byte
	ExpiresAt            sql.NullTime
	Scopes               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UpsertOAuthToken stores or replaces a credential.
func (s *Store) UpsertOAuthToken(ctx context.Context, t *OAuthToken) error {
	now := time.Now().UTC()
	t.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (user_id, tool_name, provider, access_token_ciphertext, refresh_token_ciphertext, expires_at, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tool_name, provider) DO UPDATE SET
			access_token_ciphertext  = excluded.access_token_ciphertext,
			refresh_token_ciphertext = excluded.refresh_token_ciphertext,
			expires_at               = excluded.expires_at,
			scopes                   = excluded.scopes,
			updated_at               = excluded.updated_at
	`, t.UserID, t.ToolName, t.Provider, t.AccessTokenCipher, t.RefreshTokenCipher,
		t.ExpiresAt, t.Scopes, now, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert oauth token: %w", err)
	}
	return nil
}

// GetOAuthToken retrieves a single stored credential.
func (s *Store) GetOAuthToken(ctx context.Context, userID, toolName, provider string) (*OAuthToken, error) {
	t := &OAuthToken{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, tool_name, provider, access_token_ciphertext, refresh_token_ciphertext, expires_at, scopes, created_at, updated_at
		FROM oauth_tokens WHERE user_id = ? AND tool_name = ? AND provider = ?
	`, userID, toolName, provider).Scan(&t.UserID, &t.ToolName, &t.Provider, &t.AccessTokenCipher,
		&t.RefreshTokenCipher, &t.ExpiresAt, &t.Scopes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOAuthTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get oauth token: %w", err)
	}
	return t, nil
}

// DeleteOAuthToken removes a stored credential. Idempotent.
func (s *Store) DeleteOAuthToken(ctx context.Context, userID, toolName, provider string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM oauth_tokens WHERE user_id = ? AND tool_name = ? AND provider = ?
	`, userID, toolName, provider)
	if err != nil {
		return fmt.Errorf("store: delete oauth token: %w", err)
	}
	return nil
}

// ListExpiringOAuthTokens returns credentials whose expires_at is before
// cutoff, used by the background refresh sweep.
func (s *Store) ListExpiringOAuthTokens(ctx context.Context, cutoff time.Time) ([]*OAuthToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, tool_name, provider, access_token_ciphertext, refresh_token_ciphertext, expires_at, scopes, created_at, updated_at
		FROM oauth_tokens WHERE expires_at IS NOT NULL AND expires_at < ?
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: list expiring oauth tokens: %w", err)
	}
	defer rows.Close()

	var out []*OAuthToken
	for rows.Next() {
		t := &OAuthToken{}
		if err := rows.Scan(&t.UserID, &t.ToolName, &t.Provider, &t.AccessTokenCipher,
			&t.RefreshTokenCipher, &t.ExpiresAt, &t.Scopes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan oauth token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
