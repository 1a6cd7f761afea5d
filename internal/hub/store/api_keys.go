package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrAPIKeyNotFound is returned when an api_keys row does not exist or
// has been revoked.
var ErrAPIKeyNotFound = errors.New("store: api key not found")

// APIKey is a bearer-token row. The raw key is never stored; only its
// hash and display prefix survive.
type APIKey struct {
	ID         string
	UserID     string
	KeyHash    string
	Prefix     string
	Label      string
	LastUsedAt sql.NullTime
	CreatedAt  time.Time
	RevokedAt  sql.NullTime
}

// CreateAPIKey inserts a new key row.
func (s *Store) CreateAPIKey(ctx context.Context, k *APIKey) error {
	k.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, key_hash, prefix, label, last_used_at, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, k.ID, k.UserID, k.KeyHash, k.Prefix, k.Label, k.LastUsedAt, k.CreatedAt, k.RevokedAt)
	if err != nil {
		return fmt.Errorf("store: create api key: %w", err)
	}
	return nil
}

const apiKeyColumns = `id, user_id, key_hash, prefix, label, last_used_at, created_at, revoked_at`

func scanAPIKey(row interface{ Scan(dest ...any) error }) (*APIKey, error) {
	k := &APIKey{}
	err := row.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Prefix, &k.Label, &k.LastUsedAt, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// GetAPIKeyByHash retrieves a non-revoked key by its hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL`, hash)
	k, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get api key: %w", err)
	}
	return k, nil
}

// TouchAPIKey records the current time as the key's last use.
func (s *Store) TouchAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: touch api key: %w", err)
	}
	return nil
}

// RevokeAPIKey marks a key as revoked; subsequent GetAPIKeyByHash calls
// treat it as not found.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: revoke api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// ListAPIKeysByUser returns every key (including revoked ones) for user.
func (s *Store) ListAPIKeysByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list api keys: %w", err)
	}
	defer rows.Close()

	var out []*APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
