package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrConfigNotFound is returned by GetConfig when the requested key is absent.
var ErrConfigNotFound = errors.New("store: config key not found")

// ConfigEntry is one row of the system_config table.
type ConfigEntry struct {
	Key      string
	Value    string
	IsSecret bool
}

// GetConfig returns the raw value stored under key.
func (s *Store) GetConfig(ctx context.Context, key string) (*ConfigEntry, error) {
	var e ConfigEntry
	var isSecret int
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, is_secret FROM system_config WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &isSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get config %q: %w", key, err)
	}
	e.IsSecret = isSecret != 0
	return &e, nil
}

// SetConfig upserts key/value, recording whether the value is an opaque
// secret ciphertext so callers reading the table back know not to log it.
func (s *Store) SetConfig(ctx context.Context, key, value string, isSecret bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_config (key, value, is_secret, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			is_secret  = excluded.is_secret,
			updated_at = excluded.updated_at
	`, key, value, boolToInt(isSecret), now)
	if err != nil {
		return fmt.Errorf("store: set config %q: %w", key, err)
	}
	return nil
}

// DeleteConfig removes key. Idempotent.
func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM system_config WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete config %q: %w", key, err)
	}
	return nil
}

// ListConfig returns every row in system_config.
func (s *Store) ListConfig(ctx context.Context) ([]*ConfigEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, is_secret FROM system_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list config: %w", err)
	}
	defer rows.Close()

	var out []*ConfigEntry
	for rows.Next() {
		var e ConfigEntry
		var isSecret int
		if err := rows.Scan(&e.Key, &e.Value, &isSecret); err != nil {
			return nil, fmt.Errorf("store: scan config row: %w", err)
		}
		e.IsSecret = isSecret != 0
		out = append(out, &e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
