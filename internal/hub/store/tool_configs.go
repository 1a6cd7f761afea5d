package store

import (
	"context"
	"fmt"
	"time"
)

// ToolConfigEntry is one key/value pair of a user's tool configuration.
// Values are stored as opaque JSON-encoded strings; the registry's
// config_schema governs what keys are expected.
type ToolConfigEntry struct {
	UserID      string
	ToolName    string
	ConfigKey   string
	ConfigValue string
	UpdatedAt   time.Time
}

// SetToolConfig upserts a single config key for (userID, toolName).
func (s *Store) SetToolConfig(ctx context.Context, userID, toolName, key, value string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_configs (user_id, tool_name, config_key, config_value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tool_name, config_key) DO UPDATE SET
			config_value = excluded.config_value,
			updated_at   = excluded.updated_at
	`, userID, toolName, key, value, now)
	if err != nil {
		return fmt.Errorf("store: set tool config: %w", err)
	}
	return nil
}

// GetToolConfigs returns every stored config key/value pair for
// (userID, toolName) as a map, the shape the registry's config_schema
// validator and the middleware's injected ToolConfig both expect.
func (s *Store) GetToolConfigs(ctx context.Context, userID, toolName string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT config_key, config_value FROM tool_configs
		WHERE user_id = ? AND tool_name = ?
	`, userID, toolName)
	if err != nil {
		return nil, fmt.Errorf("store: get tool configs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("store: scan tool config: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// DeleteToolConfig removes a single config key. Idempotent.
func (s *Store) DeleteToolConfig(ctx context.Context, userID, toolName, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tool_configs WHERE user_id = ? AND tool_name = ? AND config_key = ?
	`, userID, toolName, key)
	if err != nil {
		return fmt.Errorf("store: delete tool config: %w", err)
	}
	return nil
}

// RemoveToolConfigs deletes every config key for (userID, toolName), used
// when a tool is uninstalled.
func (s *Store) RemoveToolConfigs(ctx context.Context, userID, toolName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tool_configs WHERE user_id = ? AND tool_name = ?
	`, userID, toolName)
	if err != nil {
		return fmt.Errorf("store: remove tool configs: %w", err)
	}
	return nil
}
