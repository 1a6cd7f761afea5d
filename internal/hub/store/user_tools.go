package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrUserToolNotFound is returned when a user has not installed a tool.
var ErrUserToolNotFound = errors.New("store: user tool not found")

// UserTool records that a user has a tool installed, enabled or not.
// Absence of a row is equivalent to "not installed".
type UserTool struct {
	UserID    string
	ToolName  string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddUserTool installs toolName for userID, or re-enables it if already
// present.
func (s *Store) AddUserTool(ctx context.Context, userID, toolName string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tools (user_id, tool_name, enabled, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(user_id, tool_name) DO UPDATE SET
			enabled    = 1,
			updated_at = excluded.updated_at
	`, userID, toolName, now, now)
	if err != nil {
		return fmt.Errorf("store: add user tool: %w", err)
	}
	return nil
}

// RemoveUserTool deletes the installation row outright. Associated
// tool_configs and oauth_tokens rows are left for the caller to purge via
// RemoveToolConfigs/DeleteOAuthToken, matching the teardown order the
// instance manager expects (stop running instance before forgetting
// credentials).
func (s *Store) RemoveUserTool(ctx context.Context, userID, toolName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_tools WHERE user_id = ? AND tool_name = ?`, userID, toolName)
	if err != nil {
		return fmt.Errorf("store: remove user tool: %w", err)
	}
	return nil
}

// SetUserToolEnabled flips the enabled flag without forgetting config.
func (s *Store) SetUserToolEnabled(ctx context.Context, userID, toolName string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_tools SET enabled = ?, updated_at = ? WHERE user_id = ? AND tool_name = ?
	`, boolToInt(enabled), time.Now().UTC(), userID, toolName)
	if err != nil {
		return fmt.Errorf("store: set user tool enabled: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserToolNotFound
	}
	return nil
}

// GetUserTool retrieves a single installation row.
func (s *Store) GetUserTool(ctx context.Context, userID, toolName string) (*UserTool, error) {
	t := &UserTool{}
	var enabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, tool_name, enabled, created_at, updated_at
		FROM user_tools WHERE user_id = ? AND tool_name = ?
	`, userID, toolName).Scan(&t.UserID, &t.ToolName, &enabled, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user tool: %w", err)
	}
	t.Enabled = enabled != 0
	return t, nil
}

// ListUserTools returns every tool installed by userID.
func (s *Store) ListUserTools(ctx context.Context, userID string) ([]*UserTool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, tool_name, enabled, created_at, updated_at
		FROM user_tools WHERE user_id = ? ORDER BY tool_name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list user tools: %w", err)
	}
	defer rows.Close()

	var out []*UserTool
	for rows.Next() {
		t := &UserTool{}
		var enabled int
		if err := rows.Scan(&t.UserID, &t.ToolName, &enabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan user tool: %w", err)
		}
		t.Enabled = enabled != 0
		out = append(out, t)
	}
	return out, rows.Err()
}
