package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AuthType enumerates how a tool authenticates.
type AuthType string

const (
	AuthNone  AuthType = "none"
	AuthKey   AuthType = "key"
	AuthOAuth AuthType = "oauth"
)

// ErrToolNotFound is returned when a tool_registry row does not exist.
var ErrToolNotFound = errors.New("store: tool not found")

// ToolDescriptor is one row of tool_registry.
type ToolDescriptor struct {
	ToolName       string
	DisplayName    string
	Description    string
	Category       string
	AuthType       AuthType
	ConfigSchema   string // JSON-encoded JSON-schema document
	RequiredOAuth  string // JSON-encoded []string
	Icon           sql.NullString
	UpdatedAt      time.Time
}

// UpsertTool inserts or replaces a tool_registry row. Called once per
// discovered descriptor on every startup so catalogue edits on disk take
// effect without manual intervention.
func (s *Store) UpsertTool(ctx context.Context, d *ToolDescriptor) error {
	d.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_registry (tool_name, display_name, description, category, auth_type, config_schema, required_oauth, icon, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tool_name) DO UPDATE SET
			display_name   = excluded.display_name,
			description    = excluded.description,
			category       = excluded.category,
			auth_type      = excluded.auth_type,
			config_schema  = excluded.config_schema,
			required_oauth = excluded.required_oauth,
			icon           = excluded.icon,
			updated_at     = excluded.updated_at
	`, d.ToolName, d.DisplayName, d.Description, d.Category, string(d.AuthType),
		d.ConfigSchema, d.RequiredOAuth, d.Icon, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert tool %q: %w", d.ToolName, err)
	}
	return nil
}

const toolColumns = `tool_name, display_name, description, category, auth_type, config_schema, required_oauth, icon, updated_at`

func scanTool(row interface{ Scan(dest ...any) error }) (*ToolDescriptor, error) {
	d := &ToolDescriptor{}
	var authType string
	err := row.Scan(&d.ToolName, &d.DisplayName, &d.Description, &d.Category, &authType,
		&d.ConfigSchema, &d.RequiredOAuth, &d.Icon, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.AuthType = AuthType(authType)
	return d, nil
}

// GetTool retrieves one tool_registry row by name.
func (s *Store) GetTool(ctx context.Context, toolName string) (*ToolDescriptor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tool_registry WHERE tool_name = ?`, toolName)
	d, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get tool %q: %w", toolName, err)
	}
	return d, nil
}

// ListTools returns the whole process-wide catalogue.
func (s *Store) ListTools(ctx context.Context) ([]*ToolDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+toolColumns+` FROM tool_registry ORDER BY tool_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tools: %w", err)
	}
	defer rows.Close()

	var out []*ToolDescriptor
	for rows.Next() {
		d, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan tool: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
