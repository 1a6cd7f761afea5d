package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrWorkspaceNotFound is returned when a workspace row does not exist.
var ErrWorkspaceNotFound = errors.New("store: workspace not found")

// Workspace is the tenancy boundary row.
type Workspace struct {
	ID            string
	Name          string
	Slug          string
	OwnerUserID   string
	ExternalOrgID sql.NullString
	SettingsJSON  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateWorkspace inserts a new workspace row.
func (s *Store) CreateWorkspace(ctx context.Context, w *Workspace) error {
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	if w.SettingsJSON == "" {
		w.SettingsJSON = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, slug, owner_user_id, external_org_id, settings_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Slug, w.OwnerUserID, w.ExternalOrgID, w.SettingsJSON, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by id.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	w := &Workspace{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, owner_user_id, external_org_id, settings_json, created_at, updated_at
		FROM workspaces WHERE id = ?
	`, id).Scan(&w.ID, &w.Name, &w.Slug, &w.OwnerUserID, &w.ExternalOrgID, &w.SettingsJSON, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get workspace: %w", err)
	}
	return w, nil
}

// SlugExists reports whether slug is already taken by any workspace.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workspaces WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: check slug: %w", err)
	}
	return n > 0, nil
}

// UpdateWorkspaceSettings persists a new settings JSON blob.
func (s *Store) UpdateWorkspaceSettings(ctx context.Context, id, settingsJSON string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET settings_json = ?, updated_at = ? WHERE id = ?
	`, settingsJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update workspace settings: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// ListWorkspaces returns every workspace (super-admin use only).
func (s *Store) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, owner_user_id, external_org_id, settings_json, created_at, updated_at
		FROM workspaces ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		w := &Workspace{}
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.OwnerUserID, &w.ExternalOrgID, &w.SettingsJSON, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
