package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Role is a User's role within its workspace.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleWorkspaceOwner Role = "workspace_owner"
	RoleMember         Role = "workspace_member"
	RoleViewer         Role = "workspace_viewer"
)

// ErrUserNotFound is returned when a user row does not exist.
var ErrUserNotFound = errors.New("store: user not found")

// User is a Hub identity row.
type User struct {
	ID                 string
	Email              string
	GivenName          string
	FamilyName         string
	Role               Role
	WorkspaceID        string
	IsSuperAdmin       bool
	ProvisioningSource string
	MFAGraceEnd        sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, given_name, family_name, role, workspace_id, is_super_admin, provisioning_source, mfa_grace_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.GivenName, u.FamilyName, string(u.Role), u.WorkspaceID,
		boolToInt(u.IsSuperAdmin), u.ProvisioningSource, u.MFAGraceEnd, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	u := &User{}
	var role string
	var isSuperAdmin int
	err := row.Scan(&u.ID, &u.Email, &u.GivenName, &u.FamilyName, &role, &u.WorkspaceID,
		&isSuperAdmin, &u.ProvisioningSource, &u.MFAGraceEnd, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.IsSuperAdmin = isSuperAdmin != 0
	return u, nil
}

const userColumns = `id, email, given_name, family_name, role, workspace_id, is_super_admin, provisioning_source, mfa_grace_end, created_at, updated_at`

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by its unique email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by email: %w", err)
	}
	return u, nil
}

// UpdateUserSuperAdmin flips the is_super_admin flag.
func (s *Store) UpdateUserSuperAdmin(ctx context.Context, id string, isSuperAdmin bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_super_admin = ?, updated_at = ? WHERE id = ?
	`, boolToInt(isSuperAdmin), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update super admin flag: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsersByWorkspace returns every user belonging to workspaceID.
func (s *Store) ListUsersByWorkspace(ctx context.Context, workspaceID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE workspace_id = ? ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("store: list users by workspace: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
