package auth

import (
	"errors"
	"strings"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// ErrForbidden is returned by every authorization primitive on denial.
var ErrForbidden = errors.New("auth: forbidden")

// IsSuperAdminEmail reports whether email appears in the configured
// super-admin list, case-insensitive and trimmed.
func IsSuperAdminEmail(email string, superAdmins []string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range superAdmins {
		if strings.ToLower(strings.TrimSpace(a)) == email {
			return true
		}
	}
	return false
}

// RequireWorkspaceOwner allows the caller through if they are
// super-admin, or if targetWorkspaceID equals their own workspace.
func RequireWorkspaceOwner(identity *Identity, targetWorkspaceID string) error {
	if identity.IsSuperAdmin {
		return nil
	}
	if identity.WorkspaceID == targetWorkspaceID {
		return nil
	}
	return ErrForbidden
}

// RequireSuperAdmin allows the caller through only if they are super-admin.
func RequireSuperAdmin(identity *Identity) error {
	if identity.IsSuperAdmin {
		return nil
	}
	return ErrForbidden
}

// permissionRoles maps each named permission to the set of roles allowed
// to exercise it. Super-admin always wildcards regardless of this table.
var permissionRoles = map[string]map[store.Role]bool{
	"workspace.manage_users": {store.RoleWorkspaceOwner: true},
	"workspace.manage_settings": {store.RoleWorkspaceOwner: true},
	"tools.manage":            {store.RoleWorkspaceOwner: true, store.RoleMember: true},
	"tools.view":              {store.RoleWorkspaceOwner: true, store.RoleMember: true, store.RoleViewer: true},
	"audit.view":              {store.RoleWorkspaceOwner: true},
}

// RequirePermission checks whether role is permitted to exercise
// permission. Super-admins bypass the table entirely.
func RequirePermission(identity *Identity, role store.Role, permission string) error {
	if identity.IsSuperAdmin {
		return nil
	}
	allowed, ok := permissionRoles[permission]
	if !ok {
		return ErrForbidden
	}
	if allowed[role] {
		return nil
	}
	return ErrForbidden
}
