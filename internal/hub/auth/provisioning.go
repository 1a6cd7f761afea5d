package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// MFAGracePeriod is how long after creation a user may operate without
// completing MFA enrollment.
const MFAGracePeriod = 7 * 24 * time.Hour

// ProvisionResult carries the resolved user and whether it was freshly
// created on this call.
type ProvisionResult struct {
	User    *store.User
	Created bool
}

// ProvisionUser looks up email; when absent, creates the user and a
// dedicated workspace named "{given_name or email-prefix}'s Workspace",
// resolving slug collisions by appending a numeric suffix.
func (p *Provisioner) ProvisionUser(ctx context.Context, email, givenName, familyName string, isSuperAdmin bool, source string) (*ProvisionResult, error) {
	existing, err := p.store.GetUserByEmail(ctx, email)
	if err == nil {
		return &ProvisionResult{User: existing}, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("auth: lookup user %q: %w", email, err)
	}

	workspaceName, slug := workspaceNameAndSlug(givenName, email)
	userID := uuid.NewString()
	workspaceID := uuid.NewString()

	finalSlug, err := p.resolveSlugCollision(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve slug collision: %w", err)
	}

	ws := &store.Workspace{
		ID:          workspaceID,
		Name:        workspaceName,
		Slug:        finalSlug,
		OwnerUserID: userID,
	}
	if err := p.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("auth: create workspace: %w", err)
	}

	u := &store.User{
		ID:                 userID,
		Email:              email,
		GivenName:          givenName,
		FamilyName:         familyName,
		Role:               store.RoleWorkspaceOwner,
		WorkspaceID:        workspaceID,
		IsSuperAdmin:       isSuperAdmin,
		ProvisioningSource: source,
	}
	u.MFAGraceEnd.Time = time.Now().UTC().Add(MFAGracePeriod)
	u.MFAGraceEnd.Valid = true
	if err := p.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}

	return &ProvisionResult{User: u, Created: true}, nil
}

func workspaceNameAndSlug(givenName, email string) (name, slug string) {
	label := strings.TrimSpace(givenName)
	if label == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			label = email[:at]
		} else {
			label = email
		}
	}
	name = label + "'s Workspace"
	slug = slugify(label)
	return name, slug
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// resolveSlugCollision appends -2, -3, ... until an unused slug is found.
func (p *Provisioner) resolveSlugCollision(ctx context.Context, base string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		exists, err := p.store.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
