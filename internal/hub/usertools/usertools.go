// Package usertools implements per-user tool activation, configuration,
// and credential management.
package usertools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bdobrica/Ruriko/internal/hub/registry"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Status is a user's relationship to a catalogue tool.
type Status string

const (
	StatusActive        Status = "active"
	StatusMissingConfig Status = "missing_config"
	StatusNotInstalled  Status = "not_installed"
)

// ErrInvalidConfig wraps a config validation failure with the offending
// tool name, matching the REST API's 400 invalid-config error shape.
var ErrInvalidConfig = errors.New("usertools: invalid config")

// CatalogueEntry is a tool descriptor annotated with a user's status.
type CatalogueEntry struct {
	Descriptor *store.ToolDescriptor
	Status     Status
	Missing    []string
}

// Manager coordinates the registry and store to implement tool
// activation semantics.
type Manager struct {
	store *store.Store
	reg   *registry.Registry
}

// New creates a Manager.
func New(s *store.Store, r *registry.Registry) *Manager {
	return &Manager{store: s, reg: r}
}

// GetCatalogue returns every registered tool annotated with userID's
// status against it.
func (m *Manager) GetCatalogue(ctx context.Context, userID string) ([]*CatalogueEntry, error) {
	tools, err := m.reg.Catalogue(ctx)
	if err != nil {
		return nil, fmt.Errorf("usertools: catalogue: %w", err)
	}

	out := make([]*CatalogueEntry, 0, len(tools))
	for _, t := range tools {
		entry, err := m.annotate(ctx, userID, t)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *Manager) annotate(ctx context.Context, userID string, t *store.ToolDescriptor) (*CatalogueEntry, error) {
	ut, err := m.store.GetUserTool(ctx, userID, t.ToolName)
	if errors.Is(err, store.ErrUserToolNotFound) {
		return &CatalogueEntry{Descriptor: t, Status: StatusNotInstalled}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("usertools: get user tool %q: %w", t.ToolName, err)
	}
	if !ut.Enabled {
		return &CatalogueEntry{Descriptor: t, Status: StatusNotInstalled}, nil
	}

	cfg, err := m.store.GetToolConfigs(ctx, userID, t.ToolName)
	if err != nil {
		return nil, fmt.Errorf("usertools: get tool configs %q: %w", t.ToolName, err)
	}
	candidate := configToCandidate(cfg)
	missing := m.reg.MissingKeys(t.ToolName, candidate)

	if t.AuthType == store.AuthOAuth {
		if _, err := m.store.GetOAuthToken(ctx, userID, t.ToolName, t.ToolName); errors.Is(err, store.ErrOAuthTokenNotFound) {
			missing = append(missing, "oauth_token")
		} else if err != nil {
			return nil, fmt.Errorf("usertools: get oauth token %q: %w", t.ToolName, err)
		}
	}

	if len(missing) > 0 {
		return &CatalogueEntry{Descriptor: t, Status: StatusMissingConfig, Missing: missing}, nil
	}
	return &CatalogueEntry{Descriptor: t, Status: StatusActive}, nil
}

// AddTool validates config against the tool's schema, then upserts the
// installation row and config rows. Idempotent: calling it twice with the
// same config leaves the store in the same observable state.
func (m *Manager) AddTool(ctx context.Context, userID, toolName string, config map[string]any) error {
	if err := m.reg.ValidateConfig(toolName, config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := m.store.AddUserTool(ctx, userID, toolName); err != nil {
		return fmt.Errorf("usertools: add user tool: %w", err)
	}

	for key, val := range config {
		encoded, err := encodeConfigValue(val)
		if err != nil {
			return fmt.Errorf("usertools: encode config value %q: %w", key, err)
		}
		if err := m.store.SetToolConfig(ctx, userID, toolName, key, encoded); err != nil {
			return fmt.Errorf("usertools: set tool config %q: %w", key, err)
		}
	}
	return nil
}

// RemoveTool soft-disables the tool; config and credentials are
// preserved so a later AddTool re-enables with prior values intact.
func (m *Manager) RemoveTool(ctx context.Context, userID, toolName string) error {
	err := m.store.SetUserToolEnabled(ctx, userID, toolName, false)
	if errors.Is(err, store.ErrUserToolNotFound) {
		return nil
	}
	return err
}

// UpdateToolConfig merge-updates config keys; keys absent from partial
// are left unchanged.
func (m *Manager) UpdateToolConfig(ctx context.Context, userID, toolName string, partial map[string]any) error {
	for key, val := range partial {
		encoded, err := encodeConfigValue(val)
		if err != nil {
			return fmt.Errorf("usertools: encode config value %q: %w", key, err)
		}
		if err := m.store.SetToolConfig(ctx, userID, toolName, key, encoded); err != nil {
			return fmt.Errorf("usertools: set tool config %q: %w", key, err)
		}
	}
	return nil
}

// GetToolConfig returns the decoded config map for (userID, toolName).
func (m *Manager) GetToolConfig(ctx context.Context, userID, toolName string) (map[string]any, error) {
	cfg, err := m.store.GetToolConfigs(ctx, userID, toolName)
	if err != nil {
		return nil, fmt.Errorf("usertools: get tool configs: %w", err)
	}
	return configToCandidate(cfg), nil
}

// GetMissingConfig returns the schema-required keys not yet persisted for
// (userID, toolName).
func (m *Manager) GetMissingConfig(ctx context.Context, userID, toolName string) ([]string, error) {
	cfg, err := m.store.GetToolConfigs(ctx, userID, toolName)
	if err != nil {
		return nil, fmt.Errorf("usertools: get tool configs: %w", err)
	}
	return m.reg.MissingKeys(toolName, configToCandidate(cfg)), nil
}

// ListMyTools returns the tool names a user has installed (enabled or not).
func (m *Manager) ListMyTools(ctx context.Context, userID string) ([]*store.UserTool, error) {
	return m.store.ListUserTools(ctx, userID)
}

// configToCandidate decodes every stored JSON-encoded config value back
// into a plain Go value for schema validation and catalogue annotation.
func configToCandidate(cfg map[string]string) map[string]any {
	candidate := make(map[string]any, len(cfg))
	for k, v := range cfg {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			candidate[k] = v
			continue
		}
		candidate[k] = decoded
	}
	return candidate
}

func encodeConfigValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		// Store bare strings unquoted-looking but still JSON-decodable: a
		// plain string round-trips through json.Marshal as a quoted value.
		b, err := json.Marshal(s)
		return string(b), err
	}
	b, err := json.Marshal(v)
	return string(b), err
}
