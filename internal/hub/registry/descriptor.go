// Package registry discovers tool descriptors, validates their config
// schemas, and maintains the process-wide tool_registry catalogue.
package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Descriptor is the on-disk shape of a tool's catalogue entry, loaded
// from a descriptor.yaml file in the tool's directory.
type Descriptor struct {
	ToolName      string         `yaml:"tool_name"`
	DisplayName   string         `yaml:"display_name"`
	Description   string         `yaml:"description"`
	Category      string         `yaml:"category"`
	AuthType      string         `yaml:"auth_type"`
	ConfigSchema  map[string]any `yaml:"config_schema"`
	RequiredOAuth []string       `yaml:"required_oauth"`
	Icon          string         `yaml:"icon"`
}

// LoadDescriptor reads and parses the descriptor.yaml found at path within
// root.
func LoadDescriptor(root fs.FS, path string) (*Descriptor, error) {
	raw, err := fs.ReadFile(root, path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %q: %w", path, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("registry: parse %q: %w", path, err)
	}
	if d.ToolName == "" {
		return nil, fmt.Errorf("registry: %q missing tool_name", path)
	}
	return &d, nil
}

// ToRow converts a Descriptor into the store.ToolDescriptor row shape,
// marshaling ConfigSchema and RequiredOAuth to JSON for persistence.
func (d *Descriptor) ToRow() (*store.ToolDescriptor, error) {
	schemaJSON, err := json.Marshal(d.ConfigSchema)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal config_schema for %q: %w", d.ToolName, err)
	}
	oauthJSON, err := json.Marshal(d.RequiredOAuth)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal required_oauth for %q: %w", d.ToolName, err)
	}

	row := &store.ToolDescriptor{
		ToolName:      d.ToolName,
		DisplayName:   d.DisplayName,
		Description:   d.Description,
		Category:      d.Category,
		AuthType:      store.AuthType(d.AuthType),
		ConfigSchema:  string(schemaJSON),
		RequiredOAuth: string(oauthJSON),
	}
	if d.Icon != "" {
		row.Icon.String, row.Icon.Valid = d.Icon, true
	}
	return row, nil
}
