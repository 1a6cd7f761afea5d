package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Registry holds the compiled config-schema validators for every
// discovered tool and upserts their descriptors into the store.
type Registry struct {
	store *store.Store

	mu         sync.RWMutex
	validators map[string]*jsonschema.Schema
	required   map[string][]string
}

// New creates an empty Registry backed by s.
func New(s *store.Store) *Registry {
	return &Registry{
		store:      s,
		validators: make(map[string]*jsonschema.Schema),
		required:   make(map[string][]string),
	}
}

// Discover walks root looking for "*/descriptor.yaml" files, compiling each
// config_schema and upserting the descriptor row. A single tool's failure
// to load is logged at warning level and that tool is skipped; Discover
// never aborts on a per-tool failure.
func (r *Registry) Discover(ctx context.Context, root fs.FS) error {
	entries, err := fs.ReadDir(root, ".")
	if err != nil {
		return fmt.Errorf("registry: read root: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := e.Name() + "/descriptor.yaml"
		if _, err := fs.Stat(root, path); err != nil {
			continue
		}

		d, err := LoadDescriptor(root, path)
		if err != nil {
			slog.Warn("registry: skipping tool descriptor", "path", path, "err", err)
			continue
		}
		if err := r.register(ctx, d); err != nil {
			slog.Warn("registry: skipping tool", "tool", d.ToolName, "err", err)
			continue
		}
	}
	return nil
}

// register compiles the config_schema, upserts the store row, and caches
// the compiled validator plus the schema's required-key list.
func (r *Registry) register(ctx context.Context, d *Descriptor) error {
	schema, err := compileSchema(d.ToolName, d.ConfigSchema)
	if err != nil {
		return fmt.Errorf("compile config_schema: %w", err)
	}

	row, err := d.ToRow()
	if err != nil {
		return err
	}
	if err := r.store.UpsertTool(ctx, row); err != nil {
		return fmt.Errorf("upsert tool row: %w", err)
	}

	var required []string
	if req, ok := d.ConfigSchema["required"].([]any); ok {
		for _, v := range req {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}

	r.mu.Lock()
	r.validators[d.ToolName] = schema
	r.required[d.ToolName] = required
	r.mu.Unlock()
	return nil
}

// compileSchema turns a decoded YAML/JSON-schema map into a compiled
// jsonschema.Schema by round-tripping it through the jsonschema
// compiler's in-memory resource loader.
func compileSchema(toolName string, schemaDoc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	resourceName := toolName + ".json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return compiler.Compile(resourceName)
}

// ValidateConfig checks candidate against the compiled schema for
// toolName. Returns the name of the first missing required key as part
// of the error when validation fails due to a required-property
// violation, matching the REST API's invalid-config error shape.
func (r *Registry) ValidateConfig(toolName string, candidate map[string]any) error {
	r.mu.RLock()
	schema, ok := r.validators[toolName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: no schema registered for tool %q", toolName)
	}
	if err := schema.Validate(candidate); err != nil {
		return fmt.Errorf("invalid-config: %w", err)
	}
	return nil
}

// MissingKeys returns which of toolName's required config keys are absent
// from candidate, supporting get_missing_config.
func (r *Registry) MissingKeys(toolName string, candidate map[string]any) []string {
	r.mu.RLock()
	required := r.required[toolName]
	r.mu.RUnlock()

	var missing []string
	for _, key := range required {
		if _, ok := candidate[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Catalogue returns every tool descriptor currently persisted.
func (r *Registry) Catalogue(ctx context.Context) ([]*store.ToolDescriptor, error) {
	return r.store.ListTools(ctx)
}

// Get returns a single tool descriptor by name.
func (r *Registry) Get(ctx context.Context, toolName string) (*store.ToolDescriptor, error) {
	return r.store.GetTool(ctx, toolName)
}
