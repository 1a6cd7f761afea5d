// Package instances implements the per-(user, tool) runtime lifecycle
// state machine: stopped/starting/running/stopping/error.
package instances

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Status is a position in the instance lifecycle state machine.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Instance is the in-memory record for one (user, tool) runtime.
type Instance struct {
	UserID   string
	ToolName string
	Status   Status
	Config   map[string]any
	LastErr  error
}

type key struct {
	userID, toolName string
}

// Runtime performs the actual side effects of starting and stopping a
// tool instance. The stub runtime (below) is the default; a Docker-backed
// runtime can be substituted for sandboxed isolation.
type Runtime interface {
	Start(ctx context.Context, userID, toolName string, config map[string]any) error
	Stop(ctx context.Context, userID, toolName string) error
}

// Manager maintains the keyed instance map. All start/stop/refresh calls
// are serialized under a single mutex: instance transitions are
// infrequent enough that fine-grained per-key locking is not warranted.
type Manager struct {
	runtime Runtime

	mu        sync.Mutex
	instances map[key]*Instance
}

// New creates a Manager backed by runtime.
func New(runtime Runtime) *Manager {
	return &Manager{
		runtime:   runtime,
		instances: make(map[key]*Instance),
	}
}

// Start transitions stopped→starting→running (or →error on runtime
// failure), injecting config at start time only.
func (m *Manager) Start(ctx context.Context, userID, toolName string, config map[string]any) error {
	m.mu.Lock()
	k := key{userID, toolName}
	inst, ok := m.instances[k]
	if !ok {
		inst = &Instance{UserID: userID, ToolName: toolName, Status: StatusStopped}
		m.instances[k] = inst
	}
	if inst.Status == StatusRunning {
		m.mu.Unlock()
		return nil
	}
	inst.Status = StatusStarting
	inst.Config = config
	m.mu.Unlock()

	err := m.runtime.Start(ctx, userID, toolName, config)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		inst.Status = StatusError
		inst.LastErr = err
		slog.Warn("instances: start failed", "user_id", userID, "tool", toolName, "err", err)
		return fmt.Errorf("instances: start %s/%s: %w", userID, toolName, err)
	}
	inst.Status = StatusRunning
	inst.LastErr = nil
	return nil
}

// Stop transitions running→stopping→stopped.
func (m *Manager) Stop(ctx context.Context, userID, toolName string) error {
	m.mu.Lock()
	k := key{userID, toolName}
	inst, ok := m.instances[k]
	if !ok || inst.Status == StatusStopped {
		m.mu.Unlock()
		return nil
	}
	inst.Status = StatusStopping
	m.mu.Unlock()

	err := m.runtime.Stop(ctx, userID, toolName)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		inst.Status = StatusError
		inst.LastErr = err
		return fmt.Errorf("instances: stop %s/%s: %w", userID, toolName, err)
	}
	inst.Status = StatusStopped
	inst.LastErr = nil
	return nil
}

// Refresh re-injects config': running instances cycle through
// stopping→starting→running; instances that were missing start fresh via
// starting→running.
func (m *Manager) Refresh(ctx context.Context, userID, toolName string, config map[string]any) error {
	m.mu.Lock()
	k := key{userID, toolName}
	_, wasRunning := m.instances[k]
	m.mu.Unlock()

	if wasRunning {
		if err := m.Stop(ctx, userID, toolName); err != nil {
			return err
		}
	}
	return m.Start(ctx, userID, toolName, config)
}

// Get returns the current Instance record for (userID, toolName), or nil
// if no instance has ever been started.
func (m *Manager) Get(userID, toolName string) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[key{userID, toolName}]
	if !ok {
		return nil
	}
	clone := *inst
	return &clone
}

// ListUserTools enumerates running instances for userID.
func (m *Manager) ListUserTools(userID string) []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Instance
	for k, inst := range m.instances {
		if k.userID == userID && inst.Status == StatusRunning {
			clone := *inst
			out = append(out, &clone)
		}
	}
	return out
}

// StopAllUserTools stops every running instance for userID, used on
// logout and shutdown.
func (m *Manager) StopAllUserTools(ctx context.Context, userID string) error {
	m.mu.Lock()
	var toolNames []string
	for k, inst := range m.instances {
		if k.userID == userID && inst.Status == StatusRunning {
			toolNames = append(toolNames, k.toolName)
		}
	}
	m.mu.Unlock()

	var firstErr error
	for _, toolName := range toolNames {
		if err := m.Stop(ctx, userID, toolName); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
