package instances

import "context"

// StubRuntime is the default Runtime: starting a tool instance is a
// bounded in-process no-op, matching the spec's "placeholder for richer
// isolation" contract. Config injection still happens at Start/Refresh
// time, not per-call.
type StubRuntime struct{}

// Start always succeeds.
func (StubRuntime) Start(ctx context.Context, userID, toolName string, config map[string]any) error {
	return nil
}

// Stop always succeeds.
func (StubRuntime) Stop(ctx context.Context, userID, toolName string) error {
	return nil
}
