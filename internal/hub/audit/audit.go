// Package audit writes structured, append-only entries to the audit log
// and runs the scheduled retention purge.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Actor identifies who performed an audited action.
type Actor struct {
	ID    string
	Email string
	Type  string // "user", "super_admin", "system"
}

// Transport carries request correlation metadata, absent for
// system-originated entries.
type Transport struct {
	RequestID string
	IP        string
	UserAgent string
}

// Logger writes entries to the store and is shared process-wide.
type Logger struct {
	store *store.Store
}

// New creates a Logger backed by s.
func New(s *store.Store) *Logger {
	return &Logger{store: s}
}

// entry is the common shape behind every category helper.
type entry struct {
	workspaceID  string
	action       string
	category     store.AuditCategory
	actor        Actor
	targetType   string
	targetID     string
	targetName   string
	transport    Transport
	success      bool
	errorMessage string
	metadata     map[string]any
}

func (l *Logger) write(ctx context.Context, e entry) {
	metadataJSON := "{}"
	if len(e.metadata) > 0 {
		if b, err := json.Marshal(e.metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	row := &store.AuditEntry{
		Action:       e.action,
		Category:     e.category,
		ActorType:    e.actor.Type,
		Success:      e.success,
		MetadataJSON: metadataJSON,
	}
	if e.workspaceID != "" {
		row.WorkspaceID.String, row.WorkspaceID.Valid = e.workspaceID, true
	}
	if e.actor.ID != "" {
		row.ActorID.String, row.ActorID.Valid = e.actor.ID, true
	}
	if e.actor.Email != "" {
		row.ActorEmail.String, row.ActorEmail.Valid = e.actor.Email, true
	}
	if e.targetType != "" {
		row.TargetType.String, row.TargetType.Valid = e.targetType, true
	}
	if e.targetID != "" {
		row.TargetID.String, row.TargetID.Valid = e.targetID, true
	}
	if e.targetName != "" {
		row.TargetName.String, row.TargetName.Valid = e.targetName, true
	}
	if e.transport.RequestID != "" {
		row.RequestID.String, row.RequestID.Valid = e.transport.RequestID, true
	}
	if e.transport.IP != "" {
		row.IP.String, row.IP.Valid = e.transport.IP, true
	}
	if e.transport.UserAgent != "" {
		row.UserAgent.String, row.UserAgent.Valid = e.transport.UserAgent, true
	}
	if e.errorMessage != "" {
		row.ErrorMessage.String, row.ErrorMessage.Valid = e.errorMessage, true
	}

	if err := l.store.AppendAudit(ctx, row); err != nil {
		slog.Error("audit: failed to write entry", "action", e.action, "category", e.category, "err", err)
	}
}

// LogAuth records an authentication or session event.
func (l *Logger) LogAuth(ctx context.Context, action string, actor Actor, t Transport, success bool, errMsg string) {
	l.write(ctx, entry{action: action, category: store.AuditCategoryAuth, actor: actor, transport: t, success: success, errorMessage: errMsg})
}

// LogTool records a tool lifecycle or invocation event.
func (l *Logger) LogTool(ctx context.Context, workspaceID, action string, actor Actor, toolName string, t Transport, success bool, errMsg string, metadata map[string]any) {
	l.write(ctx, entry{
		workspaceID: workspaceID, action: action, category: store.AuditCategoryTool, actor: actor,
		targetType: "tool", targetName: toolName, transport: t, success: success, errorMessage: errMsg, metadata: metadata,
	})
}

// LogCredential records a credential store/get/delete event. The metadata
// map must never contain plaintext secret material.
func (l *Logger) LogCredential(ctx context.Context, workspaceID, action string, actor Actor, toolName, provider string, t Transport, success bool, errMsg string) {
	l.write(ctx, entry{
		workspaceID: workspaceID, action: action, category: store.AuditCategoryCredential, actor: actor,
		targetType: "credential", targetName: toolName + "/" + provider, transport: t, success: success, errorMessage: errMsg,
	})
}

// LogAdmin records a super-admin action.
func (l *Logger) LogAdmin(ctx context.Context, action string, actor Actor, targetType, targetID string, t Transport, success bool, errMsg string) {
	l.write(ctx, entry{
		action: action, category: store.AuditCategoryAdmin, actor: actor,
		targetType: targetType, targetID: targetID, transport: t, success: success, errorMessage: errMsg,
	})
}

// LogWorkspace records a workspace lifecycle or settings event.
func (l *Logger) LogWorkspace(ctx context.Context, workspaceID, action string, actor Actor, t Transport, success bool, errMsg string) {
	l.write(ctx, entry{workspaceID: workspaceID, action: action, category: store.AuditCategoryWorkspace, actor: actor, transport: t, success: success, errorMessage: errMsg})
}

// ToolCallFunc is the shape of a tool operation wrapped by AuditToolCall.
type ToolCallFunc func(ctx context.Context) (any, error)

// AuditToolCall wraps fn, emitting action on success and action+"_failed"
// on error. The result and error are passed through unchanged.
func (l *Logger) AuditToolCall(ctx context.Context, workspaceID, action string, actor Actor, toolName string, t Transport, fn ToolCallFunc) (any, error) {
	result, err := fn(ctx)
	if err != nil {
		l.LogTool(ctx, workspaceID, action+"_failed", actor, toolName, t, false, err.Error(), nil)
		return result, err
	}
	l.LogTool(ctx, workspaceID, action, actor, toolName, t, true, "", nil)
	return result, nil
}
