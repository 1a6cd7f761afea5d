package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditCategory groups audit events for filtering and retention policy.
type AuditCategory string

const (
	AuditCategoryAuth      AuditCategory = "auth"
	AuditCategoryTool      AuditCategory = "tool"
	AuditCategoryCredential AuditCategory = "credential"
	AuditCategoryAdmin     AuditCategory = "admin"
	AuditCategoryWorkspace AuditCategory = "workspace"
)

// AuditEntry is one append-only audit_log row.
type AuditEntry struct {
	ID           int64
	WorkspaceID  sql.NullString
	Action       string
	Category     AuditCategory
	ActorID      sql.NullString
	ActorEmail   sql.NullString
	ActorType    string
	TargetType   sql.NullString
	TargetID     sql.NullString
	TargetName   sql.NullString
	RequestID    sql.NullString
	IP           sql.NullString
	UserAgent    sql.NullString
	Success      bool
	ErrorMessage sql.NullString
	MetadataJSON string
	OccurredAt   time.Time
}

// AppendAudit writes a new audit_log row. The log is append-only; there is
// no Update or Delete beyond the retention purge.
func (s *Store) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.MetadataJSON == "" {
		e.MetadataJSON = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			workspace_id, action, category, actor_id, actor_email, actor_type,
			target_type, target_id, target_name, request_id, ip, user_agent,
			success, error_message, metadata_json, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.WorkspaceID, e.Action, string(e.Category), e.ActorID, e.ActorEmail, e.ActorType,
		e.TargetType, e.TargetID, e.TargetName, e.RequestID, e.IP, e.UserAgent,
		boolToInt(e.Success), e.ErrorMessage, e.MetadataJSON, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("store: append audit entry: %w", err)
	}
	return nil
}

const auditColumns = `id, workspace_id, action, category, actor_id, actor_email, actor_type,
	target_type, target_id, target_name, request_id, ip, user_agent,
	success, error_message, metadata_json, occurred_at`

func scanAudit(row interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	e := &AuditEntry{}
	var category string
	var success int
	err := row.Scan(&e.ID, &e.WorkspaceID, &e.Action, &category, &e.ActorID, &e.ActorEmail, &e.ActorType,
		&e.TargetType, &e.TargetID, &e.TargetName, &e.RequestID, &e.IP, &e.UserAgent,
		&success, &e.ErrorMessage, &e.MetadataJSON, &e.OccurredAt)
	if err != nil {
		return nil, err
	}
	e.Category = AuditCategory(category)
	e.Success = success != 0
	return e, nil
}

// ListAuditByWorkspace returns audit entries for workspaceID, most recent
// first, bounded by limit/offset for pagination.
func (s *Store) ListAuditByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+` FROM audit_log
		WHERE workspace_id = ?
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`, workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list audit by workspace: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// ListAuditByCategory returns audit entries in category, most recent
// first, bounded by limit/offset.
func (s *Store) ListAuditByCategory(ctx context.Context, category AuditCategory, limit, offset int) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+` FROM audit_log
		WHERE category = ?
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`, string(category), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list audit by category: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]*AuditEntry, error) {
	var out []*AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeAuditBefore deletes every audit_log row older than cutoff, returning
// the number of rows removed. Used by the scheduled retention worker.
func (s *Store) PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge audit log: %w", err)
	}
	return res.RowsAffected()
}
