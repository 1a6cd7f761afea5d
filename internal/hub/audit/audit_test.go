package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

func newTestLogger(t *testing.T) (*Logger, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestLogAuth_WritesEntry(t *testing.T) {
	l, s := newTestLogger(t)
	ctx := context.Background()

	l.LogAuth(ctx, "auth.login_succeeded", Actor{ID: "u_1", Email: "a@example.com", Type: "user"}, Transport{RequestID: "req_1"}, true, "")

	entries, err := s.ListAuditByCategory(ctx, store.AuditCategoryAuth, 10, 0)
	if err != nil {
		t.Fatalf("ListAuditByCategory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != "auth.login_succeeded" {
		t.Fatalf("action = %q", entries[0].Action)
	}
}

func TestAuditToolCall_RecordsSuccessAndFailure(t *testing.T) {
	l, s := newTestLogger(t)
	ctx := context.Background()
	actor := Actor{ID: "u_1", Type: "user"}

	_, err := l.AuditToolCall(ctx, "ws_1", "tool.call", actor, "workflow", Transport{}, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("AuditToolCall success path: %v", err)
	}

	_, err = l.AuditToolCall(ctx, "ws_1", "tool.call", actor, "workflow", Transport{}, func(ctx context.Context) (any, error) {
		return nil, context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}

	entries, err := s.ListAuditByCategory(ctx, store.AuditCategoryTool, 10, 0)
	if err != nil {
		t.Fatalf("ListAuditByCategory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var sawSuccess, sawFailure bool
	for _, e := range entries {
		if e.Action == "tool.call" && e.Success {
			sawSuccess = true
		}
		if e.Action == "tool.call_failed" && !e.Success {
			sawFailure = true
		}
	}
	if !sawSuccess || !sawFailure {
		t.Fatalf("expected one success and one failure entry, got %+v", entries)
	}
}

func TestRetentionWorker_PurgesOldOperationalEntries(t *testing.T) {
	_, s := newTestLogger(t)
	ctx := context.Background()

	old := &store.AuditEntry{
		Action:     "tool.call",
		Category:   store.AuditCategoryTool,
		ActorType:  "user",
		Success:    true,
		OccurredAt: time.Now().Add(-100 * 24 * time.Hour),
	}
	if err := s.AppendAudit(ctx, old); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	n, err := purgeCategory(ctx, s, store.AuditCategoryTool, time.Now().Add(-RetentionOperational))
	if err != nil {
		t.Fatalf("purgeCategory: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row purged, got %d", n)
	}
}
