package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// Retention windows per category, per the data-governance split between
// security/credential, PII, and routine operational events.
const (
	RetentionSecurity   = 365 * 24 * time.Hour
	RetentionCredential = 365 * 24 * time.Hour
	RetentionPII        = 6 * 365 * 24 * time.Hour
	RetentionOperational = 90 * 24 * time.Hour
)

// categoryRetention maps each AuditCategory to its purge window.
// AuditCategoryAuth and AuditCategoryAdmin carry PII (actor email) and
// use the longer window; AuditCategoryTool and AuditCategoryWorkspace
// are routine operational noise.
var categoryRetention = map[store.AuditCategory]time.Duration{
	store.AuditCategoryCredential: RetentionCredential,
	store.AuditCategoryAuth:       RetentionPII,
	store.AuditCategoryAdmin:      RetentionPII,
	store.AuditCategoryTool:       RetentionOperational,
	store.AuditCategoryWorkspace:  RetentionOperational,
}

// RetentionWorker periodically purges audit_log rows older than each
// category's retention window.
type RetentionWorker struct {
	store *store.Store
	cron  *cron.Cron
}

// NewRetentionWorker builds a worker that is not yet running; call Start.
func NewRetentionWorker(s *store.Store) *RetentionWorker {
	return &RetentionWorker{
		store: s,
		cron:  cron.New(),
	}
}

// Start schedules the daily purge and returns once scheduling succeeds.
// The purge itself runs in the cron library's own goroutine.
func (w *RetentionWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc("@daily", func() { w.purgeOnce(ctx) })
	if err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight purge to finish.
func (w *RetentionWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

func (w *RetentionWorker) purgeOnce(ctx context.Context) {
	for category, window := range categoryRetention {
		cutoff := time.Now().Add(-window)
		n, err := purgeCategory(ctx, w.store, category, cutoff)
		if err != nil {
			slog.Error("audit retention: purge failed", "category", category, "err", err)
			continue
		}
		if n > 0 {
			slog.Info("audit retention: purged entries", "category", category, "count", n, "cutoff", cutoff)
		}
	}
}

// purgeCategory deletes rows in category older than cutoff. The store's
// PurgeAuditBefore purges every category at once, so this issues the
// finer-grained SQL directly via the underlying connection.
func purgeCategory(ctx context.Context, s *store.Store, category store.AuditCategory, cutoff time.Time) (int64, error) {
	res, err := s.DB().ExecContext(ctx, `DELETE FROM audit_log WHERE category = ? AND occurred_at < ?`, string(category), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
