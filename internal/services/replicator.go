package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

const (
	// TemplateAccountID is the tenant holding the canonical demo dataset.
	TemplateAccountID = "template-demo"
	// TemplateAdminID is the template's built-in administrator, never cloned
	// into new tenants.
	TemplateAdminID = "template-admin"

	// BatchSize is the document store's bulk-write limit per call.
	BatchSize = 25

	templateTablePrefix = "template-demo/tables/"
	templateMetaKey     = "template-demo/tables/meta.json"
)

// ReplicationTables is the fixed table population order. Order is for human
// debugging only: each table write is independent and idempotent.
var ReplicationTables = []string{
	"Users",
	"Ranks",
	"Sectors",
	"Feedbacks",
	"Evaluations",
	"Trainings",
	"Reprimands",
	"Suspensions",
	"Coachings",
	"DecisionMatrices",
	"DismissInterviews",
}

// assetPrefixes are the file-asset path roots mirrored from the template
// account into each new tenant.
var assetPrefixes = []string{"avatars/", "attachments/"}

// TableMeta records when a template table snapshot was taken.
type TableMeta struct {
	LastDate time.Time `json:"lastDate"`
}

// Replicator clones the demo template dataset into a newly created demo
// tenant, re-stamping timestamps so the data appears to have aged naturally
// since the snapshot. Every write is a full-row overwrite, so re-running the
// whole procedure after a crash is safe.
type Replicator struct {
	accounts        AccountDirectory
	writer          TableWriter
	objects         storage.ObjectStore
	protectedBucket string
	publicBucket    string
	now             func() time.Time
	log             *logrus.Entry
}

// NewReplicator creates a demo replicator.
func NewReplicator(accounts AccountDirectory, writer TableWriter, objects storage.ObjectStore, protectedBucket, publicBucket string) *Replicator {
	return &Replicator{
		accounts:        accounts,
		writer:          writer,
		objects:         objects,
		protectedBucket: protectedBucket,
		publicBucket:    publicBucket,
		now:             time.Now,
		log:             logrus.WithField("worker", "replicator"),
	}
}

// Handle consumes one "demo account created" event. Any failure before the
// final status flip leaves the tenant preparing; redelivery re-runs the whole
// replication from scratch.
func (r *Replicator) Handle(ctx context.Context, body []byte) error {
	var event models.DemoAccountEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperrors.Wrap(apperrors.KindBadRequest, "malformed demo account event", err)
	}
	log := r.log.WithField("account", event.Account)

	account, err := r.accounts.Retrieve(ctx, event.Account)
	if err != nil {
		return err
	}
	if !account.IsDemo {
		return apperrors.NewUnprocessable(fmt.Sprintf("account %s is not a demo tenant", account.ID))
	}

	meta, err := r.readMeta(ctx)
	if err != nil {
		return err
	}

	for _, table := range ReplicationTables {
		raw, err := r.objects.Get(ctx, r.protectedBucket, templateTablePrefix+table+".json")
		if err != nil {
			var domainErr *apperrors.Error
			if errors.As(err, &domainErr) && domainErr.Kind == apperrors.KindNotFound {
				log.WithField("table", table).Warn("template export missing, skipping")
				continue
			}
			return err
		}

		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return fmt.Errorf("failed to decode template export for %s: %w", table, err)
		}

		diff := r.dayOffset(meta, table)
		rewritten := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			if table == "Users" && isTemplateAdmin(row) {
				continue
			}
			rewritten = append(rewritten, r.rewriteRow(row, account, diff))
		}

		if err := r.writeTable(ctx, table, rewritten); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"table": table, "rows": len(rewritten)}).Info("table replicated")
	}

	if err := r.mirrorAssets(ctx, account); err != nil {
		return err
	}

	if err := r.accounts.UpdateStatus(ctx, account, models.AccountStatusReady); err != nil {
		return err
	}
	log.Info("demo account ready")
	return nil
}

// readMeta loads the per-table snapshot metadata. A missing metadata object
// means every table is treated as freshly created now.
func (r *Replicator) readMeta(ctx context.Context) (map[string]TableMeta, error) {
	raw, err := r.objects.Get(ctx, r.protectedBucket, templateMetaKey)
	if err != nil {
		var domainErr *apperrors.Error
		if errors.As(err, &domainErr) && domainErr.Kind == apperrors.KindNotFound {
			r.log.Warn("template metadata missing")
			return nil, nil
		}
		return nil, err
	}
	var meta map[string]TableMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode template metadata: %w", err)
	}
	return meta, nil
}

// dayOffset computes the whole-day age of a table snapshot, or nil when no
// metadata exists. nil means "treat as freshly created now", not "aged by N
// days".
func (r *Replicator) dayOffset(meta map[string]TableMeta, table string) *int {
	m, ok := meta[table]
	if !ok || m.LastDate.IsZero() {
		return nil
	}
	days := int(r.now().UTC().Sub(m.LastDate.UTC()).Hours() / 24)
	return &days
}

// rewriteRow substitutes the tenant id and re-stamps every time-bearing
// field. Composite keys embedding a date segment shift in lockstep with the
// row's own date field so the two never disagree.
func (r *Replicator) rewriteRow(row map[string]any, account *models.Account, diff *int) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	out["account"] = account.ID

	if diff == nil {
		// No snapshot age: the row is freshly created now, authored by the
		// tenant's responsible user since there is no real historical author.
		stamp := r.now().UTC().Format(time.RFC3339)
		out["created_at"] = stamp
		out["updated_at"] = stamp
		out["created_by"] = account.ResponsibleUser
		out["updated_by"] = account.ResponsibleUser
		return out
	}

	days := *diff
	if s, ok := out["created_at"].(string); ok {
		out["created_at"] = shiftTimestamp(s, days)
	}
	if s, ok := out["updated_at"].(string); ok {
		out["updated_at"] = shiftTimestamp(s, days)
	}
	if s, ok := out["finished_at"].(string); ok {
		out["finished_at"] = shiftTimestamp(s, days)
	}
	if s, ok := out["date"].(string); ok {
		out["date"] = models.ShiftDate(s, days)
	}
	if s, ok := out["_SectorDate"].(string); ok {
		if key, err := models.ParseSectorDateKey(s); err == nil {
			out["_SectorDate"] = key.Shift(days).String()
		}
	}
	if s, ok := out["_SectorTypeDate"].(string); ok {
		if key, err := models.ParseSectorTypeDateKey(s); err == nil {
			out["_SectorTypeDate"] = key.Shift(days).String()
		}
	}
	if s, ok := out["_DateEmployee"].(string); ok {
		if key, err := models.ParseDateEmployeeKey(s); err == nil {
			out["_DateEmployee"] = key.Shift(days).String()
		}
	}
	return out
}

// writeTable drains a work queue of fixed-size batches. Unprocessed rows
// returned by the store are re-queued onto the same loop until none remain;
// a single-pass write would silently lose rows on contention.
func (r *Replicator) writeTable(ctx context.Context, table string, rows []map[string]any) error {
	pending := chunkRows(rows, BatchSize)
	for len(pending) > 0 {
		batch := pending[0]
		pending = pending[1:]

		unprocessed, err := r.writer.BatchWriteRows(ctx, table, batch)
		if err != nil {
			return fmt.Errorf("failed to replicate table %s: %w", table, err)
		}
		if len(unprocessed) > 0 {
			r.log.WithFields(logrus.Fields{"table": table, "rows": len(unprocessed)}).Warn("re-queueing unprocessed rows")
			pending = append(pending, chunkRows(unprocessed, BatchSize)...)
		}
	}
	return nil
}

// mirrorAssets copies the template's file-asset prefixes into the new
// tenant's protected and public buckets, deleting stale destination files.
func (r *Replicator) mirrorAssets(ctx context.Context, account *models.Account) error {
	for _, prefix := range assetPrefixes {
		src := fmt.Sprintf("accounts/%s/%s", TemplateAccountID, prefix)
		dst := fmt.Sprintf("accounts/%s/%s", account.ID, prefix)
		if err := r.objects.SyncPrefix(ctx, r.protectedBucket, src, r.protectedBucket, dst); err != nil {
			return err
		}
		if err := r.objects.SyncPrefix(ctx, r.protectedBucket, src, r.publicBucket, dst); err != nil {
			return err
		}
	}
	return nil
}

func isTemplateAdmin(row map[string]any) bool {
	id, _ := row["id"].(string)
	return id == TemplateAdminID
}

// shiftTimestamp moves a timestamp by the given number of days, preserving
// its original format.
func shiftTimestamp(s string, days int) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.AddDate(0, 0, days).Format(time.RFC3339)
	}
	return models.ShiftDate(s, days)
}

func chunkRows(rows []map[string]any, size int) [][]map[string]any {
	var chunks [][]map[string]any
	for len(rows) > 0 {
		n := size
		if len(rows) < n {
			n = len(rows)
		}
		chunks = append(chunks, rows[:n])
		rows = rows[n:]
	}
	return chunks
}
