package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

func demoAccount() models.Account {
	return models.Account{
		ID:              "acc-1",
		Name:            "Acme Demo",
		Status:          models.AccountStatusPreparing,
		ResponsibleUser: "resp-1",
		IsDemo:          true,
	}
}

func demoEvent(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.DemoAccountEvent{Account: "acc-1"})
	require.NoError(t, err)
	return body
}

func seedExport(t *testing.T, objects *memObjects, table string, rows []map[string]any) {
	t.Helper()
	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	objects.objects["protected/"+templateTablePrefix+table+".json"] = raw
}

func seedMeta(t *testing.T, objects *memObjects, meta map[string]TableMeta) {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	objects.objects["protected/"+templateMetaKey] = raw
}

func newTestReplicator(accounts *memAccounts, writer *memWriter, objects *memObjects, now time.Time) *Replicator {
	r := NewReplicator(accounts, writer, objects, "protected", "public")
	r.now = func() time.Time { return now }
	return r
}

func TestReplicatorWritesEveryRowDespitePartialBatchFailure(t *testing.T) {
	accounts := newMemAccounts(demoAccount())
	objects := newMemObjects()

	rows := make([]map[string]any, 60)
	for i := range rows {
		rows[i] = map[string]any{"id": fmt.Sprintf("f-%02d", i)}
	}
	seedExport(t, objects, "Feedbacks", rows)

	writer := newMemWriter()
	writer.rejectCalls = 1
	writer.rejectRows = 10

	r := newTestReplicator(accounts, writer, objects, time.Now())
	require.NoError(t, r.Handle(context.Background(), demoEvent(t)))

	// 60 rows in batches of 25/25/10, first batch short by 10: the rejected
	// tail must be re-queued, never dropped and never written twice.
	require.Len(t, writer.written["Feedbacks"], 60)
	for id, count := range writer.written["Feedbacks"] {
		assert.Equal(t, 1, count, "row %s", id)
	}
	assert.Equal(t, 4, writer.calls)
}

func TestReplicatorShiftsDatesInLockstep(t *testing.T) {
	now := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
	accounts := newMemAccounts(demoAccount())
	objects := newMemObjects()

	seedMeta(t, objects, map[string]TableMeta{
		"Feedbacks": {LastDate: now.AddDate(0, 0, -3)},
	})
	seedExport(t, objects, "Feedbacks", []map[string]any{{
		"id":          "f-1",
		"date":        "2024-01-01",
		"_SectorDate": "s1:2024-01-01",
		"created_at":  "2024-01-01T09:30:00Z",
		"created_by":  "template-user",
	}})

	writer := newMemWriter()
	r := newTestReplicator(accounts, writer, objects, now)
	require.NoError(t, r.Handle(context.Background(), demoEvent(t)))

	require.Len(t, writer.rows["Feedbacks"], 1)
	row := writer.rows["Feedbacks"][0]

	// The date field and the composite key embedding it move together.
	assert.Equal(t, "2024-01-04", row["date"])
	assert.Equal(t, "s1:2024-01-04", row["_SectorDate"])
	assert.Equal(t, "2024-01-04T09:30:00Z", row["created_at"])
	// Aged rows keep their original authors.
	assert.Equal(t, "template-user", row["created_by"])
	assert.Equal(t, "acc-1", row["account"])
}

func TestReplicatorStampsFreshRowsWithResponsibleUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	accounts := newMemAccounts(demoAccount())
	objects := newMemObjects()

	// No snapshot metadata: rows are treated as created right now.
	seedExport(t, objects, "Ranks", []map[string]any{{
		"id":         "r-1",
		"created_at": "2023-01-01T00:00:00Z",
		"created_by": "template-user",
	}})

	writer := newMemWriter()
	r := newTestReplicator(accounts, writer, objects, now)
	require.NoError(t, r.Handle(context.Background(), demoEvent(t)))

	require.Len(t, writer.rows["Ranks"], 1)
	row := writer.rows["Ranks"][0]
	assert.Equal(t, now.Format(time.RFC3339), row["created_at"])
	assert.Equal(t, now.Format(time.RFC3339), row["updated_at"])
	assert.Equal(t, "resp-1", row["created_by"])
	assert.Equal(t, "resp-1", row["updated_by"])
}

func TestReplicatorFiltersTemplateAdmin(t *testing.T) {
	accounts := newMemAccounts(demoAccount())
	objects := newMemObjects()

	seedExport(t, objects, "Users", []map[string]any{
		{"id": TemplateAdminID, "name": "Admin"},
		{"id": "u-1", "name": "Ana"},
	})

	writer := newMemWriter()
	r := newTestReplicator(accounts, writer, objects, time.Now())
	require.NoError(t, r.Handle(context.Background(), demoEvent(t)))

	require.Len(t, writer.rows["Users"], 1)
	assert.Equal(t, "u-1", writer.rows["Users"][0]["id"])
}

func TestReplicatorMirrorsAssetsAndFlipsStatus(t *testing.T) {
	accounts := newMemAccounts(demoAccount())
	objects := newMemObjects()

	writer := newMemWriter()
	r := newTestReplicator(accounts, writer, objects, time.Now())
	// Missing table exports are skipped, not fatal: replication still
	// finishes and the tenant still becomes usable.
	require.NoError(t, r.Handle(context.Background(), demoEvent(t)))

	assert.Equal(t, []string{
		"protected/accounts/template-demo/avatars/ -> protected/accounts/acc-1/avatars/",
		"protected/accounts/template-demo/avatars/ -> public/accounts/acc-1/avatars/",
		"protected/accounts/template-demo/attachments/ -> protected/accounts/acc-1/attachments/",
		"protected/accounts/template-demo/attachments/ -> public/accounts/acc-1/attachments/",
	}, objects.syncs)

	account, err := accounts.Retrieve(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusReady, account.Status)
}

func TestReplicatorRejectsNonDemoAccount(t *testing.T) {
	account := demoAccount()
	account.IsDemo = false
	accounts := newMemAccounts(account)

	writer := newMemWriter()
	r := newTestReplicator(accounts, writer, newMemObjects(), time.Now())

	err := r.Handle(context.Background(), demoEvent(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnprocessable, apperrors.KindOf(err))
	assert.Empty(t, writer.rows)
}
