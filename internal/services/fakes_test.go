package services

import (
	"context"
	"fmt"
	"time"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// memTasks is an in-memory TaskRepository with the store's transition rules.
type memTasks struct {
	tasks map[string]*models.Task
}

func newMemTasks(seed ...models.Task) *memTasks {
	m := &memTasks{tasks: make(map[string]*models.Task)}
	for _, task := range seed {
		t := task
		m.tasks[task.Account+"|"+task.ID] = &t
	}
	return m
}

func (m *memTasks) get(account, id string) *models.Task {
	return m.tasks[account+"|"+id]
}

func (m *memTasks) Retrieve(_ context.Context, account, id string) (*models.Task, error) {
	task, ok := m.tasks[account+"|"+id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("task %s not found", id))
	}
	copy := *task
	return &copy, nil
}

func (m *memTasks) Update(_ context.Context, task *models.Task, updatedBy string) (*models.Task, error) {
	task.UpdatedAt = time.Now().UTC()
	task.UpdatedBy = updatedBy
	copy := *task
	m.tasks[task.Account+"|"+task.ID] = &copy
	return task, nil
}

func (m *memTasks) Transition(ctx context.Context, task *models.Task, to models.TaskStatus, updatedBy string) (*models.Task, error) {
	if !task.Status.CanTransition(to) {
		return nil, apperrors.NewUnprocessable(fmt.Sprintf("task %s cannot move from %s to %s", task.ID, task.Status, to))
	}
	task.Status = to
	return m.Update(ctx, task, updatedBy)
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	objects map[string][]byte // "bucket/key" -> data
	syncs   []string          // recorded "srcBucket/srcPrefix -> dstBucket/dstPrefix"
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	m.objects[bucket+"/"+key] = body
	return nil
}

func (m *memObjects) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("object %s not found", key))
	}
	return data, nil
}

func (m *memObjects) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key, nil
}

func (m *memObjects) SyncPrefix(_ context.Context, srcBucket, srcPrefix, dstBucket, dstPrefix string) error {
	m.syncs = append(m.syncs, fmt.Sprintf("%s/%s -> %s/%s", srcBucket, srcPrefix, dstBucket, dstPrefix))
	return nil
}

// memAccounts is an in-memory AccountDirectory.
type memAccounts struct {
	accounts map[string]*models.Account
}

func newMemAccounts(seed ...models.Account) *memAccounts {
	m := &memAccounts{accounts: make(map[string]*models.Account)}
	for _, account := range seed {
		a := account
		m.accounts[account.ID] = &a
	}
	return m
}

func (m *memAccounts) Retrieve(_ context.Context, id string) (*models.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("account %s not found", id))
	}
	copy := *account
	return &copy, nil
}

func (m *memAccounts) UpdateStatus(_ context.Context, account *models.Account, status models.AccountStatus) error {
	account.Status = status
	copy := *account
	m.accounts[account.ID] = &copy
	return nil
}

// memWriter is a TableWriter that rejects the tail of the first N calls as
// unprocessed, mimicking a contended bulk write.
type memWriter struct {
	written     map[string]map[string]int   // table -> row id -> write count
	rows        map[string][]map[string]any // table -> accepted rows, in write order
	rejectCalls int
	rejectRows  int
	calls       int
}

func newMemWriter() *memWriter {
	return &memWriter{
		written: make(map[string]map[string]int),
		rows:    make(map[string][]map[string]any),
	}
}

func (m *memWriter) BatchWriteRows(_ context.Context, table string, rows []map[string]any) ([]map[string]any, error) {
	m.calls++
	if m.written[table] == nil {
		m.written[table] = make(map[string]int)
	}

	var unprocessed []map[string]any
	keep := len(rows)
	if m.calls <= m.rejectCalls && m.rejectRows < keep {
		keep = len(rows) - m.rejectRows
		unprocessed = rows[keep:]
	}
	for _, row := range rows[:keep] {
		id, _ := row["id"].(string)
		m.written[table][id]++
		m.rows[table] = append(m.rows[table], row)
	}
	return unprocessed, nil
}
