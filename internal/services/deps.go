// Package services hosts the queue workers: report generation, sheet import
// and demo replication. Workers are stateless; everything they need is
// injected once at startup and every invocation re-reads the task row, so
// redelivered messages are safe to process again.
package services

import (
	"context"

	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// TaskRepository is the slice of the task store the workers use.
type TaskRepository interface {
	Retrieve(ctx context.Context, account, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task, updatedBy string) (*models.Task, error)
	Transition(ctx context.Context, task *models.Task, to models.TaskStatus, updatedBy string) (*models.Task, error)
}

// AccountDirectory is the tenant lookup the workers use.
type AccountDirectory interface {
	Retrieve(ctx context.Context, id string) (*models.Account, error)
	UpdateStatus(ctx context.Context, account *models.Account, status models.AccountStatus) error
}

// TableWriter bulk-writes rows into a tenant table, returning the rows the
// store rejected as unprocessed.
type TableWriter interface {
	BatchWriteRows(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error)
}
