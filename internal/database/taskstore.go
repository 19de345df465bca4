package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// TaskStore persists task rows keyed by (account, id). Rows are created once,
// mutated in place by the owning worker and never deleted.
type TaskStore struct {
	store *Store
	table string
}

// NewTaskStore creates a task store over the given table.
func NewTaskStore(store *Store, table string) *TaskStore {
	return &TaskStore{store: store, table: table}
}

// Create inserts a new task with status created. A second create for the
// same (account, id) fails with a Conflict: this is the idempotency guard
// against redelivery of the creation step.
func (s *TaskStore) Create(ctx context.Context, task models.Task) (*models.Task, error) {
	if task.Account == "" || task.ID == "" {
		return nil, apperrors.NewBadRequest("task account and id are required")
	}
	now := time.Now().UTC()
	task.Status = models.TaskStatusCreated
	task.CreatedAt = now
	task.UpdatedAt = now
	task.UpdatedBy = task.CreatedBy

	err := s.store.PutConditional(ctx, s.table, task, "attribute_not_exists(id)")
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return nil, apperrors.NewConflict("id", fmt.Sprintf("task %s already exists", task.ID))
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// Retrieve looks a task up by (account, id).
func (s *TaskStore) Retrieve(ctx context.Context, account, id string) (*models.Task, error) {
	var task models.Task
	err := s.store.Get(ctx, s.table, map[string]types.AttributeValue{
		"account": &types.AttributeValueMemberS{Value: account},
		"id":      &types.AttributeValueMemberS{Value: id},
	}, &task)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("task %s not found", id))
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	return &task, nil
}

// Update replaces the task's mutable fields and stamps updated_at/by. There
// is no version check: concurrent updates are last-write-wins.
func (s *TaskStore) Update(ctx context.Context, task *models.Task, updatedBy string) (*models.Task, error) {
	task.UpdatedAt = time.Now().UTC()
	task.UpdatedBy = updatedBy
	if err := s.store.Put(ctx, s.table, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// Transition moves a task to the given status after checking the state
// machine, then persists it. Redelivered messages land here with the task
// already terminal and get an Unprocessable back.
func (s *TaskStore) Transition(ctx context.Context, task *models.Task, to models.TaskStatus, updatedBy string) (*models.Task, error) {
	if !task.Status.CanTransition(to) {
		return nil, apperrors.NewUnprocessable(fmt.Sprintf("task %s cannot move from %s to %s", task.ID, task.Status, to))
	}
	task.Status = to
	return s.Update(ctx, task, updatedBy)
}
