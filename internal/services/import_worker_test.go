package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// fakeUserCreator accepts any row with a name and an email, rejecting one
// address as a duplicate.
type fakeUserCreator struct {
	dupEmail string
	created  []map[string]string
}

func (c *fakeUserCreator) Fields() []ImportField {
	return []ImportField{
		{Name: "name", Label: "Name"},
		{Name: "email", Label: "E-mail"},
	}
}

func (c *fakeUserCreator) Schema() string {
	return `{
		"type": "object",
		"required": ["name", "email"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"}
		}
	}`
}

func (c *fakeUserCreator) Create(_ context.Context, _ string, row map[string]string) (string, error) {
	if row["email"] == c.dupEmail {
		return "", apperrors.NewConflict("email", "email already taken")
	}
	c.created = append(c.created, row)
	return fmt.Sprintf("user-%d", len(c.created)), nil
}

func importTask() models.Task {
	return models.Task{
		Account:   "acc-1",
		ID:        "task-1",
		Type:      models.TaskTypeImportUsers,
		Status:    models.TaskStatusCreated,
		FileURL:   "imports/acc-1/task-1.xlsx",
		CreatedBy: "user-1",
	}
}

func importRef(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.JobReference{
		User:    models.AppUser{ID: "user-1", Account: "acc-1"},
		Account: "acc-1",
		ID:      "task-1",
	})
	require.NoError(t, err)
	return body
}

// usersSheet renders a sheet whose header cells are the raw uppercase forms
// the normalizer must map back to column letters.
func usersSheet(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	reportRows := make([]models.ReportRow, len(rows))
	for i, cells := range rows {
		reportRows[i] = models.ReportRow{
			{Column: "NAME", Value: cells[0]},
			{Column: "E-MAIL", Value: cells[1]},
		}
	}
	data, err := RenderSheet("users", reportRows)
	require.NoError(t, err)
	return data
}

func TestImportWorkerRowIsolation(t *testing.T) {
	tasks := newMemTasks(importTask())
	objects := newMemObjects()
	objects.objects["protected/imports/acc-1/task-1.xlsx"] = usersSheet(t,
		[]string{"Ana", "ana@acme.com"},
		[]string{"Bruno", ""}, // malformed: no email
		[]string{"Carla", "dupe@acme.com"},
		[]string{"Dani", "dani@acme.com"},
	)

	creator := &fakeUserCreator{dupEmail: "dupe@acme.com"}
	worker := NewImportWorker(tasks, objects, "protected", CreatorRegistry{
		models.TaskTypeImportUsers: creator,
	})

	require.NoError(t, worker.Handle(context.Background(), importRef(t)))

	task := tasks.get("acc-1", "task-1")
	// Row-level failure is not job-level failure.
	assert.Equal(t, models.TaskStatusDone, task.Status)

	var results []models.RowResult
	require.NoError(t, json.Unmarshal([]byte(task.Data), &results))
	require.Len(t, results, 4)

	assert.Equal(t, models.RowResult{RowNum: 1, RowStatus: models.RowStatusDone, RowStatusMessage: "user-1"}, results[0])

	assert.Equal(t, 2, results[1].RowNum)
	assert.Equal(t, models.RowStatusError, results[1].RowStatus)
	assert.Equal(t, "validation_error: email", results[1].RowStatusMessage)
	// The error points at the sheet's literal E-MAIL column.
	assert.Equal(t, "B", results[1].Column)

	assert.Equal(t, models.RowStatusError, results[2].RowStatus)
	assert.Equal(t, "duplicated_email", results[2].RowStatusMessage)
	assert.Equal(t, "B", results[2].Column)

	assert.Equal(t, models.RowResult{RowNum: 4, RowStatus: models.RowStatusDone, RowStatusMessage: "user-2"}, results[3])

	assert.Len(t, creator.created, 2)
}

func TestImportWorkerHeaderOnlySheet(t *testing.T) {
	tasks := newMemTasks(importTask())
	objects := newMemObjects()
	objects.objects["protected/imports/acc-1/task-1.xlsx"] = usersSheet(t)

	worker := NewImportWorker(tasks, objects, "protected", CreatorRegistry{
		models.TaskTypeImportUsers: &fakeUserCreator{},
	})

	// A sheet with no data rows is an empty result, never an error. With no
	// rows at all the rendered sheet has no header either; both forms end done.
	require.NoError(t, worker.Handle(context.Background(), importRef(t)))

	task := tasks.get("acc-1", "task-1")
	assert.Equal(t, models.TaskStatusDone, task.Status)
	assert.JSONEq(t, "[]", task.Data)
}

func TestImportWorkerMissingSheetMarksTaskFailed(t *testing.T) {
	tasks := newMemTasks(importTask())
	worker := NewImportWorker(tasks, newMemObjects(), "protected", CreatorRegistry{
		models.TaskTypeImportUsers: &fakeUserCreator{},
	})

	err := worker.Handle(context.Background(), importRef(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Equal(t, models.TaskStatusError, tasks.get("acc-1", "task-1").Status)
}

func TestImportWorkerIgnoresRedeliveredTerminalTask(t *testing.T) {
	task := importTask()
	task.Status = models.TaskStatusDone
	tasks := newMemTasks(task)
	worker := NewImportWorker(tasks, newMemObjects(), "protected", CreatorRegistry{
		models.TaskTypeImportUsers: &fakeUserCreator{},
	})

	err := worker.Handle(context.Background(), importRef(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnprocessable, apperrors.KindOf(err))
	assert.Equal(t, models.TaskStatusDone, tasks.get("acc-1", "task-1").Status)
}
