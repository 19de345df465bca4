package models

import "time"

// TaskStatus represents where a task is in its life cycle
type TaskStatus string

const (
	TaskStatusCreated  TaskStatus = "created"
	TaskStatusProgress TaskStatus = "progress"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusError    TaskStatus = "error"
)

// CanTransition reports whether a task may move from its current status to
// the given one. done and error are terminal.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	switch s {
	case TaskStatusCreated:
		return to == TaskStatusProgress || to == TaskStatusError
	case TaskStatusProgress:
		return to == TaskStatusDone || to == TaskStatusError
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusError
}

// TaskType identifies which worker owns a task
type TaskType string

const (
	TaskTypeExportReports  TaskType = "export-reports"
	TaskTypeImportRanks    TaskType = "import-ranks"
	TaskTypeImportUsers    TaskType = "import-users"
	TaskTypeImportManagers TaskType = "import-managers"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeExportReports, TaskTypeImportRanks, TaskTypeImportUsers, TaskTypeImportManagers:
		return true
	}
	return false
}

// Import reports whether t is one of the sheet-import types.
func (t TaskType) Import() bool {
	switch t {
	case TaskTypeImportRanks, TaskTypeImportUsers, TaskTypeImportManagers:
		return true
	}
	return false
}

// Task represents one unit of deferred work. A task row is created by the
// originating request, mutated only by the worker that owns its type and
// never deleted.
type Task struct {
	Account   string     `dynamodbav:"account" json:"account"`
	ID        string     `dynamodbav:"id" json:"id"`
	Type      TaskType   `dynamodbav:"type" json:"type"`
	Status    TaskStatus `dynamodbav:"status" json:"status"`
	Data      string     `dynamodbav:"data" json:"data"`
	FileURL   string     `dynamodbav:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	CreatedAt time.Time  `dynamodbav:"created_at" json:"createdAt"`
	CreatedBy string     `dynamodbav:"created_by" json:"createdBy"`
	UpdatedAt time.Time  `dynamodbav:"updated_at" json:"updatedAt"`
	UpdatedBy string     `dynamodbav:"updated_by" json:"updatedBy"`
}

// RowStatus is the outcome of one imported spreadsheet row
type RowStatus string

const (
	RowStatusDone  RowStatus = "done"
	RowStatusError RowStatus = "error"
)

// RowResult records the outcome of importing a single sheet row. RowNum is
// 1-based and excludes the header row. Column is only populated on error and
// refers to the original spreadsheet column letter.
type RowResult struct {
	RowNum           int       `json:"rowNum"`
	Column           string    `json:"column,omitempty"`
	RowStatus        RowStatus `json:"rowStatus"`
	RowStatusMessage string    `json:"rowStatusMessage"`
}

// AppUser is the authenticated user on whose behalf a task runs
type AppUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
}

// JobReference is the queue message pointing at a task. The payload stays in
// the task row; the worker re-reads it.
type JobReference struct {
	User    AppUser `json:"user"`
	Account string  `json:"account"`
	ID      string  `json:"id"`
}
