package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

// ImportField pairs a domain field name with the header label users see on
// the sheet.
type ImportField struct {
	Name  string
	Label string
}

// EntityCreator creates one domain entity per sheet row. One implementation
// per import type, owned by its domain module.
type EntityCreator interface {
	// Fields lists the domain fields and their sheet header labels.
	Fields() []ImportField
	// Schema is the JSON schema a row must satisfy before creation.
	Schema() string
	// Create validates business rules and persists one entity, returning its
	// id. Uniqueness violations surface as Conflict with the field set.
	Create(ctx context.Context, account string, row map[string]string) (string, error)
}

// CreatorRegistry maps import task types to their creators.
type CreatorRegistry map[models.TaskType]EntityCreator

// ImportWorker consumes "import sheet" references: it downloads the uploaded
// spreadsheet, creates one entity per data row and records a per-row result.
// Row-level failure is not job-level failure: the task ends done even when
// individual rows failed.
type ImportWorker struct {
	tasks    TaskRepository
	objects  storage.ObjectStore
	bucket   string
	creators CreatorRegistry
	log      *logrus.Entry
}

// NewImportWorker creates an import worker.
func NewImportWorker(tasks TaskRepository, objects storage.ObjectStore, bucket string, creators CreatorRegistry) *ImportWorker {
	return &ImportWorker{
		tasks:    tasks,
		objects:  objects,
		bucket:   bucket,
		creators: creators,
		log:      logrus.WithField("worker", "import"),
	}
}

// Handle processes one job reference.
func (w *ImportWorker) Handle(ctx context.Context, body []byte) error {
	var ref models.JobReference
	if err := json.Unmarshal(body, &ref); err != nil {
		return apperrors.Wrap(apperrors.KindBadRequest, "malformed job reference", err)
	}
	log := w.log.WithFields(logrus.Fields{"task": ref.ID, "account": ref.Account})

	task, err := w.tasks.Retrieve(ctx, ref.Account, ref.ID)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return apperrors.NewUnprocessable(fmt.Sprintf("task %s already %s", task.ID, task.Status))
	}

	creator, ok := w.creators[task.Type]
	if !ok {
		return w.fail(ctx, task, ref, apperrors.NewUnprocessable(fmt.Sprintf("no creator for import type %q", task.Type)))
	}

	if task, err = w.tasks.Transition(ctx, task, models.TaskStatusProgress, ref.User.ID); err != nil {
		return err
	}

	sheet, err := w.objects.Get(ctx, w.bucket, task.FileURL)
	if err != nil {
		return w.fail(ctx, task, ref, err)
	}

	header, rows, err := ParseSheet(sheet)
	if err != nil {
		return w.fail(ctx, task, ref, apperrors.Wrap(apperrors.KindUnprocessable, "unreadable sheet", err))
	}
	headerMap := BuildHeaderMap(header)

	results := make([]models.RowResult, 0, len(rows))
	for i, cells := range rows {
		results = append(results, w.importRow(ctx, creator, headerMap, task.Account, i+1, cells))
	}
	log.WithField("rows", len(results)).Info("sheet imported")

	data, err := json.Marshal(results)
	if err != nil {
		return w.fail(ctx, task, ref, err)
	}
	task.Data = string(data)
	if _, err := w.tasks.Transition(ctx, task, models.TaskStatusDone, ref.User.ID); err != nil {
		return err
	}
	return nil
}

// importRow maps one sheet row to domain fields, validates it and attempts
// creation. Every failure is captured into the result, never propagated.
func (w *ImportWorker) importRow(ctx context.Context, creator EntityCreator, headerMap map[string]HeaderColumn, account string, rowNum int, cells []string) models.RowResult {
	row := make(map[string]string, len(creator.Fields()))
	for _, field := range creator.Fields() {
		col, ok := headerMap[NormalizeHeader(field.Label)]
		if !ok || col.Index >= len(cells) {
			continue
		}
		if v := cells[col.Index]; v != "" {
			row[field.Name] = v
		}
	}

	if field, err := validateRow(creator.Schema(), row); err != nil {
		if field != "" {
			return models.RowResult{
				RowNum:           rowNum,
				Column:           w.columnFor(creator, headerMap, field),
				RowStatus:        models.RowStatusError,
				RowStatusMessage: fmt.Sprintf("validation_error: %s", field),
			}
		}
		w.log.WithError(err).WithField("rowNum", rowNum).Warn("row validation failed")
		return models.RowResult{RowNum: rowNum, RowStatus: models.RowStatusError, RowStatusMessage: "unexpected_error"}
	}

	id, err := creator.Create(ctx, account, row)
	if err == nil {
		return models.RowResult{RowNum: rowNum, RowStatus: models.RowStatusDone, RowStatusMessage: id}
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindConflict:
		field := apperrors.FieldOf(err)
		return models.RowResult{
			RowNum:           rowNum,
			Column:           w.columnFor(creator, headerMap, field),
			RowStatus:        models.RowStatusError,
			RowStatusMessage: fmt.Sprintf("duplicated_%s", field),
		}
	case apperrors.KindBadRequest, apperrors.KindUnprocessable:
		field := apperrors.FieldOf(err)
		return models.RowResult{
			RowNum:           rowNum,
			Column:           w.columnFor(creator, headerMap, field),
			RowStatus:        models.RowStatusError,
			RowStatusMessage: fmt.Sprintf("validation_error: %s", field),
		}
	default:
		w.log.WithError(err).WithField("rowNum", rowNum).Warn("row creation failed")
		return models.RowResult{RowNum: rowNum, RowStatus: models.RowStatusError, RowStatusMessage: "unexpected_error"}
	}
}

// columnFor resolves a domain field back to the original sheet column letter
// through the field's display label and the header reverse map.
func (w *ImportWorker) columnFor(creator EntityCreator, headerMap map[string]HeaderColumn, field string) string {
	for _, f := range creator.Fields() {
		if f.Name != field {
			continue
		}
		if col, ok := headerMap[NormalizeHeader(f.Label)]; ok {
			return col.Letter
		}
	}
	return ""
}

// validateRow checks a row against the creator's JSON schema. It returns the
// offending field name when the schema rejects the row.
func validateRow(schema string, row map[string]string) (string, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewGoLoader(row))
	if err != nil {
		return "", fmt.Errorf("failed to validate row: %w", err)
	}
	if result.Valid() {
		return "", nil
	}

	desc := result.Errors()[0]
	field := desc.Field()
	if field == "(root)" {
		if p, ok := desc.Details()["property"].(string); ok {
			field = p
		}
	}
	return field, fmt.Errorf("schema violation on %s: %s", field, desc.Description())
}

// fail marks the task failed and passes the cause through for the wrapper to
// classify.
func (w *ImportWorker) fail(ctx context.Context, task *models.Task, ref models.JobReference, cause error) error {
	if task.Status.CanTransition(models.TaskStatusError) {
		if _, err := w.tasks.Transition(ctx, task, models.TaskStatusError, ref.User.ID); err != nil {
			w.log.WithError(err).Error("failed to mark task as error")
		}
	}
	return cause
}
