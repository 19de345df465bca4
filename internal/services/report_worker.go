package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

// GeneratorFunc produces the rows of one report type. Each report type is
// owned by its domain module; the worker only needs this call contract.
type GeneratorFunc func(ctx context.Context, query map[string]any, account *models.Account) ([]models.ReportRow, error)

// GeneratorRegistry maps report types to their generators. Resolved once at
// startup.
type GeneratorRegistry map[models.ReportType]GeneratorFunc

// ReportWorker consumes "generate report" references: it re-reads the task,
// dispatches to the registered generator, renders the rows to a spreadsheet,
// uploads it and marks the task done with the file pointer.
type ReportWorker struct {
	tasks      TaskRepository
	accounts   AccountDirectory
	objects    storage.ObjectStore
	bucket     string
	generators GeneratorRegistry
	log        *logrus.Entry
}

// NewReportWorker creates a report worker.
func NewReportWorker(tasks TaskRepository, accounts AccountDirectory, objects storage.ObjectStore, bucket string, generators GeneratorRegistry) *ReportWorker {
	return &ReportWorker{
		tasks:      tasks,
		accounts:   accounts,
		objects:    objects,
		bucket:     bucket,
		generators: generators,
		log:        logrus.WithField("worker", "report"),
	}
}

// Handle processes one job reference. Recognized domain errors mark the task
// failed and are swallowed by the invocation wrapper; anything else also
// marks the task failed but propagates for redelivery and alerting.
func (w *ReportWorker) Handle(ctx context.Context, body []byte) error {
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
		// Redelivered reference for a finished task; nothing to do.
		return apperrors.NewUnprocessable(fmt.Sprintf("task %s already %s", task.ID, task.Status))
	}

	account, err := w.accounts.Retrieve(ctx, ref.Account)
	if err != nil {
		return w.fail(ctx, task, ref, err)
	}

	if task, err = w.tasks.Transition(ctx, task, models.TaskStatusProgress, ref.User.ID); err != nil {
		return err
	}

	var req models.ReportRequest
	if err := json.Unmarshal([]byte(task.Data), &req); err != nil {
		return w.fail(ctx, task, ref, apperrors.Wrap(apperrors.KindUnprocessable, "malformed report request", err))
	}

	generator, ok := w.generators[req.Type]
	if !ok {
		return w.fail(ctx, task, ref, apperrors.NewUnprocessable(fmt.Sprintf("no generator for report type %q", req.Type)))
	}

	rows, err := generator(ctx, req.Query, account)
	if err != nil {
		return w.fail(ctx, task, ref, err)
	}
	log.WithField("rows", len(rows)).Info("report rows generated")

	sheet, err := RenderSheet(string(req.Type), rows)
	if err != nil {
		return w.fail(ctx, task, ref, err)
	}

	key := fmt.Sprintf("reports/%s/%s/report_%s_%s.xlsx", task.Account, ref.User.ID, req.Type, task.ID)
	if err := w.objects.Put(ctx, w.bucket, key, sheet, XLSXContentType); err != nil {
		return w.fail(ctx, task, ref, err)
	}

	task.FileURL = key
	if _, err := w.tasks.Transition(ctx, task, models.TaskStatusDone, ref.User.ID); err != nil {
		return err
	}
	log.WithField("fileUrl", key).Info("report done")
	return nil
}

// fail marks the task failed and passes the cause through for the wrapper to
// classify.
func (w *ReportWorker) fail(ctx context.Context, task *models.Task, ref models.JobReference, cause error) error {
	if task.Status.CanTransition(models.TaskStatusError) {
		if _, err := w.tasks.Transition(ctx, task, models.TaskStatusError, ref.User.ID); err != nil {
			w.log.WithError(err).Error("failed to mark task as error")
		}
	}
	return cause
}
