package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
	"github.com/diegohenriquecode/employees-service-sub002/internal/queue"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

// signedURLTTL bounds how long a download link stays valid. Keys are stored
// raw and signed lazily on every read.
const signedURLTTL = time.Hour

// Handlers contains all HTTP handlers
type Handlers struct {
	tasks      *database.TaskStore
	dispatcher queue.Publisher
	objects    storage.ObjectStore
	bucket     string
	log        *logrus.Entry
}

// NewHandlers creates a new handlers instance
func NewHandlers(tasks *database.TaskStore, dispatcher queue.Publisher, objects storage.ObjectStore, bucket string) *Handlers {
	return &Handlers{
		tasks:      tasks,
		dispatcher: dispatcher,
		objects:    objects,
		bucket:     bucket,
		log:        logrus.WithField("component", "api"),
	}
}

// CreateReportTaskHandler handles POST /api/tasks/reports
func (h *Handlers) CreateReportTaskHandler(c *gin.Context) {
	var req models.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := CurrentUser(c)

	data, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report request"})
		return
	}

	task, err := h.createAndDispatch(c.Request.Context(), models.Task{
		Account:   user.Account,
		ID:        uuid.NewString(),
		Type:      models.TaskTypeExportReports,
		Data:      string(data),
		CreatedBy: user.ID,
	}, queue.EventReportRequested, user)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, task)
}

// CreateImportTaskHandler handles POST /api/tasks/imports
func (h *Handlers) CreateImportTaskHandler(c *gin.Context) {
	var req struct {
		ID      string          `json:"id" binding:"required"`
		Type    models.TaskType `json:"type" binding:"required"`
		FileKey string          `json:"fileKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Type.Import() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be an import type"})
		return
	}
	user := CurrentUser(c)

	task, err := h.createAndDispatch(c.Request.Context(), models.Task{
		Account:   user.Account,
		ID:        req.ID,
		Type:      req.Type,
		FileURL:   req.FileKey,
		CreatedBy: user.ID,
	}, queue.EventImportRequested, user)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, task)
}

// GetTaskHandler handles GET /api/tasks/:taskId
func (h *Handlers) GetTaskHandler(c *gin.Context) {
	taskID := c.Param("taskId")
	user := CurrentUser(c)

	task, err := h.tasks.Retrieve(c.Request.Context(), user.Account, taskID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := gin.H{
		"id":        task.ID,
		"type":      task.Type,
		"status":    task.Status,
		"data":      task.Data,
		"createdAt": task.CreatedAt,
		"updatedAt": task.UpdatedAt,
	}
	if task.FileURL != "" {
		url, err := h.objects.PresignGet(c.Request.Context(), h.bucket, task.FileURL, signedURLTTL)
		if err != nil {
			h.log.WithError(err).WithField("task", task.ID).Error("failed to presign file url")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign download url"})
			return
		}
		response["fileUrl"] = url
	}

	c.JSON(http.StatusOK, response)
}

// createAndDispatch persists the task, then publishes its job reference. The
// publish is fire-and-forget at-least-once; a redelivered creation request
// hits the Conflict guard instead of producing a second task.
func (h *Handlers) createAndDispatch(ctx context.Context, task models.Task, event string, user models.AppUser) (*models.Task, error) {
	created, err := h.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	ref := models.JobReference{User: user, Account: created.Account, ID: created.ID}
	if err := h.dispatcher.Publish(ctx, event, ref, created.Account); err != nil {
		return nil, err
	}
	return created, nil
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.KindUnprocessable:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
