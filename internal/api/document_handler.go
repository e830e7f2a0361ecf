package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/api/shared"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/service"
	"github.com/phrazzld/docqueue/internal/task"
)

// UploadResponse is returned for an accepted document.
type UploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TaskID        string `json:"task_id"`
	Filename      string `json:"filename"`
	FileSize      int    `json:"file_size"`
	Status        string `json:"status"`
	QueuePosition int64  `json:"queue_position"`
}

// TaskStatusResponse is the full client view of one task.
type TaskStatusResponse struct {
	Success     bool            `json:"success"`
	TaskID      string          `json:"task_id"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message"`
	Filename    string          `json:"filename"`
	Result      json.RawMessage `json:"result"`
	Error       *string         `json:"error"`
	Warning     string          `json:"warning,omitempty"`
	CreatedAt   *time.Time      `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at"`
}

// ResultResponse carries the extraction result of a completed task.
type ResultResponse struct {
	Success          bool            `json:"success"`
	TaskID           string          `json:"task_id"`
	ExtractionResult json.RawMessage `json:"extraction_result"`
	CompletedAt      *time.Time      `json:"completed_at"`
}

// PendingResultResponse is returned by the result endpoint while a task is
// still in flight or has failed.
type PendingResultResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// TaskListResponse lists every stored task.
type TaskListResponse struct {
	Success    bool         `json:"success"`
	TotalTasks int          `json:"total_tasks"`
	Tasks      []*task.Task `json:"tasks"`
}

// DeleteTaskResponse confirms a deletion.
type DeleteTaskResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

// DocumentHandler serves upload and task inspection endpoints.
type DocumentHandler struct {
	documents      service.DocumentService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentHandler creates a DocumentHandler. maxUploadBytes bounds a
// single uploaded document.
func NewDocumentHandler(documents service.DocumentService, maxUploadBytes int64, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "document_handler"),
	}
}

// Upload handles POST /upload requests
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	doc, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			HandleAPIError(w, r, err, fmt.Sprintf("File size too large. Maximum size is %.1fMB",
				float64(h.maxUploadBytes)/1024/1024))
		case errors.Is(err, ErrValidation):
			HandleAPIError(w, r, err, SanitizeValidationError(err))
		default:
			HandleAPIError(w, r, err, "")
		}
		return
	}

	submission, err := h.documents.Submit(r.Context(), doc.Filename, doc.Content)
	if err != nil {
		log.Warn("document submission rejected", "error", err, "filename", doc.Filename)
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("document accepted",
		"task_id", submission.TaskID,
		"filename", submission.Filename,
		"file_size", submission.FileSize)

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		Success:       true,
		Message:       "PDF upload successful. Added to processing queue.",
		TaskID:        submission.TaskID.String(),
		Filename:      submission.Filename,
		FileSize:      submission.FileSize,
		Status:        string(submission.Status),
		QueuePosition: submission.QueuePosition,
	})
}

// GetStatus handles GET /status/{task_id} requests
func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	t, err := h.documents.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToStatusResponse(t))
}

// GetResult handles GET /result/{task_id} requests. A task that has not
// completed yields 200 with success=false and its current progress.
func (h *DocumentHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	t, err := h.documents.GetResult(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrResultNotReady):
		shared.RespondWithJSON(w, r, http.StatusOK, PendingResultResponse{
			Success: false,
			Message: fmt.Sprintf("Task is not completed yet. Current status: %s (%d%%)",
				t.Status, t.Progress),
			TaskID:   t.ID.String(),
			Status:   string(t.Status),
			Progress: t.Progress,
		})
		return
	case err != nil:
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ResultResponse{
		Success:          true,
		TaskID:           t.ID.String(),
		ExtractionResult: t.Result,
		CompletedAt:      t.CompletedAt,
	})
}

// ListTasks handles GET /tasks requests
func (h *DocumentHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.documents.ListTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task list")
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Success:    true,
		TotalTasks: len(tasks),
		Tasks:      tasks,
	})
}

// DeleteTask handles DELETE /task/{task_id} requests
func (h *DocumentHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	if err := h.documents.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DeleteTaskResponse{
		Success: true,
		Message: fmt.Sprintf("Task %s deleted successfully", id),
		TaskID:  id.String(),
	})
}

func (h *DocumentHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := getPathTaskID(r, "task_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DocumentHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

func taskToStatusResponse(t *task.Task) TaskStatusResponse {
	resp := TaskStatusResponse{
		Success:     true,
		TaskID:      t.ID.String(),
		Status:      string(t.Status),
		Progress:    t.Progress,
		Message:     t.Message,
		Filename:    t.Filename,
		Result:      t.Result,
		Warning:     t.Warning,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Error != "" {
		errMsg := t.Error
		resp.Error = &errMsg
	}
	return resp
}
