package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/docqueue/internal/api/shared"
	"github.com/phrazzld/docqueue/internal/redact"
	"github.com/phrazzld/docqueue/internal/service"
	"github.com/phrazzld/docqueue/internal/task"
)

// WorkerStatsProvider reports on the worker pool.
type WorkerStatsProvider interface {
	Enabled() bool
	Stats(ctx context.Context) (task.PoolStats, error)
}

// Pinger checks backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceInfo describes the running service on the root endpoint.
type ServiceInfo struct {
	Name           string
	Version        string
	StoreDriver    string
	WorkersEnabled bool
	WorkerCount    int
	PollInterval   time.Duration
}

// HealthResponse reports store, worker and queue health.
type HealthResponse struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	StoreStatus   string `json:"store_status"`
	WorkerStatus  string `json:"worker_status"`
	ActiveWorkers int    `json:"active_workers"`
	QueueSize     int64  `json:"queue_size"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WorkersResponse wraps pool statistics.
type WorkersResponse struct {
	Success        bool            `json:"success"`
	WorkersEnabled bool            `json:"workers_enabled"`
	Message        string          `json:"message,omitempty"`
	Stats          *task.PoolStats `json:"stats,omitempty"`
}

// QueueResponse wraps queue information.
type QueueResponse struct {
	Success   bool           `json:"success"`
	QueueInfo task.QueueInfo `json:"queue_info"`
}

// ClearQueueResponse reports how many pending jobs were dropped.
type ClearQueueResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ClearedCount int64  `json:"cleared_count"`
}

// SystemHandler serves service information, health and queue maintenance
// endpoints.
type SystemHandler struct {
	documents service.DocumentService
	workers   WorkerStatsProvider
	store     Pinger
	info      ServiceInfo
	logger    *slog.Logger
}

// NewSystemHandler creates a SystemHandler. workers may be nil when the
// worker system is not part of this process.
func NewSystemHandler(
	documents service.DocumentService,
	workers WorkerStatsProvider,
	store Pinger,
	info ServiceInfo,
	logger *slog.Logger,
) *SystemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemHandler{
		documents: documents,
		workers:   workers,
		store:     store,
		info:      info,
		logger:    logger.With("component", "system_handler"),
	}
}

// Root handles GET / requests
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	workerCount := 0
	if h.workersEnabled() {
		workerCount = h.info.WorkerCount
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"message": h.info.Name,
		"version": h.info.Version,
		"store":   h.info.StoreDriver,
		"worker_system": map[string]interface{}{
			"enabled":       h.workersEnabled(),
			"worker_count":  workerCount,
			"poll_interval": h.info.PollInterval.Seconds(),
		},
		"endpoints": map[string]string{
			"upload":      "POST /upload - Upload PDF file for extraction",
			"status":      "GET /status/{task_id} - Check extraction progress",
			"result":      "GET /result/{task_id} - Get extraction result",
			"tasks":       "GET /tasks - List all tasks",
			"delete":      "DELETE /task/{task_id} - Delete a task",
			"health":      "GET /health - Health check",
			"workers":     "GET /workers - Get worker statistics",
			"queue":       "GET /queue - Get queue information",
			"clear_queue": "POST /queue/clear - Clear processing queue",
		},
	})
}

// Health handles GET /health requests. It always answers 200; an
// unreachable store or queue shows up in the body.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeStatus := "connected"
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", "error", err)
		storeStatus = "disconnected"
	}

	workerStatus := "disabled"
	activeWorkers := 0
	if h.workersEnabled() {
		// Worker counters are filled in even when the queue read inside
		// Stats fails; that failure is reported through QueueInfo below.
		stats, err := h.workers.Stats(ctx)
		if err != nil {
			h.logger.DebugContext(ctx, "worker stats incomplete", "error", redact.Error(err))
		}
		activeWorkers = stats.WorkerManager.ActiveWorkers
		workerStatus = "stopped"
		if activeWorkers > 0 {
			workerStatus = "running"
		}
	}

	info, err := h.documents.QueueInfo(ctx)
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
			Success:       false,
			Status:        "unhealthy",
			StoreStatus:   storeStatus,
			WorkerStatus:  workerStatus,
			ActiveWorkers: activeWorkers,
			Error:         GetSafeErrorMessage(err),
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Success:       true,
		Status:        "healthy",
		StoreStatus:   storeStatus,
		WorkerStatus:  workerStatus,
		ActiveWorkers: activeWorkers,
		QueueSize:     info.QueueSize,
		Message:       "Document extraction service is running properly",
	})
}

// Workers handles GET /workers requests
func (h *SystemHandler) Workers(w http.ResponseWriter, r *http.Request) {
	if !h.workersEnabled() {
		shared.RespondWithJSON(w, r, http.StatusOK, WorkersResponse{
			Success:        false,
			WorkersEnabled: false,
			Message:        "Worker system is disabled",
		})
		return
	}

	stats, err := h.workers.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get worker stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, WorkersResponse{
		Success:        true,
		WorkersEnabled: true,
		Stats:          &stats,
	})
}

// Queue handles GET /queue requests
func (h *SystemHandler) Queue(w http.ResponseWriter, r *http.Request) {
	info, err := h.documents.QueueInfo(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get queue info")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, QueueResponse{Success: true, QueueInfo: info})
}

// ClearQueue handles POST /queue/clear requests
func (h *SystemHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	n, err := h.documents.ClearQueue(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clear queue")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ClearQueueResponse{
		Success:      true,
		Message:      fmt.Sprintf("Queue cleared successfully. %d jobs removed.", n),
		ClearedCount: n,
	})
}

func (h *SystemHandler) workersEnabled() bool {
	return h.workers != nil && h.workers.Enabled()
}
