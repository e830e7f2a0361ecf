package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/store"
	"github.com/phrazzld/docqueue/internal/task"
	"github.com/phrazzld/docqueue/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInfo = ServiceInfo{
	Name:         "Document Extraction API",
	Version:      "test",
	StoreDriver:  "redis",
	WorkerCount:  2,
	PollInterval: time.Second,
}

func queueInfo(size int64) func(context.Context) (task.QueueInfo, error) {
	return func(context.Context) (task.QueueInfo, error) {
		return task.QueueInfo{QueueName: "q", QueueSize: size, MaxQueueSize: 100}, nil
	}
}

func runningPool(active int) *mockWorkers {
	return &mockWorkers{
		enabled: true,
		stats: task.PoolStats{
			WorkerManager: task.ManagerStats{IsRunning: active > 0, TotalWorkers: 2, ActiveWorkers: active},
		},
	}
}

func TestRoot(t *testing.T) {
	t.Run("workers enabled", func(t *testing.T) {
		h := NewSystemHandler(&mockDocumentService{}, runningPool(2), &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Root), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := testutils.DecodeBody(t, w)
		assert.Equal(t, "test", body["version"])
		ws := body["worker_system"].(map[string]interface{})
		assert.Equal(t, true, ws["enabled"])
		assert.Equal(t, float64(2), ws["worker_count"])
		assert.Equal(t, float64(1), ws["poll_interval"])
	})

	t.Run("workers disabled", func(t *testing.T) {
		h := NewSystemHandler(&mockDocumentService{}, nil, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Root), httptest.NewRequest(http.MethodGet, "/", nil))

		ws := testutils.DecodeBody(t, w)["worker_system"].(map[string]interface{})
		assert.Equal(t, false, ws["enabled"])
		assert.Equal(t, float64(0), ws["worker_count"])
	})
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name          string
		workers       WorkerStatsProvider
		pingErr       error
		queueErr      error
		wantSuccess   bool
		wantStore     string
		wantWorker    string
		wantQueueSize int64
	}{
		{
			name:          "healthy",
			workers:       runningPool(2),
			wantSuccess:   true,
			wantStore:     "connected",
			wantWorker:    "running",
			wantQueueSize: 4,
		},
		{
			name:          "workers stopped",
			workers:       runningPool(0),
			wantSuccess:   true,
			wantStore:     "connected",
			wantWorker:    "stopped",
			wantQueueSize: 4,
		},
		{
			name:          "workers disabled",
			workers:       &mockWorkers{enabled: false},
			wantSuccess:   true,
			wantStore:     "connected",
			wantWorker:    "disabled",
			wantQueueSize: 4,
		},
		{
			name:        "store down",
			workers:     runningPool(2),
			pingErr:     store.ErrUnavailable,
			queueErr:    store.ErrUnavailable,
			wantSuccess: false,
			wantStore:   "disconnected",
			wantWorker:  "running",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDocumentService{QueueInfoFn: queueInfo(4)}
			if tc.queueErr != nil {
				svc.QueueInfoFn = func(context.Context) (task.QueueInfo, error) { return task.QueueInfo{}, tc.queueErr }
			}
			h := NewSystemHandler(svc, tc.workers, &mockPinger{err: tc.pingErr}, testInfo, logger.Discard())
			w := testutils.Serve(http.HandlerFunc(h.Health), httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantSuccess, resp.Success)
			assert.Equal(t, tc.wantStore, resp.StoreStatus)
			assert.Equal(t, tc.wantWorker, resp.WorkerStatus)
			assert.Equal(t, tc.wantQueueSize, resp.QueueSize)
			if tc.wantSuccess {
				assert.Equal(t, "healthy", resp.Status)
			} else {
				assert.Equal(t, "unhealthy", resp.Status)
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestHealth_LogsPartialWorkerStats(t *testing.T) {
	capture := testutils.NewTestSlogHandler()
	workers := runningPool(2)
	workers.err = errors.New("read queue length: dial tcp 10.0.0.5:6379: connection refused")
	svc := &mockDocumentService{QueueInfoFn: queueInfo(3)}

	h := NewSystemHandler(svc, workers, &mockPinger{}, testInfo, slog.New(capture))
	w := testutils.Serve(http.HandlerFunc(h.Health), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := testutils.DecodeBody(t, w)
	assert.Equal(t, "running", body["worker_status"])
	assert.Equal(t, float64(2), body["active_workers"])

	entries := capture.Find("worker stats incomplete")
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "system_handler", entries[0]["component"])
	assert.NotContains(t, entries[0]["error"], "10.0.0.5")
}

func TestWorkers(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := NewSystemHandler(&mockDocumentService{}, &mockWorkers{enabled: false}, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Workers), httptest.NewRequest(http.MethodGet, "/workers", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp WorkersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.False(t, resp.WorkersEnabled)
		assert.Nil(t, resp.Stats)
	})

	t.Run("enabled", func(t *testing.T) {
		h := NewSystemHandler(&mockDocumentService{}, runningPool(2), &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Workers), httptest.NewRequest(http.MethodGet, "/workers", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp WorkersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.WorkersEnabled)
		require.NotNil(t, resp.Stats)
		assert.Equal(t, 2, resp.Stats.WorkerManager.ActiveWorkers)
	})

	t.Run("stats failure", func(t *testing.T) {
		workers := runningPool(2)
		workers.err = errors.New("queue unavailable")
		h := NewSystemHandler(&mockDocumentService{}, workers, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Workers), httptest.NewRequest(http.MethodGet, "/workers", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to get worker stats", testutils.DecodeBody(t, w)["error"])
	})
}

func TestQueueEndpoints(t *testing.T) {
	t.Run("info", func(t *testing.T) {
		h := NewSystemHandler(&mockDocumentService{QueueInfoFn: queueInfo(7)}, nil, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.Queue), httptest.NewRequest(http.MethodGet, "/queue", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp QueueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.QueueInfo.QueueSize)
		assert.Equal(t, int64(100), resp.QueueInfo.MaxQueueSize)
	})

	t.Run("clear", func(t *testing.T) {
		svc := &mockDocumentService{
			ClearQueueFn: func(context.Context) (int64, error) { return 3, nil },
		}
		h := NewSystemHandler(svc, nil, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.ClearQueue), httptest.NewRequest(http.MethodPost, "/queue/clear", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp ClearQueueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.ClearedCount)
		assert.Equal(t, "Queue cleared successfully. 3 jobs removed.", resp.Message)
	})

	t.Run("clear failure", func(t *testing.T) {
		svc := &mockDocumentService{
			ClearQueueFn: func(context.Context) (int64, error) { return 0, store.ErrUnavailable },
		}
		h := NewSystemHandler(svc, nil, &mockPinger{}, testInfo, logger.Discard())
		w := testutils.Serve(http.HandlerFunc(h.ClearQueue), httptest.NewRequest(http.MethodPost, "/queue/clear", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
