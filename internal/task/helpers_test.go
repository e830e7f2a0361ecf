package task

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/events"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/platform/redisstore"
	"github.com/phrazzld/docqueue/internal/testutils"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Hour

var testPDF = []byte("%PDF-1.4 test document")

type testEnv struct {
	mr    *miniredis.Miniredis
	kv    *redisstore.RedisStore
	tasks *Store
	queue *Queue
}

func newTestEnv(t *testing.T, cfg QueueConfig) *testEnv {
	t.Helper()

	mr, kv := testutils.NewRedisStore(t)

	if cfg.Name == "" {
		cfg.Name = "test_queue"
	}
	if cfg.PayloadTTL == 0 {
		cfg.PayloadTTL = testTTL
	}

	tasks := NewStore(kv, testTTL, logger.Discard())
	return &testEnv{
		mr:    mr,
		kv:    kv,
		tasks: tasks,
		queue: NewQueue(kv, tasks, cfg, logger.Discard()),
	}
}

// submit creates a task and enqueues it, failing the test on error.
func (e *testEnv) submit(t *testing.T, filename string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := e.tasks.CreateTask(ctx, filename)
	require.NoError(t, err)
	require.NoError(t, e.queue.Enqueue(ctx, id, testPDF, filename))
	return id
}

// dequeue pops the next job, failing the test if none is available.
func (e *testEnv) dequeue(t *testing.T) *Job {
	t.Helper()
	job, err := e.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func (e *testEnv) getTask(t *testing.T, id uuid.UUID) *Task {
	t.Helper()
	got, err := e.tasks.Get(context.Background(), id)
	require.NoError(t, err)
	return got
}

// succeedStrategy reports progress once and completes successfully.
func succeedStrategy() Strategy {
	return StrategyFunc(func(ctx context.Context, job *Job, tracker Tracker) error {
		if err := tracker.UpdateProgress(ctx, 50, "half done"); err != nil {
			return err
		}
		result, _ := json.Marshal(map[string]any{"filename": job.Filename, "extraction_successful": true})
		return tracker.Complete(ctx, Completion{Success: true, Result: result})
	})
}

// recordingHandler collects emitted lifecycle events.
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) Events() []*events.TaskEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*events.TaskEvent(nil), h.events...)
}
