package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue_Defaults(t *testing.T) {
	env := newTestEnv(t, QueueConfig{})
	q := NewQueue(env.kv, env.tasks, QueueConfig{}, logger.Discard())

	assert.Equal(t, "pdf_extraction_queue", q.Name())
	assert.Equal(t, int64(100), q.MaxSize())
}

func TestQueue_Enqueue(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	id := env.submit(t, "a.pdf")

	depth, err := env.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	got := env.getTask(t, id)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Equal(t, 5, got.Progress)
	assert.Equal(t, "Queued for processing", got.Message)

	payload, err := env.mr.Get(PayloadKey(id))
	require.NoError(t, err)
	assert.Equal(t, string(testPDF), payload)
	assert.Equal(t, testTTL, env.mr.TTL(PayloadKey(id)))

	entries, err := env.mr.List("test_queue")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &job))
	assert.Equal(t, id, job.TaskID)
	assert.Equal(t, "a.pdf", job.Filename)
	assert.Equal(t, PayloadKey(id), job.PayloadKey)
	assert.WithinDuration(t, time.Now(), job.EnqueuedAt, 5*time.Second)
}

func TestQueue_AdmissionBound(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		name := "check then push"
		if atomic {
			name = "atomic admission"
		}
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, QueueConfig{MaxSize: 2, AtomicAdmission: atomic})
			ctx := context.Background()

			env.submit(t, "1.pdf")
			env.submit(t, "2.pdf")

			id, err := env.tasks.CreateTask(ctx, "3.pdf")
			require.NoError(t, err)
			err = env.queue.Enqueue(ctx, id, testPDF, "3.pdf")
			assert.ErrorIs(t, err, ErrQueueFull)

			depth, err := env.queue.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), depth)

			full, err := env.queue.IsFull(ctx)
			require.NoError(t, err)
			assert.True(t, full)

			// A rejected job leaves no trace.
			assert.False(t, env.mr.Exists(PayloadKey(id)))
			assert.Equal(t, StatusCreated, env.getTask(t, id).Status)
		})
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})

	var ids []uuid.UUID
	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf"} {
		ids = append(ids, env.submit(t, name))
	}

	for _, want := range ids {
		job := env.dequeue(t)
		assert.Equal(t, want, job.TaskID)
	}
}

func TestQueue_Dequeue(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	id := env.submit(t, "a.pdf")

	job := env.dequeue(t)
	assert.Equal(t, id, job.TaskID)
	assert.Equal(t, "a.pdf", job.Filename)
	assert.Equal(t, testPDF, job.Content)

	got := env.getTask(t, id)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 10, got.Progress)
	assert.Equal(t, "Picked up by worker", got.Message)
}

func TestQueue_DequeueTimeout(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})

	start := time.Now()
	job, err := env.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestQueue_AtMostOnceDelivery(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	id := env.submit(t, "a.pdf")

	first := env.dequeue(t)
	assert.Equal(t, id, first.TaskID)

	second, err := env.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestQueue_DequeueMissingPayload(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	id := env.submit(t, "a.pdf")
	env.mr.Del(PayloadKey(id))

	job := env.dequeue(t)
	assert.Equal(t, id, job.TaskID)
	assert.Nil(t, job.Content)
}

func TestQueue_DequeueDropsJobOfDeletedTask(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()
	id := env.submit(t, "a.pdf")
	require.NoError(t, env.tasks.Delete(ctx, id))

	job, err := env.queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)

	assert.False(t, env.mr.Exists(PayloadKey(id)))
	assert.False(t, env.mr.Exists(TaskKey(id)))
	depth, err := env.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestQueue_DequeueSkipsMalformedJob(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	_, err := env.mr.Push("test_queue", "{broken")
	require.NoError(t, err)

	job, err := env.queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_InfoAndClear(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 3})
	ctx := context.Background()
	ids := []uuid.UUID{env.submit(t, "1.pdf"), env.submit(t, "2.pdf")}

	info, err := env.queue.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueInfo{
		QueueName:    "test_queue",
		QueueSize:    2,
		MaxQueueSize: 3,
		IsFull:       false,
	}, info)

	removed, err := env.queue.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	depth, err := env.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	// Payloads are left to expire on their own.
	for _, id := range ids {
		assert.True(t, env.mr.Exists(PayloadKey(id)))
	}
}

func TestQueue_CleanupPayload(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 3})
	ctx := context.Background()
	id := env.submit(t, "a.pdf")

	require.NoError(t, env.queue.CleanupPayload(ctx, id))
	assert.False(t, env.mr.Exists(PayloadKey(id)))

	// Removing an absent payload is fine.
	require.NoError(t, env.queue.CleanupPayload(ctx, id))
}

func TestQueue_Unavailable(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 3})
	ctx := context.Background()
	env.mr.Close()

	err := env.queue.Enqueue(ctx, uuid.New(), testPDF, "a.pdf")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = env.queue.Dequeue(ctx, time.Second)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = env.queue.Info(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestScenario_ProgressWhileProcessing(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	id := env.submit(t, "a.pdf")
	job := env.dequeue(t)
	require.Equal(t, id, job.TaskID)

	require.NoError(t, env.tasks.UpdateProgress(ctx, id, 50, "half done", ""))

	got := env.getTask(t, id)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 50, got.Progress)
	assert.Equal(t, "half done", got.Message)
}

// A job popped by a worker that then dies is never redelivered; its task
// stays in processing until the TTL removes it.
func TestScenario_AbandonedJobIsNotRedelivered(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	id := env.submit(t, "a.pdf")
	_ = env.dequeue(t)

	next, err := env.queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, StatusProcessing, env.getTask(t, id).Status)

	env.mr.FastForward(testTTL + time.Second)

	_, err = env.tasks.Get(ctx, id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// hookedStore runs afterPush once a job lands on the list, before the
// pushing call returns.
type hookedStore struct {
	store.KeyValueStore
	afterPush func()
	pushErr   error
}

func (s *hookedStore) RPush(ctx context.Context, list, value string) (int64, error) {
	if s.pushErr != nil {
		return 0, s.pushErr
	}
	n, err := s.KeyValueStore.RPush(ctx, list, value)
	if err == nil && s.afterPush != nil {
		s.afterPush()
	}
	return n, err
}

func TestQueue_EnqueueDoesNotOverwriteWorkerProgress(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	hooked := &hookedStore{KeyValueStore: env.kv}
	queue := NewQueue(hooked, env.tasks, env.queue.config, logger.Discard())

	id, err := env.tasks.CreateTask(ctx, "a.pdf")
	require.NoError(t, err)

	hooked.afterPush = func() {
		job, err := queue.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		require.NoError(t, newJobTracker(env.tasks, job.TaskID).UpdateProgress(ctx, 40, "Converting document"))
	}
	require.NoError(t, queue.Enqueue(ctx, id, testPDF, "a.pdf"))

	got := env.getTask(t, id)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "Converting document", got.Message)
}

func TestQueue_EnqueuePushFailureRevertsTask(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	hooked := &hookedStore{KeyValueStore: env.kv, pushErr: store.ErrUnavailable}
	queue := NewQueue(hooked, env.tasks, env.queue.config, logger.Discard())

	id, err := env.tasks.CreateTask(ctx, "a.pdf")
	require.NoError(t, err)

	err = queue.Enqueue(ctx, id, testPDF, "a.pdf")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.False(t, env.mr.Exists(PayloadKey(id)))
	got := env.getTask(t, id)
	assert.Equal(t, StatusCreated, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestJobTracker_ProgressMarksProcessing(t *testing.T) {
	env := newTestEnv(t, QueueConfig{MaxSize: 10})
	ctx := context.Background()

	id := env.submit(t, "a.pdf")
	require.Equal(t, StatusQueued, env.getTask(t, id).Status)

	require.NoError(t, newJobTracker(env.tasks, id).UpdateProgress(ctx, 25, "Preparing document"))

	got := env.getTask(t, id)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 25, got.Progress)
}
