package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/store"
)

// QueueConfig holds configuration for the job queue
type QueueConfig struct {
	// Name is the list holding pending jobs
	Name string

	// MaxSize bounds the number of pending jobs
	MaxSize int64

	// PayloadTTL is the expiry applied to stored document bytes
	PayloadTTL time.Duration

	// AtomicAdmission checks the bound and pushes in one store operation.
	// When false, admission is check-then-push and concurrent producers can
	// overshoot MaxSize.
	AtomicAdmission bool
}

// DefaultQueueConfig returns a QueueConfig with reasonable defaults
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Name:       "pdf_extraction_queue",
		MaxSize:    100,
		PayloadTTL: time.Hour,
	}
}

// QueueInfo is a point-in-time view of the queue.
type QueueInfo struct {
	QueueName    string `json:"queue_name"`
	QueueSize    int64  `json:"queue_size"`
	MaxQueueSize int64  `json:"max_queue_size"`
	IsFull       bool   `json:"is_full"`
}

// Queue is a bounded FIFO of extraction jobs backed by a store list.
// Payload bytes live under their own expiring keys; the list only carries
// job descriptors.
type Queue struct {
	kv     store.KeyValueStore
	tasks  *Store
	config QueueConfig
	logger *slog.Logger
}

// NewQueue creates a Queue. Task status transitions on enqueue and dequeue
// are written through tasks.
func NewQueue(kv store.KeyValueStore, tasks *Store, config QueueConfig, logger *slog.Logger) *Queue {
	if config.Name == "" {
		config.Name = DefaultQueueConfig().Name
	}
	if config.MaxSize <= 0 {
		logger.Warn("invalid max queue size specified, using default",
			"specified_size", config.MaxSize,
			"default_size", DefaultQueueConfig().MaxSize)
		config.MaxSize = DefaultQueueConfig().MaxSize
	}

	return &Queue{
		kv:     kv,
		tasks:  tasks,
		config: config,
		logger: logger.With("component", "job_queue", "queue", config.Name),
	}
}

// Name returns the list name.
func (q *Queue) Name() string {
	return q.config.Name
}

// MaxSize returns the admission bound.
func (q *Queue) MaxSize() int64 {
	return q.config.MaxSize
}

// Enqueue admits a job for taskID. It returns ErrQueueFull without side
// effects when the queue is at capacity.
//
// The task is marked queued before the job is pushed. The steps are not
// transactional: a failed push removes the payload and reverts the task to
// created on a best-effort basis.
func (q *Queue) Enqueue(ctx context.Context, taskID uuid.UUID, payload []byte, filename string) error {
	log := q.logger.With("task_id", taskID)

	if !q.config.AtomicAdmission {
		full, err := q.IsFull(ctx)
		if err != nil {
			return err
		}
		if full {
			log.Warn("queue full, rejecting job", "max_queue_size", q.config.MaxSize)
			return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.config.MaxSize)
		}
	}

	payloadKey := PayloadKey(taskID)
	if err := q.kv.SetBytesEx(ctx, payloadKey, payload, q.config.PayloadTTL); err != nil {
		return fmt.Errorf("store payload: %w: %w", ErrStoreUnavailable, err)
	}

	raw, err := json.Marshal(Job{
		TaskID:     taskID,
		Filename:   filename,
		PayloadKey: payloadKey,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	// Workers may pick the job up as soon as it is pushed, so the task must
	// already read queued; a later write would clobber their processing state.
	if err := q.tasks.UpdateProgress(ctx, taskID, 5, "Queued for processing", StatusQueued); err != nil {
		q.discardPayload(ctx, payloadKey, log)
		return fmt.Errorf("mark task queued: %w", err)
	}

	if q.config.AtomicAdmission {
		pushed, err := q.kv.PushBounded(ctx, q.config.Name, string(raw), q.config.MaxSize)
		if err != nil {
			q.unqueue(ctx, taskID, payloadKey, log)
			return fmt.Errorf("push job: %w: %w", ErrStoreUnavailable, err)
		}
		if !pushed {
			q.unqueue(ctx, taskID, payloadKey, log)
			log.Warn("queue full, rejecting job", "max_queue_size", q.config.MaxSize)
			return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.config.MaxSize)
		}
	} else if _, err := q.kv.RPush(ctx, q.config.Name, string(raw)); err != nil {
		q.unqueue(ctx, taskID, payloadKey, log)
		return fmt.Errorf("push job: %w: %w", ErrStoreUnavailable, err)
	}

	log.Info("job enqueued", "filename", filename, "payload_bytes", len(payload))
	return nil
}

// unqueue reverts a task whose job never reached the queue.
func (q *Queue) unqueue(ctx context.Context, taskID uuid.UUID, payloadKey string, log *slog.Logger) {
	q.discardPayload(ctx, payloadKey, log)
	if err := q.tasks.UpdateProgress(ctx, taskID, 0, createdMessage, StatusCreated); err != nil {
		log.Warn("failed to revert task after rejected push", "error", err)
	}
}

func (q *Queue) discardPayload(ctx context.Context, payloadKey string, log *slog.Logger) {
	if _, err := q.kv.Del(ctx, payloadKey); err != nil {
		log.Warn("failed to remove payload of rejected job", "error", err)
	}
}

// Dequeue pops the head job, waiting up to timeout. It returns nil, nil
// when nothing arrived in time, so callers must loop.
//
// Popping consumes the job. On success the payload is attached and the
// task is moved to StatusProcessing. A job whose task record is gone is
// dropped with its payload and nil is returned.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	raw, err := q.kv.BLPop(ctx, q.config.Name, timeout)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop job: %w: %w", ErrStoreUnavailable, err)
	}

	// The job is ours once popped; finish the handoff even if the caller
	// is shutting down.
	ctx = context.WithoutCancel(ctx)

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Error("dropping malformed job", "error", err, "raw", raw)
		return nil, nil
	}
	log := q.logger.With("task_id", job.TaskID)

	content, err := q.kv.GetBytes(ctx, job.PayloadKey)
	switch {
	case err == nil:
		job.Content = content
	case store.IsNotFoundError(err):
		log.Warn("payload missing for dequeued job", "payload_key", job.PayloadKey)
	default:
		log.Error("failed to load payload for dequeued job", "error", err)
	}

	err = q.tasks.UpdateProgress(ctx, job.TaskID, 10, "Picked up by worker", StatusProcessing)
	if errors.Is(err, ErrTaskNotFound) {
		log.Warn("task record gone, dropping job")
		if cleanupErr := q.CleanupPayload(ctx, job.TaskID); cleanupErr != nil {
			log.Warn("failed to clean up payload of dropped job", "error", cleanupErr)
		}
		return nil, nil
	}
	if err != nil {
		log.Error("failed to mark task processing", "error", err)
	}

	return &job, nil
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.kv.LLen(ctx, q.config.Name)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// IsFull reports whether the queue has reached its bound.
func (q *Queue) IsFull(ctx context.Context) (bool, error) {
	n, err := q.Depth(ctx)
	if err != nil {
		return false, err
	}
	return n >= q.config.MaxSize, nil
}

// Info returns the queue name, depth and bound.
func (q *Queue) Info(ctx context.Context) (QueueInfo, error) {
	n, err := q.Depth(ctx)
	if err != nil {
		return QueueInfo{}, err
	}
	return QueueInfo{
		QueueName:    q.config.Name,
		QueueSize:    n,
		MaxQueueSize: q.config.MaxSize,
		IsFull:       n >= q.config.MaxSize,
	}, nil
}

// Clear drops every pending job and returns how many were removed.
// Payloads are left to expire.
func (q *Queue) Clear(ctx context.Context) (int64, error) {
	n, err := q.Depth(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := q.kv.Del(ctx, q.config.Name); err != nil {
		return 0, fmt.Errorf("clear queue: %w: %w", ErrStoreUnavailable, err)
	}
	q.logger.Info("queue cleared", "removed", n)
	return n, nil
}

// CleanupPayload removes the stored document bytes of a task.
func (q *Queue) CleanupPayload(ctx context.Context, taskID uuid.UUID) error {
	if _, err := q.kv.Del(ctx, PayloadKey(taskID)); err != nil {
		return fmt.Errorf("cleanup payload: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
