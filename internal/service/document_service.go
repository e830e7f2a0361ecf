package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/events"
	"github.com/phrazzld/docqueue/internal/task"
)

// TaskRepository is the subset of task.Store the service needs.
type TaskRepository interface {
	CreateTask(ctx context.Context, filename string) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]*task.Task, error)
}

// JobQueue is the subset of task.Queue the service needs.
type JobQueue interface {
	Enqueue(ctx context.Context, taskID uuid.UUID, payload []byte, filename string) error
	Info(ctx context.Context) (task.QueueInfo, error)
	Clear(ctx context.Context) (int64, error)
}

// Submission describes an accepted document.
type Submission struct {
	TaskID        uuid.UUID
	Filename      string
	FileSize      int
	Status        task.Status
	QueuePosition int64
}

// DocumentService provides document submission and task inspection.
type DocumentService interface {
	// Submit creates a task and enqueues the document for extraction.
	Submit(ctx context.Context, filename string, content []byte) (*Submission, error)

	// GetTask returns the current state of a task.
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)

	// GetResult returns a completed task. For a task that is not completed
	// yet it returns the task together with ErrResultNotReady.
	GetResult(ctx context.Context, id uuid.UUID) (*task.Task, error)

	// DeleteTask removes a task, failing with ErrTaskNotFound when absent.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// ListTasks returns every stored task.
	ListTasks(ctx context.Context) ([]*task.Task, error)

	// QueueInfo returns the queue depth and bound.
	QueueInfo(ctx context.Context) (task.QueueInfo, error)

	// ClearQueue drops all pending jobs and returns how many were removed.
	ClearQueue(ctx context.Context) (int64, error)
}

type documentServiceImpl struct {
	tasks   TaskRepository
	queue   JobQueue
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewDocumentService creates a DocumentService.
// It returns an error if any of the required dependencies are nil. The
// emitter is optional.
func NewDocumentService(
	tasks TaskRepository,
	queue JobQueue,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (DocumentService, error) {
	if tasks == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if queue == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "queue cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &documentServiceImpl{
		tasks:   tasks,
		queue:   queue,
		emitter: emitter,
		logger:  logger.With("component", "document_service"),
	}, nil
}

// Submit checks admission, creates the task and enqueues the document. A
// task whose enqueue fails is deleted again so clients never see it.
func (s *documentServiceImpl) Submit(ctx context.Context, filename string, content []byte) (*Submission, error) {
	info, err := s.queue.Info(ctx)
	if err != nil {
		s.logger.Error("failed to read queue info", "error", err)
		return nil, NewServiceError("submit", "failed to read queue info", err)
	}
	if info.IsFull {
		s.logger.Warn("rejecting upload, queue full",
			"filename", filename,
			"queue_size", info.QueueSize,
			"max_queue_size", info.MaxQueueSize)
		return nil, ErrQueueFull
	}

	id, err := s.tasks.CreateTask(ctx, filename)
	if err != nil {
		s.logger.Error("failed to create task", "error", err, "filename", filename)
		return nil, NewServiceError("submit", "failed to create task", err)
	}

	if err := s.queue.Enqueue(ctx, id, content, filename); err != nil {
		s.logger.Error("failed to enqueue job", "error", err, "task_id", id)
		if delErr := s.tasks.Delete(ctx, id); delErr != nil {
			s.logger.Error("failed to delete task after enqueue failure",
				"error", delErr,
				"task_id", id)
		}
		return nil, NewServiceError("submit", "failed to enqueue job", err)
	}

	s.emit(ctx, events.TaskSubmitted, id, filename)

	s.logger.Info("document submitted",
		"task_id", id,
		"filename", filename,
		"file_size", len(content))

	return &Submission{
		TaskID:        id,
		Filename:      filename,
		FileSize:      len(content),
		Status:        task.StatusQueued,
		QueuePosition: info.QueueSize + 1,
	}, nil
}

// GetTask returns the task with the given ID.
func (s *documentServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to retrieve task", err)
	}
	return t, nil
}

// GetResult returns the task only once it has completed with a result.
func (s *documentServiceImpl) GetResult(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusCompleted {
		return t, ErrResultNotReady
	}
	if len(t.Result) == 0 {
		s.logger.Error("completed task has no result", "task_id", id)
		return t, ErrResultMissing
	}
	return t, nil
}

// DeleteTask removes a task after checking that it exists.
func (s *documentServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if _, err := s.tasks.Get(ctx, id); err != nil {
		return NewServiceError("delete_task", "failed to retrieve task", err)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete task", "error", err, "task_id", id)
		return NewServiceError("delete_task", "failed to delete task", err)
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// ListTasks returns every stored task.
func (s *documentServiceImpl) ListTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// QueueInfo returns the queue depth and bound.
func (s *documentServiceImpl) QueueInfo(ctx context.Context) (task.QueueInfo, error) {
	info, err := s.queue.Info(ctx)
	if err != nil {
		return task.QueueInfo{}, NewServiceError("queue_info", "failed to read queue info", err)
	}
	return info, nil
}

// ClearQueue drops every pending job.
func (s *documentServiceImpl) ClearQueue(ctx context.Context) (int64, error) {
	n, err := s.queue.Clear(ctx)
	if err != nil {
		s.logger.Error("failed to clear queue", "error", err)
		return 0, NewServiceError("clear_queue", "failed to clear queue", err)
	}
	s.logger.Warn("queue cleared", "removed", n)
	return n, nil
}

func (s *documentServiceImpl) emit(ctx context.Context, eventType string, id uuid.UUID, filename string) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewTaskEvent(eventType, id, filename, -1, nil)
	if err != nil {
		s.logger.Error("failed to build lifecycle event", "error", err, "task_id", id)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("lifecycle event handler failed", "error", err, "task_id", id)
	}
}
