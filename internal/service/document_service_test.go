package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/events"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tasks   *MockTaskRepository
	queue   *MockJobQueue
	emitter *MockEventEmitter
	svc     DocumentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:   &MockTaskRepository{},
		queue:   &MockJobQueue{},
		emitter: &MockEventEmitter{},
	}
	svc, err := NewDocumentService(f.tasks, f.queue, f.emitter, logger.Discard())
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(func() {
		f.tasks.AssertExpectations(t)
		f.queue.AssertExpectations(t)
		f.emitter.AssertExpectations(t)
	})
	return f
}

func TestNewDocumentService_RequiresDependencies(t *testing.T) {
	_, err := NewDocumentService(nil, &MockJobQueue{}, nil, nil)
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)

	_, err = NewDocumentService(&MockTaskRepository{}, nil, nil, nil)
	assert.ErrorAs(t, err, &svcErr)

	svc, err := NewDocumentService(&MockTaskRepository{}, &MockJobQueue{}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	content := []byte("%PDF-1.4")

	f.queue.On("Info", ctx).Return(task.QueueInfo{QueueSize: 2, MaxQueueSize: 10}, nil)
	f.tasks.On("CreateTask", ctx, "a.pdf").Return(id, nil)
	f.queue.On("Enqueue", ctx, id, content, "a.pdf").Return(nil)
	f.emitter.On("EmitEvent", ctx, mock.MatchedBy(func(e *events.TaskEvent) bool {
		return e.Type == events.TaskSubmitted && e.TaskID == id
	})).Return(nil)

	sub, err := f.svc.Submit(ctx, "a.pdf", content)
	require.NoError(t, err)
	assert.Equal(t, &Submission{
		TaskID:        id,
		Filename:      "a.pdf",
		FileSize:      len(content),
		Status:        task.StatusQueued,
		QueuePosition: 3,
	}, sub)
}

func TestSubmit_QueueFullPrecheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.queue.On("Info", ctx).Return(task.QueueInfo{QueueSize: 10, MaxQueueSize: 10, IsFull: true}, nil)

	_, err := f.svc.Submit(ctx, "a.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrQueueFull)
	f.tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestSubmit_EnqueueFailureDeletesTask(t *testing.T) {
	tests := []struct {
		name       string
		enqueueErr error
		check      func(t *testing.T, err error)
	}{
		{
			name:       "lost admission race",
			enqueueErr: task.ErrQueueFull,
			check: func(t *testing.T, err error) {
				assert.Same(t, ErrQueueFull, err)
			},
		},
		{
			name:       "store failure",
			enqueueErr: errors.Join(task.ErrStoreUnavailable, errors.New("broken pipe")),
			check: func(t *testing.T, err error) {
				var svcErr *ServiceError
				require.ErrorAs(t, err, &svcErr)
				assert.Equal(t, "submit", svcErr.Operation)
				assert.ErrorIs(t, err, task.ErrStoreUnavailable)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := uuid.New()

			f.queue.On("Info", ctx).Return(task.QueueInfo{QueueSize: 9, MaxQueueSize: 10}, nil)
			f.tasks.On("CreateTask", ctx, "a.pdf").Return(id, nil)
			f.queue.On("Enqueue", ctx, id, mock.Anything, "a.pdf").Return(tc.enqueueErr)
			f.tasks.On("Delete", ctx, id).Return(nil)

			_, err := f.svc.Submit(ctx, "a.pdf", []byte("%PDF"))
			tc.check(t, err)
		})
	}
}

func TestSubmit_CreateTaskFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.queue.On("Info", ctx).Return(task.QueueInfo{MaxQueueSize: 10}, nil)
	f.tasks.On("CreateTask", ctx, "a.pdf").Return(uuid.Nil, task.ErrStoreUnavailable)

	_, err := f.svc.Submit(ctx, "a.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, task.ErrStoreUnavailable)
}

func TestGetResult(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name    string
		stored  *task.Task
		getErr  error
		wantErr error
	}{
		{
			name:   "completed",
			stored: &task.Task{ID: id, Status: task.StatusCompleted, Result: json.RawMessage(`{"ok":true}`)},
		},
		{
			name:    "still processing",
			stored:  &task.Task{ID: id, Status: task.StatusProcessing, Progress: 40},
			wantErr: ErrResultNotReady,
		},
		{
			name:    "failed",
			stored:  &task.Task{ID: id, Status: task.StatusFailed, Error: "boom"},
			wantErr: ErrResultNotReady,
		},
		{
			name:    "completed without result",
			stored:  &task.Task{ID: id, Status: task.StatusCompleted},
			wantErr: ErrResultMissing,
		},
		{
			name:    "missing",
			getErr:  task.ErrTaskNotFound,
			wantErr: ErrTaskNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.tasks.On("Get", ctx, id).Return(tc.stored, tc.getErr)

			got, err := f.svc.GetResult(ctx, id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tc.stored != nil {
				assert.Equal(t, tc.stored, got)
			}
		})
	}
}

func TestDeleteTask(t *testing.T) {
	t.Run("existing task", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := uuid.New()
		f.tasks.On("Get", ctx, id).Return(&task.Task{ID: id}, nil)
		f.tasks.On("Delete", ctx, id).Return(nil)

		assert.NoError(t, f.svc.DeleteTask(ctx, id))
	})

	t.Run("missing task", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := uuid.New()
		f.tasks.On("Get", ctx, id).Return(nil, task.ErrTaskNotFound)

		assert.ErrorIs(t, f.svc.DeleteTask(ctx, id), ErrTaskNotFound)
		f.tasks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestListTasksAndQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := []*task.Task{{ID: uuid.New()}, {ID: uuid.New()}}

	f.tasks.On("ListAll", ctx).Return(stored, nil)
	f.queue.On("Info", ctx).Return(task.QueueInfo{QueueName: "q", QueueSize: 4, MaxQueueSize: 10}, nil)
	f.queue.On("Clear", ctx).Return(int64(4), nil)

	tasks, err := f.svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, tasks)

	info, err := f.svc.QueueInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.QueueSize)

	removed, err := f.svc.ClearQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
}

func TestListTasks_StoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tasks.On("ListAll", ctx).Return(nil, task.ErrStoreUnavailable)

	_, err := f.svc.ListTasks(ctx)
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}
