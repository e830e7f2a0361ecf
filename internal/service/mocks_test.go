package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/events"
	"github.com/phrazzld/docqueue/internal/task"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository mocks the TaskRepository interface
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, filename string) (uuid.UUID, error) {
	args := m.Called(ctx, filename)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) ListAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

// MockJobQueue mocks the JobQueue interface
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, taskID uuid.UUID, payload []byte, filename string) error {
	args := m.Called(ctx, taskID, payload, filename)
	return args.Error(0)
}

func (m *MockJobQueue) Info(ctx context.Context) (task.QueueInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(task.QueueInfo), args.Error(1)
}

func (m *MockJobQueue) Clear(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventEmitter mocks the events.EventEmitter interface
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
