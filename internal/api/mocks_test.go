package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/service"
	"github.com/phrazzld/docqueue/internal/task"
)

// mockDocumentService is a Fn-field fake; unset functions panic so tests
// notice unexpected calls.
type mockDocumentService struct {
	SubmitFn     func(ctx context.Context, filename string, content []byte) (*service.Submission, error)
	GetTaskFn    func(ctx context.Context, id uuid.UUID) (*task.Task, error)
	GetResultFn  func(ctx context.Context, id uuid.UUID) (*task.Task, error)
	DeleteTaskFn func(ctx context.Context, id uuid.UUID) error
	ListTasksFn  func(ctx context.Context) ([]*task.Task, error)
	QueueInfoFn  func(ctx context.Context) (task.QueueInfo, error)
	ClearQueueFn func(ctx context.Context) (int64, error)
}

func (m *mockDocumentService) Submit(ctx context.Context, filename string, content []byte) (*service.Submission, error) {
	return m.SubmitFn(ctx, filename, content)
}

func (m *mockDocumentService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return m.GetTaskFn(ctx, id)
}

func (m *mockDocumentService) GetResult(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return m.GetResultFn(ctx, id)
}

func (m *mockDocumentService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return m.DeleteTaskFn(ctx, id)
}

func (m *mockDocumentService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	return m.ListTasksFn(ctx)
}

func (m *mockDocumentService) QueueInfo(ctx context.Context) (task.QueueInfo, error) {
	return m.QueueInfoFn(ctx)
}

func (m *mockDocumentService) ClearQueue(ctx context.Context) (int64, error) {
	return m.ClearQueueFn(ctx)
}

type mockWorkers struct {
	enabled bool
	stats   task.PoolStats
	err     error
}

func (m *mockWorkers) Enabled() bool { return m.enabled }

func (m *mockWorkers) Stats(ctx context.Context) (task.PoolStats, error) {
	return m.stats, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// routeTo mounts a single handler on a chi router so URL params resolve.
func routeTo(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	return r
}
