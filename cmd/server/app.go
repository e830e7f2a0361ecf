package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docqueue/internal/api"
	"github.com/phrazzld/docqueue/internal/config"
	"github.com/phrazzld/docqueue/internal/events"
	"github.com/phrazzld/docqueue/internal/extraction"
	"github.com/phrazzld/docqueue/internal/service"
	"github.com/phrazzld/docqueue/internal/store"
	"github.com/phrazzld/docqueue/internal/task"
)

// serviceName is reported on the root endpoint.
const serviceName = "PDF Extraction API with Worker System"

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	kv    store.KeyValueStore
	tasks *task.Store
	queue *task.Queue
	pool  *task.Pool

	emitter   *events.InMemoryEventEmitter
	documents service.DocumentService
}

// newApplication wires the task store, queue, worker pool and document
// service on top of an already opened store.
func newApplication(cfg *config.Config, logger *slog.Logger, kv store.KeyValueStore) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		kv:     kv,
	}

	app.tasks = task.NewStore(kv, cfg.Task.TTL, logger)
	app.queue = task.NewQueue(kv, app.tasks, task.QueueConfig{
		Name:            cfg.Queue.Name,
		MaxSize:         cfg.Queue.MaxSize,
		PayloadTTL:      cfg.Task.TTL,
		AtomicAdmission: cfg.Queue.AtomicAdmission,
	}, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLogHandler(logger))

	strategy := extraction.NewChain(extraction.PDFTextBackend{}, extraction.RawScanBackend{}, logger)
	app.pool = task.NewPool(app.queue, app.tasks, strategy, task.PoolConfig{
		Enabled:         cfg.Worker.Enabled,
		WorkerCount:     cfg.Worker.Count,
		MonitorInterval: cfg.Worker.MonitorInterval,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
		Worker: task.WorkerConfig{
			PollInterval: cfg.Worker.PollInterval,
			JobTimeout:   cfg.Worker.JobTimeout,
		},
	}, logger)
	app.pool.SetEmitter(app.emitter)

	var err error
	app.documents, err = service.NewDocumentService(app.tasks, app.queue, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create document service: %w", err)
	}

	logger.Info("application initialized",
		"queue", cfg.Queue.Name,
		"max_queue_size", cfg.Queue.MaxSize,
		"atomic_admission", cfg.Queue.AtomicAdmission)
	return app, nil
}

// Run starts the worker pool and serves HTTP until ctx is cancelled or the
// server fails, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.pool.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) serviceInfo() api.ServiceInfo {
	return api.ServiceInfo{
		Name:           serviceName,
		Version:        app.config.Server.Version,
		StoreDriver:    app.config.Store.Driver,
		WorkersEnabled: app.config.Worker.Enabled,
		WorkerCount:    app.config.Worker.Count,
		PollInterval:   app.config.Worker.PollInterval,
	}
}

// cleanup stops the workers and closes the store. In-flight jobs get up to
// the configured shutdown timeout to finish.
func (app *application) cleanup() {
	app.pool.Stop()

	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
	}

	app.logger.Info("application shutdown completed")
}
