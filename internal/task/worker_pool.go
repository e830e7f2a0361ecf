package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/docqueue/internal/events"
)

// PoolConfig holds configuration for the worker pool
type PoolConfig struct {
	// Enabled turns Start into a no-op when false
	Enabled bool

	// WorkerCount determines how many concurrent workers to start.
	// If zero or negative, defaults to 1
	WorkerCount int

	// MonitorInterval is how often aggregate stats are logged
	MonitorInterval time.Duration

	// ShutdownTimeout bounds how long Stop waits for workers to exit
	ShutdownTimeout time.Duration

	// Worker is applied to every worker
	Worker WorkerConfig
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Enabled:         true,
		WorkerCount:     3,
		MonitorInterval: 10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Worker:          DefaultWorkerConfig(),
	}
}

// ManagerStats aggregates counters across the pool.
type ManagerStats struct {
	IsRunning          bool    `json:"is_running"`
	TotalWorkers       int     `json:"total_workers"`
	ActiveWorkers      int     `json:"active_workers"`
	TotalProcessed     int64   `json:"total_processed"`
	TotalFailed        int64   `json:"total_failed"`
	OverallSuccessRate float64 `json:"overall_success_rate"`
}

// PoolStats is the on-demand view of the pool and its queue.
type PoolStats struct {
	WorkerManager ManagerStats  `json:"worker_manager"`
	QueueInfo     QueueInfo     `json:"queue_info"`
	Workers       []WorkerStats `json:"workers"`
}

// Pool owns a fixed set of workers, each on its own goroutine, and a
// monitor goroutine that periodically logs aggregate stats. Workers share
// nothing in memory; they coordinate only through the queue.
type Pool struct {
	queue    *Queue
	tasks    *Store
	strategy Strategy
	emitter  events.EventEmitter
	config   PoolConfig
	logger   *slog.Logger

	// ctx is cancelled by Stop to unblock pops and sleeps
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	workers []*Worker
	done    []chan struct{}
	running bool
	started bool
	stopped bool

	monitorDone chan struct{}
	stopOnce    sync.Once
}

// NewPool creates a worker pool with the specified configuration
func NewPool(queue *Queue, tasks *Store, strategy Strategy, config PoolConfig, logger *slog.Logger) *Pool {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.MonitorInterval <= 0 {
		config.MonitorInterval = DefaultPoolConfig().MonitorInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultPoolConfig().ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		queue:    queue,
		tasks:    tasks,
		strategy: strategy,
		config:   config,
		logger:   logger.With("component", "worker_pool"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetEmitter sets the lifecycle event emitter handed to every worker.
// It must be called before Start.
func (p *Pool) SetEmitter(emitter events.EventEmitter) {
	p.emitter = emitter
}

// Enabled reports whether the pool is configured to run workers.
func (p *Pool) Enabled() bool {
	return p.config.Enabled
}

// IsRunning reports whether Start has run and Stop has not.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Start spawns the workers and the monitor. It is a no-op when the pool is
// disabled, already started or already stopped.
func (p *Pool) Start() error {
	if !p.config.Enabled {
		p.logger.Warn("workers disabled in configuration")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return nil
	}
	p.started = true
	p.running = true

	p.logger.Info("starting workers", "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		w := NewWorker(i, p.queue, p.tasks, p.strategy, p.config.Worker, p.logger)
		w.SetEmitter(p.emitter)
		done := make(chan struct{})

		p.workers = append(p.workers, w)
		p.done = append(p.done, done)

		go func() {
			defer close(done)
			w.Run(p.ctx)
		}()
	}

	p.monitorDone = make(chan struct{})
	go p.monitor()

	p.logger.Info("all workers started", "worker_count", p.config.WorkerCount)
	return nil
}

// Stop signals every worker, cancels the pool context and waits for the
// workers to exit, up to ShutdownTimeout. It is idempotent and safe to call
// from any goroutine, including before Start.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.running = false
		workers := append([]*Worker(nil), p.workers...)
		done := append([]chan struct{}(nil), p.done...)
		monitorDone := p.monitorDone
		p.mu.Unlock()

		p.logger.Info("stopping all workers", "worker_count", len(workers))

		for _, w := range workers {
			w.Stop()
		}
		p.cancel()

		deadline := time.NewTimer(p.config.ShutdownTimeout)
		defer deadline.Stop()

		for i, ch := range done {
			select {
			case <-ch:
			case <-deadline.C:
				p.logger.Warn("timed out waiting for workers to stop",
					"remaining", len(done)-i)
				return
			}
		}

		if monitorDone != nil {
			<-monitorDone
		}

		p.logger.Info("all workers stopped")
	})
}

// Stats computes pool and queue statistics on demand.
func (p *Pool) Stats(ctx context.Context) (PoolStats, error) {
	p.mu.RLock()
	workers := append([]*Worker(nil), p.workers...)
	running := p.running
	p.mu.RUnlock()

	stats := PoolStats{
		WorkerManager: ManagerStats{
			IsRunning:    running,
			TotalWorkers: len(workers),
		},
		Workers: make([]WorkerStats, 0, len(workers)),
	}

	for _, w := range workers {
		ws := w.Stats()
		stats.Workers = append(stats.Workers, ws)
		if ws.IsRunning {
			stats.WorkerManager.ActiveWorkers++
		}
		stats.WorkerManager.TotalProcessed += ws.ProcessedCount
		stats.WorkerManager.TotalFailed += ws.FailedCount
	}
	stats.WorkerManager.OverallSuccessRate = successRate(
		stats.WorkerManager.TotalProcessed,
		stats.WorkerManager.TotalFailed,
	)

	info, err := p.queue.Info(ctx)
	if err != nil {
		return stats, err
	}
	stats.QueueInfo = info
	return stats, nil
}

// monitor logs aggregate stats until the pool context is cancelled. It
// only reads worker counters.
func (p *Pool) monitor() {
	defer close(p.monitorDone)

	ticker := time.NewTicker(p.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			stats, err := p.Stats(p.ctx)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				p.logger.Error("monitor failed to read queue info", "error", err)
				continue
			}
			m := stats.WorkerManager
			p.logger.Info("worker pool status",
				"queue_size", stats.QueueInfo.QueueSize,
				"active_workers", m.ActiveWorkers,
				"total_workers", m.TotalWorkers,
				"total_processed", m.TotalProcessed,
				"total_failed", m.TotalFailed)
		}
	}
}
