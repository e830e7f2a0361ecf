package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/events"
)

// WorkerConfig holds per-worker tuning.
type WorkerConfig struct {
	// PollInterval is the pause after an empty poll. Dequeue waits
	// max(1s, PollInterval) for a job.
	PollInterval time.Duration

	// JobTimeout bounds a single job. Zero means no limit.
	JobTimeout time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
	}
}

// WorkerStats is a snapshot of a worker's counters.
type WorkerStats struct {
	WorkerID        int        `json:"worker_id"`
	IsRunning       bool       `json:"is_running"`
	CurrentTask     *uuid.UUID `json:"current_task"`
	ProcessedCount  int64      `json:"processed_count"`
	FailedCount     int64      `json:"failed_count"`
	SuccessRate     float64    `json:"success_rate"`
	UptimeSeconds   float64    `json:"uptime_seconds"`
	UptimeFormatted string     `json:"uptime_formatted"`
}

// Worker pops jobs one at a time and drives each to a terminal state.
type Worker struct {
	id       int
	queue    *Queue
	tasks    *Store
	strategy Strategy
	emitter  events.EventEmitter
	config   WorkerConfig
	logger   *slog.Logger

	running   atomic.Bool
	stopped   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
	startedAt time.Time

	mu      sync.RWMutex
	current *uuid.UUID
}

// NewWorker creates a worker. It does nothing until Run is called.
func NewWorker(id int, queue *Queue, tasks *Store, strategy Strategy, config WorkerConfig, logger *slog.Logger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWorkerConfig().PollInterval
	}
	return &Worker{
		id:        id,
		queue:     queue,
		tasks:     tasks,
		strategy:  strategy,
		config:    config,
		logger:    logger.With("component", "worker", "worker_id", id),
		startedAt: time.Now(),
	}
}

// SetEmitter sets the emitter notified when jobs finish. A nil emitter
// disables notifications.
func (w *Worker) SetEmitter(emitter events.EventEmitter) {
	w.emitter = emitter
}

// ID returns the worker's identifier.
func (w *Worker) ID() int {
	return w.id
}

// IsRunning reports whether the worker loop is active.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// Run polls the queue until Stop is called or ctx is done. A stop takes
// effect within one poll cycle; an in-flight job is finished first. Run
// returns at once on a worker that was already stopped.
func (w *Worker) Run(ctx context.Context) {
	if w.stopped.Load() {
		return
	}
	w.running.Store(true)
	defer w.running.Store(false)

	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	for !w.stopped.Load() && ctx.Err() == nil {
		w.poll(ctx)
	}
}

// Stop asks the loop to exit. It does not interrupt a job in progress. A
// stopped worker cannot be restarted.
func (w *Worker) Stop() {
	w.stopped.Store(true)
	w.running.Store(false)
}

// poll runs one iteration of the worker loop.
func (w *Worker) poll(ctx context.Context) {
	job, err := w.queue.Dequeue(ctx, w.dequeueTimeout())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("failed to dequeue job", "error", err)
		w.sleep(ctx)
		return
	}
	if job == nil {
		w.sleep(ctx)
		return
	}

	w.process(ctx, job)
}

// process runs the strategy against one job and guarantees exactly one
// terminal write for its task.
func (w *Worker) process(ctx context.Context, job *Job) {
	// Shutdown does not cancel a job that is already underway.
	ctx = context.WithoutCancel(ctx)

	log := w.logger.With("task_id", job.TaskID, "filename", job.Filename)
	w.setCurrent(&job.TaskID)
	defer w.setCurrent(nil)

	defer func() {
		if err := w.queue.CleanupPayload(ctx, job.TaskID); err != nil {
			log.Warn("failed to clean up payload", "error", err)
		}
	}()

	log.Info("processing job")
	start := time.Now()

	tracker := newJobTracker(w.tasks, job.TaskID)
	var err error
	if job.Content == nil {
		err = ErrPayloadMissing
	} else {
		err = w.runStrategy(ctx, job, tracker)
	}

	outcome := tracker.seal()
	if outcome == nil {
		if err == nil {
			err = ErrNoCompletion
		}
		failure := Failure(err)
		outcome = &failure
		if cerr := w.tasks.Complete(ctx, job.TaskID, failure); cerr != nil && !errors.Is(cerr, ErrTaskNotFound) {
			log.Error("failed to mark task failed", "error", cerr)
		}
	} else if err != nil {
		log.Warn("strategy returned an error after completing the task", "error", err)
	}

	elapsed := time.Since(start)
	if outcome.Success {
		w.processed.Add(1)
		log.Info("job completed", "duration", elapsed, "warning", outcome.Warning)
	} else {
		w.failed.Add(1)
		log.Error("job failed", "duration", elapsed, "error", outcome.Error)
	}

	w.emitFinished(ctx, job, outcome, elapsed)
}

// runStrategy invokes the strategy, turning a panic into an error. With a
// job timeout configured the worker stops waiting once it expires; the
// sealed tracker then ignores anything the abandoned call still writes.
func (w *Worker) runStrategy(ctx context.Context, job *Job, tracker *jobTracker) error {
	if w.config.JobTimeout <= 0 {
		return w.invoke(ctx, job, tracker)
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- w.invoke(ctx, job, tracker)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("extraction timed out after %s", w.config.JobTimeout)
	}
}

func (w *Worker) invoke(ctx context.Context, job *Job, tracker Tracker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()
	return w.strategy.Process(ctx, job, tracker)
}

func (w *Worker) emitFinished(ctx context.Context, job *Job, outcome *Completion, elapsed time.Duration) {
	if w.emitter == nil {
		return
	}

	eventType := events.TaskCompleted
	if !outcome.Success {
		eventType = events.TaskFailed
	}

	event, err := events.NewTaskEvent(eventType, job.TaskID, job.Filename, w.id, events.FinishedPayload{
		Warning:  outcome.Warning,
		Error:    outcome.Error,
		Duration: elapsed.Seconds(),
	})
	if err != nil {
		w.logger.Error("failed to build lifecycle event", "error", err)
		return
	}
	if err := w.emitter.EmitEvent(ctx, event); err != nil {
		w.logger.Warn("lifecycle event handler failed", "error", err, "task_id", job.TaskID)
	}
}

func (w *Worker) dequeueTimeout() time.Duration {
	if w.config.PollInterval < time.Second {
		return time.Second
	}
	return w.config.PollInterval
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.config.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) setCurrent(id *uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id == nil {
		w.current = nil
		return
	}
	cp := *id
	w.current = &cp
}

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() WorkerStats {
	w.mu.RLock()
	var current *uuid.UUID
	if w.current != nil {
		cp := *w.current
		current = &cp
	}
	w.mu.RUnlock()

	processed := w.processed.Load()
	failed := w.failed.Load()
	uptime := time.Since(w.startedAt)

	return WorkerStats{
		WorkerID:        w.id,
		IsRunning:       w.running.Load(),
		CurrentTask:     current,
		ProcessedCount:  processed,
		FailedCount:     failed,
		SuccessRate:     successRate(processed, failed),
		UptimeSeconds:   uptime.Seconds(),
		UptimeFormatted: FormatUptime(uptime),
	}
}

// FormatUptime renders d as "<h>h <m>m <s>s".
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// successRate is processed as a percentage of all finished jobs.
func successRate(processed, failed int64) float64 {
	total := processed + failed
	if total < 1 {
		total = 1
	}
	return float64(processed) / float64(total) * 100
}
