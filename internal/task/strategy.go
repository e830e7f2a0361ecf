package task

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Strategy turns a dequeued job into a terminal task outcome.
//
// Implementations report progress through the tracker and record the
// outcome with tracker.Complete. A returned error is treated as unhandled:
// if the strategy did not complete the task, the worker marks it failed
// with that error.
type Strategy interface {
	Process(ctx context.Context, job *Job, tracker Tracker) error
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, job *Job, tracker Tracker) error

// Process calls f(ctx, job, tracker).
func (f StrategyFunc) Process(ctx context.Context, job *Job, tracker Tracker) error {
	return f(ctx, job, tracker)
}

// Tracker records progress and the outcome of a single job.
type Tracker interface {
	// UpdateProgress overwrites the task's progress and message and marks
	// it processing.
	UpdateProgress(ctx context.Context, progress int, message string) error

	// Complete records the terminal outcome. Only the first call takes
	// effect; later calls return ErrAlreadyCompleted.
	Complete(ctx context.Context, c Completion) error
}

// jobTracker guards a task so exactly one terminal write happens per job.
type jobTracker struct {
	tasks  *Store
	taskID uuid.UUID

	mu         sync.Mutex
	completion *Completion
	sealed     bool
}

func newJobTracker(tasks *Store, taskID uuid.UUID) *jobTracker {
	return &jobTracker{tasks: tasks, taskID: taskID}
}

func (t *jobTracker) UpdateProgress(ctx context.Context, progress int, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completion != nil || t.sealed {
		return ErrAlreadyCompleted
	}
	return t.tasks.UpdateProgress(ctx, t.taskID, progress, message, StatusProcessing)
}

func (t *jobTracker) Complete(ctx context.Context, c Completion) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completion != nil || t.sealed {
		return ErrAlreadyCompleted
	}

	err := t.tasks.Complete(ctx, t.taskID, c)
	if err == nil || errors.Is(err, ErrTaskNotFound) {
		t.completion = &c
	}
	return err
}

// seal stops accepting writes and returns the recorded outcome, if any.
func (t *jobTracker) seal() *Completion {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	return t.completion
}
