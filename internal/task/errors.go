package task

import "errors"

var (
	// ErrTaskNotFound is returned when a task record is absent, either
	// deleted or expired.
	ErrTaskNotFound = errors.New("task not found")

	// ErrQueueFull is returned by Enqueue when admission is rejected.
	ErrQueueFull = errors.New("queue is full")

	// ErrStoreUnavailable wraps failures talking to the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPayloadMissing is reported for jobs whose document bytes are gone.
	ErrPayloadMissing = errors.New("document payload missing")

	// ErrNoCompletion is reported when a strategy returns without
	// recording a terminal outcome.
	ErrNoCompletion = errors.New("extraction finished without completing the task")
)

// ErrAlreadyCompleted is returned by a Tracker once the job's terminal
// outcome has been recorded.
var ErrAlreadyCompleted = errors.New("task already completed")
