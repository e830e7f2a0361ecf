package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusCreated    Status = "created"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Key prefixes for records in the backing store.
const (
	TaskKeyPrefix    = "task:"
	PayloadKeyPrefix = "pdf_content:"
)

// TaskKey returns the store key of a task record.
func TaskKey(id uuid.UUID) string {
	return TaskKeyPrefix + id.String()
}

// PayloadKey returns the store key of a task's document bytes.
func PayloadKey(id uuid.UUID) string {
	return PayloadKeyPrefix + id.String()
}

// Task is the client-visible record of one submitted document.
// It is always written whole; the store never patches individual fields.
type Task struct {
	ID          uuid.UUID       `json:"task_id"`
	Filename    string          `json:"filename"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Warning     string          `json:"warning,omitempty"`
	CreatedAt   *time.Time      `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at"`
}

// Job is a queue entry pairing a task with its stored payload.
type Job struct {
	TaskID     uuid.UUID `json:"task_id"`
	Filename   string    `json:"filename"`
	PayloadKey string    `json:"payload_key"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Content is loaded from PayloadKey at dequeue; nil when the payload
	// was missing.
	Content []byte `json:"-"`
}

// Completion is the terminal outcome of a job.
type Completion struct {
	Success bool
	// Result is stored on success.
	Result json.RawMessage
	// Warning marks a success reached through a degraded path.
	Warning string
	// Error is stored on failure.
	Error string
}

// Failure builds a failed Completion from err.
func Failure(err error) Completion {
	return Completion{Error: err.Error()}
}
