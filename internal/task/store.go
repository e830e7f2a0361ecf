package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/store"
)

// Store persists task records in a store.KeyValueStore.
//
// Every write replaces the whole record and resets its TTL, so a task that
// keeps reporting progress never expires mid-flight while an idle one
// disappears once the window lapses.
type Store struct {
	kv     store.KeyValueStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a task Store whose records expire ttl after their last write.
func NewStore(kv store.KeyValueStore, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		ttl:    ttl,
		logger: logger.With("component", "task_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the expiry window applied on every write.
const createdMessage = "Task created, waiting to start"

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// CreateTask writes a new task in StatusCreated and returns its ID.
func (s *Store) CreateTask(ctx context.Context, filename string) (uuid.UUID, error) {
	now := s.now()
	t := &Task{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    StatusCreated,
		Progress:  0,
		Message:   createdMessage,
		CreatedAt: &now,
		UpdatedAt: now,
	}

	if err := s.put(ctx, t); err != nil {
		return uuid.Nil, err
	}

	s.logger.Debug("task created", "task_id", t.ID, "filename", filename)
	return t.ID, nil
}

// Get returns the task with the given ID or ErrTaskNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	raw, err := s.kv.Get(ctx, TaskKey(id))
	if err != nil {
		return nil, s.mapErr("get task", err)
	}

	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

// UpdateProgress overwrites progress and message. An empty status keeps
// the current one. Progress is stored as given; callers keep it
// non-decreasing by convention.
func (s *Store) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, message string, status Status) error {
	return s.modify(ctx, id, func(t *Task) {
		t.Progress = progress
		t.Message = message
		if status != "" {
			t.Status = status
		}
	})
}

// Complete records the terminal outcome of a task.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, c Completion) error {
	return s.modify(ctx, id, func(t *Task) {
		now := s.now()
		t.Progress = 100
		t.CompletedAt = &now
		t.Warning = c.Warning

		if c.Success {
			t.Status = StatusCompleted
			t.Result = c.Result
			t.Error = ""
			t.Message = "Extraction completed successfully"
			return
		}

		errMsg := c.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		t.Status = StatusFailed
		t.Result = nil
		t.Error = errMsg
		t.Message = "Extraction failed: " + errMsg
	})
}

// Delete removes a task record. Deleting an absent task is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.kv.Del(ctx, TaskKey(id)); err != nil {
		return s.mapErr("delete task", err)
	}
	return nil
}

// ListAll scans every task record. Cost grows with the number of stored
// tasks. Records that expire or fail to decode mid-scan are skipped.
func (s *Store) ListAll(ctx context.Context) ([]*Task, error) {
	keys, err := s.kv.Keys(ctx, TaskKeyPrefix)
	if err != nil {
		return nil, s.mapErr("list tasks", err)
	}

	tasks := make([]*Task, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, TaskKeyPrefix))
		if err != nil {
			s.logger.Warn("skipping task key with malformed id", "key", key)
			continue
		}

		t, err := s.Get(ctx, id)
		if err != nil {
			if store.IsUnavailableError(err) {
				return nil, err
			}
			s.logger.Debug("skipping task during scan", "task_id", id, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Store) modify(ctx context.Context, id uuid.UUID, apply func(*Task)) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	apply(t)
	t.UpdatedAt = s.now()
	return s.put(ctx, t)
}

func (s *Store) put(ctx context.Context, t *Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	if err := s.kv.SetEx(ctx, TaskKey(t.ID), string(raw), s.ttl); err != nil {
		return s.mapErr("write task", err)
	}
	return nil
}

// mapErr translates store errors into task errors. Unavailability keeps
// the store error in the chain so store.IsUnavailableError still matches.
func (s *Store) mapErr(op string, err error) error {
	if store.IsNotFoundError(err) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
