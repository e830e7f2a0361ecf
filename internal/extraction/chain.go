package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docqueue/internal/task"
)

// Chain runs Primary and, if it fails, Fallback. A fallback success still
// completes the task, marked with a warning.
type Chain struct {
	Primary  Backend
	Fallback Backend
	logger   *slog.Logger
}

var _ task.Strategy = (*Chain)(nil)

// NewChain creates a Chain. A nil fallback disables the second attempt.
func NewChain(primary, fallback Backend, logger *slog.Logger) *Chain {
	return &Chain{
		Primary:  primary,
		Fallback: fallback,
		logger:   logger.With("component", "extraction"),
	}
}

// Process implements task.Strategy. It records the outcome through tracker
// and only returns an error when the task can no longer be updated.
func (c *Chain) Process(ctx context.Context, job *task.Job, tracker task.Tracker) error {
	log := c.logger.With("task_id", job.TaskID, "filename", job.Filename)
	p := &reporter{tracker: tracker, log: log}

	p.step(ctx, 10, "Starting PDF extraction...")
	p.step(ctx, 25, "PDF file prepared, starting extraction...")
	p.step(ctx, 40, fmt.Sprintf("Converting PDF with %s...", c.Primary.Name()))
	if p.err != nil {
		return p.err
	}

	doc, primaryErr := c.Primary.Extract(ctx, job.Content, nil)
	if primaryErr == nil {
		p.step(ctx, 70, "PDF conversion completed, extracting data...")
		p.step(ctx, 75, "Parsing extracted content...")
		result := NewResult(job.Filename, c.Primary.Name(), doc)
		p.step(ctx, 85, "Content parsed")
		p.step(ctx, 90, "Data extraction completed, finalizing...")
		if p.err != nil {
			return p.err
		}
		return c.complete(ctx, tracker, result, "")
	}

	log.Warn("primary extraction failed", "backend", c.Primary.Name(), "error", primaryErr)
	if c.Fallback == nil || errors.Is(primaryErr, context.DeadlineExceeded) || errors.Is(primaryErr, context.Canceled) {
		return tracker.Complete(ctx, task.Failure(primaryErr))
	}

	p.step(ctx, 45, fmt.Sprintf("%s failed, trying fallback extraction...", c.Primary.Name()))
	p.step(ctx, 50, "Using fallback extraction...")
	if p.err != nil {
		return p.err
	}

	doc, fallbackErr := c.Fallback.Extract(ctx, job.Content, func(done, total int) {
		p.step(ctx, 50+20*done/total, fmt.Sprintf("Processed page %d/%d (fallback)", done, total))
	})
	if fallbackErr != nil {
		log.Error("fallback extraction failed", "backend", c.Fallback.Name(), "error", fallbackErr)
		return tracker.Complete(ctx, task.Failure(fmt.Errorf(
			"both extraction methods failed: %s: %v; %s: %v",
			c.Primary.Name(), primaryErr, c.Fallback.Name(), fallbackErr)))
	}

	p.step(ctx, 75, "Fallback extraction completed...")
	if p.err != nil {
		return p.err
	}

	result := NewResult(job.Filename, "fallback", doc)
	result.Warning = fmt.Sprintf("Used fallback extraction due to: %v", primaryErr)
	return c.complete(ctx, tracker, result, result.Warning)
}

func (c *Chain) complete(ctx context.Context, tracker task.Tracker, result *Result, warning string) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return tracker.Complete(ctx, task.Failure(fmt.Errorf("encode result: %w", err)))
	}
	return tracker.Complete(ctx, task.Completion{
		Success: true,
		Result:  raw,
		Warning: warning,
	})
}

// reporter forwards progress to the tracker. Transient store errors are
// logged and skipped; once the task is gone or completed, err is set and
// later steps are dropped.
type reporter struct {
	tracker task.Tracker
	log     *slog.Logger
	err     error
}

func (r *reporter) step(ctx context.Context, progress int, message string) {
	if r.err != nil {
		return
	}
	err := r.tracker.UpdateProgress(ctx, progress, message)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrTaskNotFound), errors.Is(err, task.ErrAlreadyCompleted):
		r.err = err
	default:
		r.log.Warn("failed to report progress", "progress", progress, "error", err)
	}
}
