package extraction

import (
	"context"
	"sync"

	"github.com/phrazzld/docqueue/internal/task"
)

type progressStep struct {
	Progress int
	Message  string
}

// recordingTracker captures progress and the completion for assertions.
type recordingTracker struct {
	mu          sync.Mutex
	steps       []progressStep
	completion  *task.Completion
	progressErr error
}

func (r *recordingTracker) UpdateProgress(_ context.Context, progress int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progressErr != nil {
		return r.progressErr
	}
	r.steps = append(r.steps, progressStep{progress, message})
	return nil
}

func (r *recordingTracker) Complete(_ context.Context, c task.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completion != nil {
		return task.ErrAlreadyCompleted
	}
	r.completion = &c
	return nil
}

func (r *recordingTracker) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.Progress
	}
	return out
}

// stubBackend returns a fixed document or error.
type stubBackend struct {
	name  string
	doc   *Document
	err   error
	calls int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Extract(_ context.Context, _ []byte, progress ProgressFunc) (*Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.doc.Pages {
		if progress != nil {
			progress(i+1, len(s.doc.Pages))
		}
	}
	return s.doc, nil
}
