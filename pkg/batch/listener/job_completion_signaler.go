package listener

import (
	"context"
	"sync"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// JobCompletionSignaler is a JobExecutionListener that publishes the terminal result of a run
// and closes Done, so the caller can wait for a run started elsewhere.
type JobCompletionSignaler struct {
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	result *model.JobResult
}

// NewJobCompletionSignaler creates a new instance of JobCompletionSignaler.
func NewJobCompletionSignaler() *JobCompletionSignaler {
	return &JobCompletionSignaler{done: make(chan struct{})}
}

// Done is closed after the first run finishes.
func (l *JobCompletionSignaler) Done() <-chan struct{} {
	return l.done
}

// Result returns the terminal result, or nil before the run finished.
func (l *JobCompletionSignaler) Result() *model.JobResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// BeforeJob does nothing in this implementation.
func (l *JobCompletionSignaler) BeforeJob(ctx context.Context, result *model.JobResult) {}

// AfterJob stores the result and closes Done once.
func (l *JobCompletionSignaler) AfterJob(ctx context.Context, result *model.JobResult) {
	l.mu.Lock()
	l.result = result
	l.mu.Unlock()
	l.once.Do(func() {
		logger.Infof("JobCompletionSignaler: Job '%s' (ID: %s) finished with status %s.", result.JobName, result.ID, result.Status)
		close(l.done)
	})
}

var _ port.JobExecutionListener = (*JobCompletionSignaler)(nil)
