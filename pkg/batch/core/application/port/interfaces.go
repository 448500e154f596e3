// Package port defines the contracts between the chunk engine and its components.
package port

import (
	"context"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
)

// ItemReader is a pull-based source of items.
// Read returns io.EOF when the input is exhausted. Any other error describes a
// single failed item; the reader has advanced past it and Read may be called again.
// Calling Open after Close restarts from the beginning.
type ItemReader[O any] interface {
	// Open acquires the underlying resource.
	Open(ctx context.Context) error
	// Read returns the next item.
	Read(ctx context.Context) (O, error)
	// Close releases the underlying resource. It is safe to call more than once.
	Close(ctx context.Context) error
}

// ItemProcessor transforms one item. A nil result with a nil error filters the item.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (*O, error)
}

// ItemProcessorFunc adapts a plain function to ItemProcessor.
type ItemProcessorFunc[I, O any] func(ctx context.Context, item I) (*O, error)

// Process implements ItemProcessor.
func (f ItemProcessorFunc[I, O]) Process(ctx context.Context, item I) (*O, error) {
	return f(ctx, item)
}

// ItemWriter persists a chunk of items atomically.
type ItemWriter[I any] interface {
	Write(ctx context.Context, items []I) error
}

// ItemStream is implemented by writers that hold resources across chunks.
type ItemStream interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// JobExecutionListener observes the start and the terminal result of every run.
type JobExecutionListener interface {
	// BeforeJob is called once the run is RUNNING, before the first read.
	BeforeJob(ctx context.Context, result *model.JobResult)
	// AfterJob is called once the run is COMPLETED or FAILED.
	AfterJob(ctx context.Context, result *model.JobResult)
}

// SkipListener is notified of every skipped read failure.
type SkipListener interface {
	OnSkipRead(ctx context.Context, err error)
}

// ItemWriteListener observes chunk flushes.
type ItemWriteListener interface {
	// BeforeWrite is called before a chunk of n items is flushed.
	BeforeWrite(ctx context.Context, n int)
	// AfterWrite is called after a chunk of n items was persisted.
	AfterWrite(ctx context.Context, n int)
	// OnWriteError is called when flushing a chunk of n items failed.
	OnWriteError(ctx context.Context, n int, err error)
}

// JobParametersIncrementer derives the parameters of the next launch.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

// Tasklet is a single unit of work run by a TaskletStep, such as a schema migration.
type Tasklet interface {
	// Execute performs the work. A returned error fails the run.
	Execute(ctx context.Context) error
	// Close releases the tasklet's resources. It is called after Execute in every case.
	Close(ctx context.Context) error
}

// Step is one runnable unit of a job. Execute returns a COMPLETED or FAILED result.
type Step interface {
	Name() string
	Execute(ctx context.Context, params model.JobParameters) *model.JobResult
}
