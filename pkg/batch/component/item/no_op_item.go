package item

import (
	"context"
	"io"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// NoOpItemReader is an implementation of [port.ItemReader] that always returns [io.EOF].
type NoOpItemReader[O any] struct{}

// NewNoOpItemReader creates a new instance of [NoOpItemReader].
func NewNoOpItemReader[O any]() port.ItemReader[O] {
	return &NoOpItemReader[O]{}
}

// Open does nothing.
func (r *NoOpItemReader[O]) Open(ctx context.Context) error {
	return nil
}

// Read always returns the zero value of type O and [io.EOF].
func (r *NoOpItemReader[O]) Read(ctx context.Context) (O, error) {
	var zero O
	return zero, io.EOF
}

// Close does nothing.
func (r *NoOpItemReader[O]) Close(ctx context.Context) error {
	return nil
}

// NoOpItemWriter discards every chunk, keeping only a count of the items it was given.
// It backs dry runs.
type NoOpItemWriter[I any] struct {
	written int
}

// NewNoOpItemWriter creates a new instance of [NoOpItemWriter].
func NewNoOpItemWriter[I any]() *NoOpItemWriter[I] {
	return &NoOpItemWriter[I]{}
}

// Write discards items.
func (w *NoOpItemWriter[I]) Write(ctx context.Context, items []I) error {
	w.written += len(items)
	logger.Debugf("NoOpItemWriter: discarded %d items (%d total).", len(items), w.written)
	return nil
}

// Written returns the number of items discarded so far.
func (w *NoOpItemWriter[I]) Written() int {
	return w.written
}

var _ port.ItemWriter[any] = (*NoOpItemWriter[any])(nil)
