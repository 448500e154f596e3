// Package item provides generic item components: a pass-through processor and
// no-op readers and writers.
package item

import (
	"context"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// PassThroughItemProcessor returns every item unchanged.
type PassThroughItemProcessor[T any] struct{}

// NewPassThroughItemProcessor creates a new instance of [PassThroughItemProcessor].
func NewPassThroughItemProcessor[T any]() port.ItemProcessor[T, T] {
	return &PassThroughItemProcessor[T]{}
}

// Process returns the input item as is.
func (p *PassThroughItemProcessor[T]) Process(ctx context.Context, item T) (*T, error) {
	logger.Debugf("PassThroughItemProcessor: Processing item: %+v", item)
	return &item, nil
}
