package metrics

import (
	"context"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
type Tracer interface {
	// StartJobSpan starts a span covering one run.
	// The returned function ends the span; call it in a defer statement.
	StartJobSpan(ctx context.Context, result *model.JobResult) (context.Context, func())

	// RecordError records an error in the current span.
	//
	// module: the component where the error occurred (e.g. "reader", "writer").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
