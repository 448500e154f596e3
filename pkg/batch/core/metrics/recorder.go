// Package metrics defines the observability contracts of the chunk engine.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics of a job run.
// Implementations must be safe to call from the job goroutine without blocking it for long.
type MetricRecorder interface {
	// RecordJobStart records the start of a run.
	RecordJobStart(ctx context.Context, result *model.JobResult)
	// RecordJobEnd records the terminal result of a run.
	RecordJobEnd(ctx context.Context, result *model.JobResult)

	// RecordItemRead records one successfully read item.
	RecordItemRead(ctx context.Context, stepName string)
	// RecordItemProcess records one successfully transformed item.
	RecordItemProcess(ctx context.Context, stepName string)
	// RecordItemFilter records one item dropped by the processor.
	RecordItemFilter(ctx context.Context, stepName string)
	// RecordItemSkip records one skipped read failure.
	//
	// reason: the error kind (e.g. "ParseError").
	RecordItemSkip(ctx context.Context, stepName string, reason string)
	// RecordItemWrite records count items persisted.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordChunkCommit records one committed chunk of count items.
	RecordChunkCommit(ctx context.Context, stepName string, count int)

	// RecordDuration records the execution time of a named operation.
	//
	// tags: additional attributes, e.g. {"table": "people", "status": "success"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
