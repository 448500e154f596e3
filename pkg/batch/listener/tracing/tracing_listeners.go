package tracing

import (
	"context"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/core/metrics"
)

// TracingJobListener adds start and finish events to the run span.
type TracingJobListener struct {
	tracer metrics.Tracer
}

func NewTracingJobListener(tracer metrics.Tracer) *TracingJobListener {
	return &TracingJobListener{tracer: tracer}
}

func (l *TracingJobListener) BeforeJob(ctx context.Context, result *model.JobResult) {
	l.tracer.RecordEvent(ctx, "job_started", map[string]interface{}{
		"job.id":     result.ID,
		"job.params": result.Parameters.String(),
	})
}

func (l *TracingJobListener) AfterJob(ctx context.Context, result *model.JobResult) {
	l.tracer.RecordEvent(ctx, "job_finished", map[string]interface{}{
		"status":  result.Status.String(),
		"read":    result.ReadCount,
		"written": result.WriteCount,
		"skipped": result.SkipCount,
	})
}

var _ port.JobExecutionListener = (*TracingJobListener)(nil)

// TracingSkipListener records every skipped read as a span event.
type TracingSkipListener struct {
	tracer metrics.Tracer
}

func NewTracingSkipListener(tracer metrics.Tracer) *TracingSkipListener {
	return &TracingSkipListener{tracer: tracer}
}

func (l *TracingSkipListener) OnSkipRead(ctx context.Context, err error) {
	l.tracer.RecordEvent(ctx, "item_skipped", map[string]interface{}{"error": err.Error()})
}

var _ port.SkipListener = (*TracingSkipListener)(nil)
