package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordJobStart(ctx context.Context, result *model.JobResult) {}
func (r *NoOpMetricRecorder) RecordJobEnd(ctx context.Context, result *model.JobResult)   {}
func (r *NoOpMetricRecorder) RecordItemRead(ctx context.Context, stepName string)        {}
func (r *NoOpMetricRecorder) RecordItemProcess(ctx context.Context, stepName string)     {}
func (r *NoOpMetricRecorder) RecordItemFilter(ctx context.Context, stepName string)      {}
func (r *NoOpMetricRecorder) RecordItemSkip(ctx context.Context, stepName string, reason string) {
}
func (r *NoOpMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int)   {}
func (r *NoOpMetricRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartJobSpan returns ctx unchanged.
func (t *NoOpTracer) StartJobSpan(ctx context.Context, result *model.JobResult) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
