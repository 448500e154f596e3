// Package tracing contributes span-event listeners. The Tracer itself is provided by
// infrastructure/metrics.
package tracing

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/core/metrics"
)

func newJobListener(tracer metrics.Tracer) port.JobExecutionListener {
	return NewTracingJobListener(tracer)
}

func newSkipListener(tracer metrics.Tracer) port.SkipListener {
	return NewTracingSkipListener(tracer)
}

// Module provides tracing-related listeners.
var Module = fx.Options(
	fx.Provide(fx.Annotate(newJobListener, fx.ResultTags(`group:"job_listeners"`))),
	fx.Provide(fx.Annotate(newSkipListener, fx.ResultTags(`group:"skip_listeners"`))),
)
