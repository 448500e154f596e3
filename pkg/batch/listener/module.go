// Package listener collects the job, skip and write listeners contributed by its subpackages.
package listener

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/listener/logging"
	"github.com/tigerroll/importuser/pkg/batch/listener/metrics"
	"github.com/tigerroll/importuser/pkg/batch/listener/notification"
	"github.com/tigerroll/importuser/pkg/batch/listener/tracing"
)

// Fx group names collecting listener implementations.
const (
	JobListenerGroup   = "job_listeners"
	SkipListenerGroup  = "skip_listeners"
	WriteListenerGroup = "write_listeners"
)

// Set holds every listener registered in the application graph.
type Set struct {
	fx.In
	Job   []port.JobExecutionListener `group:"job_listeners"`
	Skip  []port.SkipListener         `group:"skip_listeners"`
	Write []port.ItemWriteListener    `group:"write_listeners"`
}

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	notification.Module,
)
