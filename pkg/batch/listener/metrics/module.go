// Package metrics holds the asynchronous MetricRecorder decorator.
package metrics

import (
	"go.uber.org/fx"
)

// Module decorates the MetricRecorder provided by infrastructure/metrics.
var Module = fx.Options(
	fx.Decorate(NewAsyncMetricRecorderWrapper),
)
