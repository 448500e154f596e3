// Package metrics provides the Prometheus and OpenTelemetry backends of the batch
// MetricRecorder and Tracer.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// NewMetricRecorder selects the recorder backend from the metrics configuration.
// A configured Pushgateway receives the Prometheus registry when the application stops.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) (metrics.MetricRecorder, error) {
	mc := cfg.Surfin.Metrics
	if !mc.Enabled {
		logger.Debugf("Metrics disabled. Using NoOpMetricRecorder.")
		return metrics.NewNoOpMetricRecorder(), nil
	}
	jobName := cfg.Surfin.Batch.JobName

	switch mc.Backend {
	case "", "prometheus":
		rec := NewPrometheusRecorder(jobName)
		if mc.PushgatewayURL != "" {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					if err := rec.Push(ctx, mc.PushgatewayURL); err != nil {
						logger.Warnf("Metrics: failed to push to Pushgateway %s: %v", mc.PushgatewayURL, err)
						return nil
					}
					logger.Infof("Metrics: pushed to Pushgateway %s.", mc.PushgatewayURL)
					return nil
				},
			})
		}
		logger.Infof("Metrics: Prometheus recorder initialized.")
		return rec, nil
	case "otel":
		mp, err := NewMeterProvider(context.Background(), mc, cfg.Surfin.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: mp.Shutdown})
		rec, err := NewOTelRecorder(mp.Meter(instrumentationName), jobName)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTel instruments: %w", err)
		}
		logger.Infof("Metrics: OpenTelemetry recorder initialized.")
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported metrics backend: %s", mc.Backend)
	}
}

// NewTracer builds the OpenTelemetry tracer when tracing is enabled.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Tracing
	if !tc.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tp, err := NewTracerProvider(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	logger.Infof("Tracing: OpenTelemetry tracer initialized (exporter: %s).", tc.Exporter)
	return NewOpenTelemetryTracer(tp), nil
}

// Module provides the MetricRecorder and the Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
