package metrics

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer(tp trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tp.Tracer(instrumentationName)}
}

// StartJobSpan starts a span for one run. The returned function records the final counters
// and the status before ending the span.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, result *model.JobResult) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+result.JobName, trace.WithAttributes(
		attribute.String("batch.job.name", result.JobName),
		attribute.String("batch.job.id", result.ID),
		attribute.String("batch.step.name", result.StepName),
	))
	logger.Debugf("Tracer: OTel job span started for Job '%s'", result.JobName)
	return ctx, func() {
		span.SetAttributes(
			attribute.String("batch.status", result.Status.String()),
			attribute.Int("batch.read_count", result.ReadCount),
			attribute.Int("batch.write_count", result.WriteCount),
			attribute.Int("batch.skip_count", result.SkipCount),
			attribute.Int("batch.flush_count", result.FlushCount),
		)
		if result.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, result.FailureMessage())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(attribute.String("batch.module", module)))
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(m))
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

// NewTracerProvider builds a TracerProvider for the configured exporter. "none" records spans
// without exporting them.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(serviceResource(cfg.ServiceName))}

	switch cfg.Exporter {
	case "", "none":
	case "otlp-grpc":
		exOpts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			exOpts = append(exOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			exOpts = append(exOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "otlp-http":
		exOpts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			exOpts = append(exOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			exOpts = append(exOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}
