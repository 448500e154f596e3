package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
)

const instrumentationName = "github.com/tigerroll/importuser/pkg/batch"

// OTelRecorder is an OpenTelemetry implementation of metrics.MetricRecorder.
type OTelRecorder struct {
	jobName string

	jobRuns     metric.Int64Counter
	jobDuration metric.Float64Histogram
	itemsRead   metric.Int64Counter
	itemsProc   metric.Int64Counter
	itemsFilter metric.Int64Counter
	itemsSkip   metric.Int64Counter
	itemsWrite  metric.Int64Counter
	commits     metric.Int64Counter
	opDuration  metric.Float64Histogram
}

// NewOTelRecorder creates the instruments on meter.
func NewOTelRecorder(meter metric.Meter, jobName string) (*OTelRecorder, error) {
	r := &OTelRecorder{jobName: jobName}
	var err error
	if r.jobRuns, err = meter.Int64Counter("batch.job.runs", metric.WithDescription("Finished job runs by status.")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.itemsRead, err = meter.Int64Counter("batch.items.read"); err != nil {
		return nil, err
	}
	if r.itemsProc, err = meter.Int64Counter("batch.items.processed"); err != nil {
		return nil, err
	}
	if r.itemsFilter, err = meter.Int64Counter("batch.items.filtered"); err != nil {
		return nil, err
	}
	if r.itemsSkip, err = meter.Int64Counter("batch.items.skipped"); err != nil {
		return nil, err
	}
	if r.itemsWrite, err = meter.Int64Counter("batch.items.written"); err != nil {
		return nil, err
	}
	if r.commits, err = meter.Int64Counter("batch.chunks.committed"); err != nil {
		return nil, err
	}
	if r.opDuration, err = meter.Float64Histogram("batch.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) stepAttrs(stepName string, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("job_name", r.jobName),
		attribute.String("step_name", stepName),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

// RecordJobStart is a no-op; runs are counted once they finish.
func (r *OTelRecorder) RecordJobStart(ctx context.Context, result *model.JobResult) {}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, result *model.JobResult) {
	if result.EndTime == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("job_name", result.JobName),
		attribute.String("status", result.Status.String()),
	)
	r.jobRuns.Add(ctx, 1, attrs)
	r.jobDuration.Record(ctx, result.Duration().Seconds(), attrs)
}

func (r *OTelRecorder) RecordItemRead(ctx context.Context, stepName string) {
	r.itemsRead.Add(ctx, 1, r.stepAttrs(stepName))
}

func (r *OTelRecorder) RecordItemProcess(ctx context.Context, stepName string) {
	r.itemsProc.Add(ctx, 1, r.stepAttrs(stepName))
}

func (r *OTelRecorder) RecordItemFilter(ctx context.Context, stepName string) {
	r.itemsFilter.Add(ctx, 1, r.stepAttrs(stepName))
}

func (r *OTelRecorder) RecordItemSkip(ctx context.Context, stepName string, reason string) {
	r.itemsSkip.Add(ctx, 1, r.stepAttrs(stepName, attribute.String("reason", reason)))
}

func (r *OTelRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemsWrite.Add(ctx, int64(count), r.stepAttrs(stepName))
}

func (r *OTelRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.commits.Add(ctx, 1, r.stepAttrs(stepName))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("job_name", r.jobName), attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)

// NewMeterProvider builds a MeterProvider exporting over OTLP with a periodic reader.
func NewMeterProvider(ctx context.Context, cfg config.MetricsConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter
	var err error
	switch cfg.OTLPProtocol {
	case "", "grpc":
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case "http":
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP metrics protocol: %s", cfg.OTLPProtocol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(serviceResource(serviceName)),
	), nil
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}
