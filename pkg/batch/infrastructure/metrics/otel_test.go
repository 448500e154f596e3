package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	infra "github.com/tigerroll/importuser/pkg/batch/infrastructure/metrics"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestOTelRecorder_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := infra.NewOTelRecorder(mp.Meter("test"), "importUserJob")
	require.NoError(t, err)

	ctx := context.Background()
	rec.RecordItemRead(ctx, "step")
	rec.RecordItemRead(ctx, "step")
	rec.RecordItemSkip(ctx, "step", "ParseError")
	rec.RecordItemWrite(ctx, "step", 2)
	rec.RecordChunkCommit(ctx, "step", 2)
	result := model.NewJobResult("importUserJob", "step", model.NewJobParameters())
	result.MarkAsCompleted()
	rec.RecordJobEnd(ctx, result)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(t, rm, "batch.items.read"))
	assert.Equal(t, int64(1), sumOf(t, rm, "batch.items.skipped"))
	assert.Equal(t, int64(2), sumOf(t, rm, "batch.items.written"))
	assert.Equal(t, int64(1), sumOf(t, rm, "batch.chunks.committed"))
	assert.Equal(t, int64(1), sumOf(t, rm, "batch.job.runs"))
}

func TestOpenTelemetryTracer_JobSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := infra.NewOpenTelemetryTracer(tp)

	result := model.NewJobResult("importUserJob", "step", model.NewJobParameters())
	ctx, end := tracer.StartJobSpan(context.Background(), result)
	tracer.RecordEvent(ctx, "chunk_flushed", map[string]interface{}{"size": 2, "flush": 1})
	tracer.RecordError(ctx, "writer", errors.New("insert failed"))
	result.MarkAsFailed(errors.New("insert failed"))
	end()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "job importUserJob", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	var names []string
	for _, ev := range span.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "chunk_flushed")
	assert.Contains(t, names, "exception")
}

func TestNewTracerProvider(t *testing.T) {
	tp, err := infra.NewTracerProvider(context.Background(), config.TracingConfig{Exporter: "none", ServiceName: "importuser"})
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))

	_, err = infra.NewTracerProvider(context.Background(), config.TracingConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}
