package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	infra "github.com/tigerroll/importuser/pkg/batch/infrastructure/metrics"
)

func TestNewMetricRecorder_Backends(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.NewConfig()

	rec, err := infra.NewMetricRecorder(lc, cfg)
	require.NoError(t, err)
	assert.IsType(t, &metrics.NoOpMetricRecorder{}, rec)

	cfg.Surfin.Metrics.Enabled = true
	rec, err = infra.NewMetricRecorder(lc, cfg)
	require.NoError(t, err)
	assert.IsType(t, &infra.PrometheusRecorder{}, rec)

	cfg.Surfin.Metrics.Backend = "statsd"
	_, err = infra.NewMetricRecorder(lc, cfg)
	assert.Error(t, err)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, err := infra.NewTracer(fxtest.NewLifecycle(t), config.NewConfig())
	require.NoError(t, err)
	assert.IsType(t, &metrics.NoOpTracer{}, tracer)
}
