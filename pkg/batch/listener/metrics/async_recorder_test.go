package metrics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	"github.com/tigerroll/importuser/pkg/batch/listener/metrics"
)

type countingRecorder struct {
	coremetrics.NoOpMetricRecorder
	mu     sync.Mutex
	reads  int
	writes int
	ends   []model.BatchStatus
}

func (c *countingRecorder) RecordItemRead(ctx context.Context, stepName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
}

func (c *countingRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes += count
}

func (c *countingRecorder) RecordJobEnd(ctx context.Context, result *model.JobResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends = append(c.ends, result.Status)
}

func TestAsyncMetricRecorder_DrainsOnClose(t *testing.T) {
	backend := &countingRecorder{}
	rec := metrics.NewAsyncMetricRecorder(16, backend)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec.RecordItemRead(ctx, "step")
	}
	rec.RecordItemWrite(ctx, "step", 5)
	result := model.NewJobResult("importUserJob", "step", model.NewJobParameters())
	result.MarkAsCompleted()
	rec.RecordJobEnd(ctx, result)

	rec.Close()
	rec.Close()

	assert.Equal(t, 5, backend.reads)
	assert.Equal(t, 5, backend.writes)
	assert.Equal(t, []model.BatchStatus{model.BatchStatusCompleted}, backend.ends)

	// Events after Close are discarded without blocking.
	done := make(chan struct{})
	go func() {
		rec.RecordItemRead(ctx, "step")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordItemRead blocked after Close")
	}
}
