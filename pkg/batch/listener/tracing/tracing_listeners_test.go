package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/listener/tracing"
)

type MockTracer struct {
	mock.Mock
}

func (m *MockTracer) StartJobSpan(ctx context.Context, result *model.JobResult) (context.Context, func()) {
	return ctx, func() {}
}

func (m *MockTracer) RecordError(ctx context.Context, module string, err error) {
	m.Called(ctx, module, err)
}

func (m *MockTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	m.Called(ctx, name, attributes)
}

func TestTracingListeners_RecordEvents(t *testing.T) {
	tracer := &MockTracer{}
	tracer.On("RecordEvent", mock.Anything, "job_started", mock.Anything).Return().Once()
	tracer.On("RecordEvent", mock.Anything, "job_finished", mock.MatchedBy(func(attrs map[string]interface{}) bool {
		return attrs["status"] == "COMPLETED" && attrs["read"] == 0
	})).Return().Once()
	tracer.On("RecordEvent", mock.Anything, "item_skipped", map[string]interface{}{"error": "bad line"}).Return().Once()

	ctx := context.Background()
	result := model.NewJobResult("importUserJob", "step", model.NewJobParameters())
	l := tracing.NewTracingJobListener(tracer)
	l.BeforeJob(ctx, result)
	result.MarkAsCompleted()
	l.AfterJob(ctx, result)
	tracing.NewTracingSkipListener(tracer).OnSkipRead(ctx, errors.New("bad line"))

	tracer.AssertExpectations(t)
}
