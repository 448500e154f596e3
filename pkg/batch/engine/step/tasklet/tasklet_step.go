// Package tasklet implements the step that runs a single Tasklet.
package tasklet

import (
	"context"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	exception "github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// Option configures a TaskletStep.
type Option func(*TaskletStep)

// WithJobName sets the job name recorded in the result.
func WithJobName(name string) Option {
	return func(s *TaskletStep) { s.jobName = name }
}

// WithJobListeners registers listeners notified before and after the run.
func WithJobListeners(l ...port.JobExecutionListener) Option {
	return func(s *TaskletStep) { s.listeners = append(s.listeners, l...) }
}

// WithMetricRecorder sets the metric recorder. Nil keeps the no-op recorder.
func WithMetricRecorder(r metrics.MetricRecorder) Option {
	return func(s *TaskletStep) {
		if r != nil {
			s.metricRecorder = r
		}
	}
}

// WithTracer sets the tracer. Nil keeps the no-op tracer.
func WithTracer(t metrics.Tracer) Option {
	return func(s *TaskletStep) {
		if t != nil {
			s.tracer = t
		}
	}
}

// TaskletStep runs a Tasklet once and reports the outcome as a JobResult.
type TaskletStep struct {
	id             string
	jobName        string
	tasklet        port.Tasklet
	listeners      []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep.
func NewTaskletStep(id string, tasklet port.Tasklet, opts ...Option) (*TaskletStep, error) {
	if tasklet == nil {
		return nil, exception.NewBatchError(id, "Tasklet is required", nil, false, false)
	}
	s := &TaskletStep{
		id:             id,
		jobName:        id,
		tasklet:        tasklet,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the step ID.
func (s *TaskletStep) Name() string {
	return s.id
}

// Execute runs the Tasklet. A Close failure after a successful Execute fails the run.
func (s *TaskletStep) Execute(ctx context.Context, params model.JobParameters) *model.JobResult {
	result := model.NewJobResult(s.jobName, s.id, params)
	ctx, endSpan := s.tracer.StartJobSpan(ctx, result)
	defer endSpan()

	s.metricRecorder.RecordJobStart(ctx, result)
	for _, l := range s.listeners {
		l.BeforeJob(ctx, result)
	}
	logger.Infof("TaskletStep '%s' executing.", s.id)

	err := s.tasklet.Execute(ctx)
	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.id, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	if err != nil {
		s.tracer.RecordError(ctx, s.id, err)
		result.MarkAsFailed(err)
	} else {
		result.MarkAsCompleted()
	}

	s.metricRecorder.RecordJobEnd(ctx, result)
	for _, l := range s.listeners {
		l.AfterJob(ctx, result)
	}
	logger.Infof("TaskletStep '%s' finished. Status: %s", s.id, result.Status)
	return result
}

var _ port.Step = (*TaskletStep)(nil)
