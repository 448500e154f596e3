// Package item implements the chunk-oriented step that drives a reader, a processor and a writer.
package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/skip"
	exception "github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

const (
	// DefaultChunkSize is the number of items accumulated before a flush.
	DefaultChunkSize = 10
	// DefaultSkipLimit is the number of skippable read failures tolerated per run.
	DefaultSkipLimit = 3
)

// CompletionCallback is invoked exactly once when a run reaches COMPLETED.
type CompletionCallback func(ctx context.Context, result *model.JobResult)

type settings struct {
	jobName        string
	chunkSize      int
	skipLimit      int
	isSkippable    skip.Predicate
	jobListeners   []port.JobExecutionListener
	skipListeners  []port.SkipListener
	writeListeners []port.ItemWriteListener
	callbacks      []CompletionCallback
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Option configures a ChunkStep.
type Option func(*settings)

// WithJobName sets the job name reported in the JobResult. It defaults to the step name.
func WithJobName(name string) Option {
	return func(s *settings) { s.jobName = name }
}

// WithChunkSize sets the number of items per flush.
func WithChunkSize(n int) Option {
	return func(s *settings) { s.chunkSize = n }
}

// WithSkipLimit sets the number of tolerated skippable failures.
func WithSkipLimit(n int) Option {
	return func(s *settings) { s.skipLimit = n }
}

// WithSkipPredicate sets the predicate deciding which read errors are skippable.
func WithSkipPredicate(p skip.Predicate) Option {
	return func(s *settings) { s.isSkippable = p }
}

// WithJobListeners registers listeners notified before and after every run.
func WithJobListeners(l ...port.JobExecutionListener) Option {
	return func(s *settings) { s.jobListeners = append(s.jobListeners, l...) }
}

// WithSkipListeners registers listeners notified of every skipped read failure.
func WithSkipListeners(l ...port.SkipListener) Option {
	return func(s *settings) { s.skipListeners = append(s.skipListeners, l...) }
}

// WithItemWriteListeners registers listeners notified around every flush.
func WithItemWriteListeners(l ...port.ItemWriteListener) Option {
	return func(s *settings) { s.writeListeners = append(s.writeListeners, l...) }
}

// OnCompleted registers a callback invoked when a run reaches COMPLETED.
func OnCompleted(cb CompletionCallback) Option {
	return func(s *settings) {
		if cb != nil {
			s.callbacks = append(s.callbacks, cb)
		}
	}
}

// WithMetricRecorder sets the metric recorder. Nil keeps the no-op recorder.
func WithMetricRecorder(r metrics.MetricRecorder) Option {
	return func(s *settings) {
		if r != nil {
			s.metricRecorder = r
		}
	}
}

// WithTracer sets the tracer. Nil keeps the no-op tracer.
func WithTracer(t metrics.Tracer) Option {
	return func(s *settings) {
		if t != nil {
			s.tracer = t
		}
	}
}

// ChunkStep reads items one at a time, transforms them and flushes them to the writer in
// chunks of a fixed size. A run moves from RUNNING to COMPLETED or FAILED exactly once.
//
// Read failures accepted by the skip predicate are skipped until their count exceeds the skip
// limit. Any other read failure, any processor failure and any write failure is fatal.
// Chunks flushed before a failure stay persisted.
type ChunkStep[I, O any] struct {
	name      string
	reader    port.ItemReader[I]
	processor port.ItemProcessor[I, O]
	writer    port.ItemWriter[O]
	settings
	newSkipPolicy skip.Factory
}

// NewChunkStep creates a new ChunkStep.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	opts ...Option,
) (*ChunkStep[I, O], error) {
	s := settings{
		jobName:        name,
		chunkSize:      DefaultChunkSize,
		skipLimit:      DefaultSkipLimit,
		isSkippable:    exception.IsParseError,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	switch {
	case reader == nil:
		return nil, exception.NewBatchError(name, "ItemReader is required", nil, false, false)
	case processor == nil:
		return nil, exception.NewBatchError(name, "ItemProcessor is required", nil, false, false)
	case writer == nil:
		return nil, exception.NewBatchError(name, "ItemWriter is required", nil, false, false)
	case s.chunkSize < 1:
		return nil, exception.NewBatchError(name, fmt.Sprintf("chunk size must be at least 1, got %d", s.chunkSize), nil, false, false)
	case s.skipLimit < 0:
		return nil, exception.NewBatchError(name, fmt.Sprintf("skip limit must not be negative, got %d", s.skipLimit), nil, false, false)
	}
	if s.isSkippable == nil {
		s.isSkippable = exception.IsParseError
	}

	return &ChunkStep[I, O]{
		name:          name,
		reader:        reader,
		processor:     processor,
		writer:        writer,
		settings:      s,
		newSkipPolicy: skip.NewFactory(s.skipLimit, s.isSkippable),
	}, nil
}

// Name returns the step name.
func (s *ChunkStep[I, O]) Name() string {
	return s.name
}

// ChunkSize returns the configured chunk size.
func (s *ChunkStep[I, O]) ChunkSize() int {
	return s.chunkSize
}

// SkipLimit returns the configured skip limit.
func (s *ChunkStep[I, O]) SkipLimit() int {
	return s.skipLimit
}

// Execute performs one run and returns its terminal result. It never returns a RUNNING result.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, params model.JobParameters) *model.JobResult {
	result := model.NewJobResult(s.jobName, s.name, params)

	ctx, endSpan := s.tracer.StartJobSpan(ctx, result)
	defer endSpan()

	s.metricRecorder.RecordJobStart(ctx, result)
	for _, l := range s.jobListeners {
		l.BeforeJob(ctx, result)
	}
	logger.Infof("ChunkStep '%s' started (ID: %s, chunkSize: %d, skipLimit: %d).", s.name, result.ID, s.chunkSize, s.skipLimit)

	runErr := s.open(ctx)
	if runErr == nil {
		runErr = s.process(ctx, result)
	}
	if closeErr := s.close(ctx); closeErr != nil {
		logger.Warnf("ChunkStep '%s': failed to release resources: %v", s.name, closeErr)
		if runErr == nil {
			runErr = closeErr
		}
	}

	if runErr != nil {
		s.tracer.RecordError(ctx, s.name, runErr)
		result.MarkAsFailed(runErr)
		logger.Errorf("ChunkStep '%s' FAILED after %d flush(es): %v", s.name, result.FlushCount, runErr)
	} else {
		result.MarkAsCompleted()
		logger.Infof("ChunkStep '%s' COMPLETED. read=%d, written=%d, skipped=%d, filtered=%d",
			s.name, result.ReadCount, result.WriteCount, result.SkipCount, result.FilterCount)
	}

	if result.Status == model.BatchStatusCompleted {
		for _, cb := range s.callbacks {
			cb(ctx, result)
		}
	}

	s.metricRecorder.RecordJobEnd(ctx, result)
	for _, l := range s.jobListeners {
		l.AfterJob(ctx, result)
	}
	return result
}

// open acquires the reader and, if it holds resources, the writer.
// Failures are resource errors and happen before the first read.
func (s *ChunkStep[I, O]) open(ctx context.Context) error {
	if err := s.reader.Open(ctx); err != nil {
		return asResourceError(s.name+" reader", err)
	}
	if stream, ok := s.writer.(port.ItemStream); ok {
		if err := stream.Open(ctx); err != nil {
			return asResourceError(s.name+" writer", err)
		}
	}
	return nil
}

// close releases the reader and writer. Both are always attempted.
func (s *ChunkStep[I, O]) close(ctx context.Context) error {
	var result *multierror.Error
	if err := s.reader.Close(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close ItemReader: %w", err))
	}
	if stream, ok := s.writer.(port.ItemStream); ok {
		if err := stream.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close ItemWriter: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// process is the read-transform-flush loop.
func (s *ChunkStep[I, O]) process(ctx context.Context, result *model.JobResult) error {
	policy := s.newSkipPolicy()
	chunk := make([]O, 0, s.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ChunkStep '%s' interrupted: %w", s.name, err)
		}

		item, err := s.reader.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(chunk) > 0 {
					return s.flush(ctx, result, chunk)
				}
				return nil
			}
			if !policy.IsSkippable(err) {
				return err
			}
			if !policy.RecordSkip() {
				logger.Errorf("ChunkStep '%s': skip limit %d exceeded: %v", s.name, policy.GetSkipLimit(), err)
				return fmt.Errorf("skip limit %d exceeded: %w", policy.GetSkipLimit(), err)
			}
			result.AddSkipped(err)
			logger.Warnf("ChunkStep '%s': Item read skipped (Skip Count: %d/%d): %v", s.name, policy.GetSkipCount(), policy.GetSkipLimit(), err)
			s.notifySkipRead(ctx, err)
			continue
		}
		result.ReadCount++
		s.metricRecorder.RecordItemRead(ctx, s.name)

		out, err := s.processor.Process(ctx, item)
		if err != nil {
			return exception.NewBatchError(s.name, "Item process failed", err, false, false)
		}
		s.metricRecorder.RecordItemProcess(ctx, s.name)
		if out == nil {
			result.FilterCount++
			s.metricRecorder.RecordItemFilter(ctx, s.name)
			continue
		}

		chunk = append(chunk, *out)
		if len(chunk) == s.chunkSize {
			if err := s.flush(ctx, result, chunk); err != nil {
				return err
			}
			chunk = make([]O, 0, s.chunkSize)
		}
	}
}

// flush hands one chunk to the writer. Write failures are never skipped.
func (s *ChunkStep[I, O]) flush(ctx context.Context, result *model.JobResult, chunk []O) error {
	n := len(chunk)
	for _, l := range s.writeListeners {
		l.BeforeWrite(ctx, n)
	}

	start := time.Now()
	if err := s.writer.Write(ctx, chunk); err != nil {
		for _, l := range s.writeListeners {
			l.OnWriteError(ctx, n, err)
		}
		s.tracer.RecordError(ctx, "writer", err)
		return err
	}
	elapsed := time.Since(start)

	result.AddFlush(n)
	s.metricRecorder.RecordItemWrite(ctx, s.name, n)
	s.metricRecorder.RecordChunkCommit(ctx, s.name, n)
	s.metricRecorder.RecordDuration(ctx, "chunk_write", elapsed, map[string]string{"step": s.name})
	s.tracer.RecordEvent(ctx, "chunk_flushed", map[string]interface{}{"size": n, "flush": result.FlushCount})
	logger.Debugf("ChunkStep '%s': flushed chunk #%d with %d item(s) in %s.", s.name, result.FlushCount, n, elapsed)

	for _, l := range s.writeListeners {
		l.AfterWrite(ctx, n)
	}
	return nil
}

func (s *ChunkStep[I, O]) notifySkipRead(ctx context.Context, err error) {
	s.tracer.RecordError(ctx, "reader", err)
	s.metricRecorder.RecordItemSkip(ctx, s.name, skipReason(err))
	for _, l := range s.skipListeners {
		l.OnSkipRead(ctx, err)
	}
}

func skipReason(err error) string {
	switch {
	case exception.IsParseError(err):
		return exception.ParseErrorName
	case exception.IsResourceError(err):
		return exception.ResourceErrorName
	case exception.IsWriteError(err):
		return exception.WriteErrorName
	default:
		return "other"
	}
}

func asResourceError(resource string, err error) error {
	if exception.IsResourceError(err) {
		return err
	}
	return exception.NewResourceError(resource, err)
}
