package item_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/item"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
)

type readResult struct {
	item string
	err  error
}

func ok(s string) readResult { return readResult{item: s} }

func bad(line int) readResult {
	return readResult{err: exception.NewParseError(line, "BADLINE", errors.New("wrong number of fields"))}
}

// scriptedReader returns a fixed sequence of items and errors, then io.EOF.
type scriptedReader struct {
	script   []readResult
	pos      int
	reads    int
	opened   int
	closed   int
	openErr  error
	closeErr error
}

func (r *scriptedReader) Open(ctx context.Context) error {
	r.opened++
	r.pos = 0
	return r.openErr
}

func (r *scriptedReader) Read(ctx context.Context) (string, error) {
	r.reads++
	if r.pos >= len(r.script) {
		return "", io.EOF
	}
	next := r.script[r.pos]
	r.pos++
	return next.item, next.err
}

func (r *scriptedReader) Close(ctx context.Context) error {
	r.closed++
	return r.closeErr
}

// recordingWriter keeps every successfully written chunk. It fails on the failOn-th call.
type recordingWriter struct {
	chunks [][]string
	calls  int
	failOn int
}

func (w *recordingWriter) Write(ctx context.Context, items []string) error {
	w.calls++
	if w.failOn > 0 && w.calls == w.failOn {
		return exception.NewWriteError("people", len(items), errors.New("connection reset"))
	}
	w.chunks = append(w.chunks, append([]string(nil), items...))
	return nil
}

func (w *recordingWriter) all() []string {
	var out []string
	for _, c := range w.chunks {
		out = append(out, c...)
	}
	return out
}

// streamWriter additionally implements port.ItemStream.
type streamWriter struct {
	recordingWriter
	opened   int
	closed   int
	closeErr error
}

func (w *streamWriter) Open(ctx context.Context) error  { w.opened++; return nil }
func (w *streamWriter) Close(ctx context.Context) error { w.closed++; return w.closeErr }

var upper = port.ItemProcessorFunc[string, string](func(ctx context.Context, s string) (*string, error) {
	out := strings.ToUpper(s)
	return &out, nil
})

type MockJobListener struct {
	mock.Mock
}

func (m *MockJobListener) BeforeJob(ctx context.Context, result *model.JobResult) {
	m.Called(ctx, result)
}

func (m *MockJobListener) AfterJob(ctx context.Context, result *model.JobResult) {
	m.Called(ctx, result)
}

type MockSkipListener struct {
	mock.Mock
}

func (m *MockSkipListener) OnSkipRead(ctx context.Context, err error) {
	m.Called(ctx, err)
}

func newStep(t *testing.T, r port.ItemReader[string], w port.ItemWriter[string], opts ...item.Option) *item.ChunkStep[string, string] {
	t.Helper()
	s, err := item.NewChunkStep[string, string]("step1", r, upper, w, opts...)
	require.NoError(t, err)
	return s
}

func TestChunkStep_SkipsMalformedWithinLimit(t *testing.T) {
	reader := &scriptedReader{script: []readResult{ok("john"), ok("jane"), bad(3), ok("alice")}}
	writer := &recordingWriter{}
	completions := 0

	step := newStep(t, reader, writer, item.OnCompleted(func(ctx context.Context, result *model.JobResult) {
		completions++
		assert.Equal(t, model.BatchStatusCompleted, result.Status)
	}))

	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusCompleted, result.Status)
	assert.NoError(t, result.Failure)
	assert.Equal(t, []string{"JOHN", "JANE", "ALICE"}, writer.all())
	assert.Equal(t, 3, result.ReadCount)
	assert.Equal(t, 3, result.WriteCount)
	assert.Equal(t, 1, result.SkipCount)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, reader.opened)
	assert.Equal(t, 1, reader.closed)
}

func TestChunkStep_FailsWhenSkipCountExceedsLimit(t *testing.T) {
	reader := &scriptedReader{script: []readResult{ok("john"), bad(2), bad(3), bad(4), bad(5), ok("never")}}
	writer := &recordingWriter{}
	completions := 0

	step := newStep(t, reader, writer,
		item.WithSkipLimit(3),
		item.OnCompleted(func(ctx context.Context, result *model.JobResult) { completions++ }),
	)

	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	var parseErr *exception.ParseError
	require.ErrorAs(t, result.Failure, &parseErr)
	assert.Equal(t, 5, parseErr.Line, "the 4th malformed line terminates the run")
	assert.Equal(t, 3, result.SkipCount)
	assert.Empty(t, writer.chunks, "the pending chunk is not flushed on failure")
	assert.Equal(t, 5, reader.reads, "nothing is read after the failure point")
	assert.Equal(t, 0, completions)
	assert.Equal(t, 1, reader.closed)
}

func TestChunkStep_FlushSizes(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		chunkSize int
		want      []int
	}{
		{name: "remainder flushed at EOF", records: 5, chunkSize: 2, want: []int{2, 2, 1}},
		{name: "exact multiple has no empty flush", records: 10, chunkSize: 10, want: []int{10}},
		{name: "single partial chunk", records: 3, chunkSize: 10, want: []int{3}},
		{name: "empty input", records: 0, chunkSize: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var script []readResult
			for i := 0; i < tt.records; i++ {
				script = append(script, ok(fmt.Sprintf("p%d", i)))
			}
			writer := &recordingWriter{}
			step := newStep(t, &scriptedReader{script: script}, writer, item.WithChunkSize(tt.chunkSize))

			result := step.Execute(context.Background(), model.NewJobParameters())

			require.Equal(t, model.BatchStatusCompleted, result.Status)
			assert.Equal(t, tt.want, result.FlushSizes)
			assert.Equal(t, len(tt.want), writer.calls)
			assert.Equal(t, tt.records, result.WriteCount)
		})
	}
}

func TestChunkStep_WriteFailureKeepsEarlierChunks(t *testing.T) {
	reader := &scriptedReader{script: []readResult{ok("a"), ok("b"), ok("c"), ok("d"), ok("e"), ok("f")}}
	writer := &recordingWriter{failOn: 2}
	completions := 0

	step := newStep(t, reader, writer,
		item.WithChunkSize(2),
		item.OnCompleted(func(ctx context.Context, result *model.JobResult) { completions++ }),
	)

	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.True(t, exception.IsWriteError(result.Failure))
	assert.Equal(t, [][]string{{"A", "B"}}, writer.chunks)
	assert.Equal(t, []int{2}, result.FlushSizes)
	assert.Equal(t, 4, result.ReadCount, "reading stops at the failing flush")
	assert.Equal(t, 0, completions)
}

func TestChunkStep_WriteFailureIsNeverSkipped(t *testing.T) {
	writer := &recordingWriter{failOn: 1}
	step := newStep(t, &scriptedReader{script: []readResult{ok("a")}}, writer,
		item.WithSkipPredicate(func(err error) bool { return true }),
		item.WithSkipLimit(100),
	)

	result := step.Execute(context.Background(), model.NewJobParameters())
	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.True(t, exception.IsWriteError(result.Failure))
}

func TestChunkStep_NonSkippableReadErrorFails(t *testing.T) {
	diskErr := errors.New("input/output error")
	reader := &scriptedReader{script: []readResult{ok("a"), {err: diskErr}, ok("b")}}
	writer := &recordingWriter{}

	result := newStep(t, reader, writer).Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.ErrorIs(t, result.Failure, diskErr)
	assert.Empty(t, writer.chunks)
}

func TestChunkStep_CustomSkipPredicate(t *testing.T) {
	transient := errors.New("transient")
	reader := &scriptedReader{script: []readResult{ok("a"), {err: transient}, bad(3)}}
	writer := &recordingWriter{}

	step := newStep(t, reader, writer, item.WithSkipPredicate(func(err error) bool { return errors.Is(err, transient) }))
	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status, "parse errors are not skippable under this predicate")
	assert.True(t, exception.IsParseError(result.Failure))
	assert.Equal(t, 1, result.SkipCount)
}

func TestChunkStep_OpenFailureIsResourceError(t *testing.T) {
	reader := &scriptedReader{openErr: errors.New("no such file")}
	writer := &recordingWriter{}

	result := newStep(t, reader, writer).Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.True(t, exception.IsResourceError(result.Failure))
	assert.Equal(t, 0, reader.reads)
	assert.Equal(t, 1, reader.closed)
}

func TestChunkStep_CloseFailureTurnsRunFailed(t *testing.T) {
	reader := &scriptedReader{script: []readResult{ok("a")}, closeErr: errors.New("close reader")}
	writer := &streamWriter{closeErr: errors.New("close writer")}
	completions := 0

	step := newStep(t, reader, writer, item.OnCompleted(func(ctx context.Context, result *model.JobResult) { completions++ }))
	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.Contains(t, result.Failure.Error(), "close reader")
	assert.Contains(t, result.Failure.Error(), "close writer")
	assert.Equal(t, 1, writer.opened)
	assert.Equal(t, 1, writer.closed)
	assert.Equal(t, [][]string{{"A"}}, writer.chunks)
	assert.Equal(t, 0, completions)
}

func TestChunkStep_CancelledContextFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newStep(t, &scriptedReader{script: []readResult{ok("a")}}, &recordingWriter{}).Execute(ctx, model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.ErrorIs(t, result.Failure, context.Canceled)
}

func TestChunkStep_FilteredAndFailedProcessing(t *testing.T) {
	filterOrFail := port.ItemProcessorFunc[string, string](func(ctx context.Context, s string) (*string, error) {
		switch s {
		case "drop":
			return nil, nil
		case "boom":
			return nil, errors.New("cannot convert")
		}
		return &s, nil
	})

	writer := &recordingWriter{}
	step, err := item.NewChunkStep[string, string]("step1", &scriptedReader{script: []readResult{ok("a"), ok("drop"), ok("b")}}, filterOrFail, writer)
	require.NoError(t, err)
	result := step.Execute(context.Background(), model.NewJobParameters())
	assert.Equal(t, model.BatchStatusCompleted, result.Status)
	assert.Equal(t, 1, result.FilterCount)
	assert.Equal(t, []string{"a", "b"}, writer.all())

	step, err = item.NewChunkStep[string, string]("step1", &scriptedReader{script: []readResult{ok("a"), ok("boom")}}, filterOrFail, &recordingWriter{})
	require.NoError(t, err)
	result = step.Execute(context.Background(), model.NewJobParameters())
	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.True(t, exception.IsBatchError(result.Failure))
}

func TestChunkStep_ListenersObserveEveryTerminalResult(t *testing.T) {
	jobListener := new(MockJobListener)
	jobListener.On("BeforeJob", mock.Anything, mock.AnythingOfType("*model.JobResult")).Return().Once()
	jobListener.On("AfterJob", mock.Anything, mock.MatchedBy(func(r *model.JobResult) bool {
		return r.Status == model.BatchStatusFailed
	})).Return().Once()

	skipListener := new(MockSkipListener)
	skipListener.On("OnSkipRead", mock.Anything, mock.Anything).Return().Once()

	reader := &scriptedReader{script: []readResult{bad(1), bad(2)}}
	step := newStep(t, reader, &recordingWriter{},
		item.WithSkipLimit(1),
		item.WithJobListeners(jobListener),
		item.WithSkipListeners(skipListener),
	)

	result := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	jobListener.AssertExpectations(t)
	skipListener.AssertExpectations(t)
}

func TestChunkStep_ReRunReadsFromStart(t *testing.T) {
	reader := &scriptedReader{script: []readResult{ok("a"), ok("b")}}
	writer := &recordingWriter{}
	step := newStep(t, reader, writer)

	first := step.Execute(context.Background(), model.NewJobParameters())
	second := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusCompleted, first.Status)
	assert.Equal(t, model.BatchStatusCompleted, second.Status)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"A", "B", "A", "B"}, writer.all())
}

func TestChunkStep_SkipCountStartsOverEachRun(t *testing.T) {
	reader := &scriptedReader{script: []readResult{bad(1), ok("a"), bad(3), bad(4)}}
	writer := &recordingWriter{}
	step := newStep(t, reader, writer, item.WithSkipLimit(3))

	first := step.Execute(context.Background(), model.NewJobParameters())
	second := step.Execute(context.Background(), model.NewJobParameters())

	assert.Equal(t, model.BatchStatusCompleted, first.Status)
	assert.Equal(t, 3, first.SkipCount)
	assert.Equal(t, model.BatchStatusCompleted, second.Status)
	assert.Equal(t, 3, second.SkipCount)
	assert.Equal(t, []string{"A", "A"}, writer.all())
}

func TestNewChunkStep_Validation(t *testing.T) {
	r := &scriptedReader{}
	w := &recordingWriter{}

	_, err := item.NewChunkStep[string, string]("s", r, upper, w, item.WithChunkSize(0))
	assert.Error(t, err)

	_, err = item.NewChunkStep[string, string]("s", r, upper, w, item.WithSkipLimit(-1))
	assert.Error(t, err)

	_, err = item.NewChunkStep[string, string]("s", nil, upper, w)
	assert.Error(t, err)

	s, err := item.NewChunkStep[string, string]("s", r, upper, w)
	require.NoError(t, err)
	assert.Equal(t, item.DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, item.DefaultSkipLimit, s.SkipLimit())
}
