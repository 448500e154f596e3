package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/listener/logging"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.SetOutput(&buf)
	prevLevel := logger.Level()
	logger.SetLogLevel("DEBUG")
	t.Cleanup(func() {
		logger.SetOutput(prev)
		logger.SetLogLevel(prevLevel.String())
	})
	return &buf
}

func TestLoggingJobListener_MasksParameters(t *testing.T) {
	buf := captureLogs(t)
	params := model.NewJobParameters()
	params.Put("input", "sample-data.csv")
	params.Put("password", "hunter2")

	l := logging.NewLoggingJobListener([]string{"password"})
	result := model.NewJobResult("importUserJob", "step", params)
	l.BeforeJob(context.Background(), result)
	result.MarkAsFailed(errors.New("skip limit 3 exceeded"))
	l.AfterJob(context.Background(), result)

	out := buf.String()
	assert.Contains(t, out, "sample-data.csv")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "skip limit 3 exceeded")
}

func TestLoggingSkipAndWriteListeners(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()

	logging.NewLoggingSkipListener().OnSkipRead(ctx, errors.New("bad line"))
	w := logging.NewLoggingItemWriteListener()
	w.BeforeWrite(ctx, 2)
	w.AfterWrite(ctx, 2)
	w.OnWriteError(ctx, 2, errors.New("constraint"))

	out := buf.String()
	assert.Contains(t, out, "OnSkipRead - Skipping item due to error: bad line")
	assert.Contains(t, out, "OnWriteError - Items count: 2, Error: constraint")
}
