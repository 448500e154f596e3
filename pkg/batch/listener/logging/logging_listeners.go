package logging

import (
	"context"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

// LoggingJobListener logs the start and the terminal result of every run.
type LoggingJobListener struct {
	maskedKeys []string
}

// NewLoggingJobListener creates a LoggingJobListener. Parameters named in maskedKeys are masked.
func NewLoggingJobListener(maskedKeys []string) *LoggingJobListener {
	return &LoggingJobListener{maskedKeys: maskedKeys}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, result *model.JobResult) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %s", result.JobName, result.ID, result.Parameters.MaskedString(l.maskedKeys))
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, result *model.JobResult) {
	if result.Status == model.BatchStatusFailed {
		logger.Errorf("JobExecutionListener: AfterJob - JobName: %s, Status: %s, Duration: %s, Failure: %s", result.JobName, result.Status, result.Duration(), result.FailureMessage())
		return
	}
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, Duration: %s, Read: %d, Write: %d, Skip: %d, Flushes: %v",
		result.JobName, result.Status, result.Duration(), result.ReadCount, result.WriteCount, result.SkipCount, result.FlushSizes)
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Item Write Listener ---

type LoggingItemWriteListener struct{}

func NewLoggingItemWriteListener() *LoggingItemWriteListener {
	return &LoggingItemWriteListener{}
}

func (l *LoggingItemWriteListener) BeforeWrite(ctx context.Context, n int) {
	logger.Debugf("ItemWriteListener: BeforeWrite - Items count: %d", n)
}

func (l *LoggingItemWriteListener) AfterWrite(ctx context.Context, n int) {
	logger.Debugf("ItemWriteListener: AfterWrite - Items count: %d", n)
}

func (l *LoggingItemWriteListener) OnWriteError(ctx context.Context, n int, err error) {
	logger.Errorf("ItemWriteListener: OnWriteError - Items count: %d, Error: %v", n, err)
}

var _ port.ItemWriteListener = (*LoggingItemWriteListener)(nil)

// --- Skip Listener ---

type LoggingSkipListener struct{}

func NewLoggingSkipListener() *LoggingSkipListener {
	return &LoggingSkipListener{}
}

func (l *LoggingSkipListener) OnSkipRead(ctx context.Context, err error) {
	logger.Warnf("SkipListener: OnSkipRead - Skipping item due to error: %v", err)
}

var _ port.SkipListener = (*LoggingSkipListener)(nil)
