package notification

import (
	"context"
	"fmt"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// Notifier notifies external systems about the terminal result of a run.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, result *model.JobResult)
}

// LogNotifier is a Notifier that only logs the notification.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// FormatMessage renders the notification text for result.
func FormatMessage(result *model.JobResult) string {
	return fmt.Sprintf(
		"Job Notification: Job '%s' (ID: %s) finished with Status: %s. Duration: %s, Written: %d, Skipped: %d",
		result.JobName,
		result.ID,
		result.Status,
		result.Duration(),
		result.WriteCount,
		result.SkipCount,
	)
}

func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, result *model.JobResult) {
	message := FormatMessage(result)
	if result.Status == model.BatchStatusCompleted {
		logger.Infof("%s", message)
	} else {
		logger.Warnf("%s (Failure: %s)", message, result.FailureMessage())
	}
}

var _ Notifier = (*LogNotifier)(nil)

// NotificationListener adapts a Notifier to port.JobExecutionListener.
type NotificationListener struct {
	notifier Notifier
}

// NewNotificationListener creates a new instance of NotificationListener.
func NewNotificationListener(notifier Notifier) *NotificationListener {
	return &NotificationListener{notifier: notifier}
}

// BeforeJob does nothing.
func (l *NotificationListener) BeforeJob(ctx context.Context, result *model.JobResult) {}

// AfterJob sends the notification.
func (l *NotificationListener) AfterJob(ctx context.Context, result *model.JobResult) {
	l.notifier.NotifyJobCompletion(ctx, result)
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
