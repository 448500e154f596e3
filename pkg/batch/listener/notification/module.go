// Package notification sends a notification when a run finishes.
package notification

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
)

func newJobListener(notifier Notifier) port.JobExecutionListener {
	return NewNotificationListener(notifier)
}

// Module provides notification-related components.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLogNotifier,
		fx.As(new(Notifier)),
	)),
	fx.Provide(fx.Annotate(newJobListener, fx.ResultTags(`group:"job_listeners"`))),
)
