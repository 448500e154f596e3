package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
)

func newJobListener(cfg *config.Config) port.JobExecutionListener {
	return NewLoggingJobListener(cfg.Surfin.Security.MaskedParameterKeys)
}

func newSkipListener() port.SkipListener {
	return NewLoggingSkipListener()
}

func newItemWriteListener() port.ItemWriteListener {
	return NewLoggingItemWriteListener()
}

// Module contributes the logging listeners to the listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(newJobListener, fx.ResultTags(`group:"job_listeners"`))),
	fx.Provide(fx.Annotate(newSkipListener, fx.ResultTags(`group:"skip_listeners"`))),
	fx.Provide(fx.Annotate(newItemWriteListener, fx.ResultTags(`group:"write_listeners"`))),
)
