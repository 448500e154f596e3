package logger

import "go.uber.org/fx"

// Module installs the fx event adapter so container logs share the batch log format.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
