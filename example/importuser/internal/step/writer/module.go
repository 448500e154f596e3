package writer

import "go.uber.org/fx"

// Module provides the person writer.
var Module = fx.Options(
	fx.Provide(NewPersonWriter),
)
