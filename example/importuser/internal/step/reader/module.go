package reader

import "go.uber.org/fx"

// Module provides the person reader.
var Module = fx.Options(
	fx.Provide(NewPersonReader),
)
