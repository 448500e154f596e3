package s3

import "go.uber.org/fx"

// Module registers the S3 storage provider in the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
