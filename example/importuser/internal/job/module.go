package job

import "go.uber.org/fx"

// Module provides the steps and the job parameters of the importUserJob.
var Module = fx.Options(
	fx.Provide(NewImportUserStep),
	fx.Provide(NewMigrationStep),
	fx.Provide(NewJobParameters),
)
