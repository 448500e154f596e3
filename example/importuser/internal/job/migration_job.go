package job

import (
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	"github.com/tigerroll/importuser/pkg/batch/component/tasklet/migration"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/tasklet"
	batchlistener "github.com/tigerroll/importuser/pkg/batch/listener"
)

// MigrationStepName names the schema migration step in logs and metrics.
const MigrationStepName = "migrationStep"

// MigrationCommand selects the direction of the migration step ("up" or "down").
type MigrationCommand string

// MigrationStepParams holds the dependencies of NewMigrationStep.
type MigrationStepParams struct {
	fx.In
	Cfg              *config.Config
	DBProviders      []database.DBProvider `group:"db_providers"`
	MigratorProvider migration.MigratorProvider
	MigrationFS      fs.FS `name:"appMigrationsFS"`
	Command          MigrationCommand `optional:"true"`
	Listeners        batchlistener.Set
	Recorder         metrics.MetricRecorder
	Tracer           metrics.Tracer
}

// NewMigrationStep creates the tasklet step applying the embedded migrations to the data source.
func NewMigrationStep(p MigrationStepParams) (*tasklet.TaskletStep, error) {
	t, err := migration.NewMigrationTasklet(p.Cfg, p.DBProviders, p.MigratorProvider, p.MigrationFS, migration.Settings{
		DBRef:   p.Cfg.Surfin.Batch.DataSource,
		Command: string(p.Command),
	})
	if err != nil {
		return nil, err
	}
	return tasklet.NewTaskletStep(MigrationStepName, t,
		tasklet.WithJobName(p.Cfg.Surfin.Batch.JobName),
		tasklet.WithJobListeners(p.Listeners.Job...),
		tasklet.WithMetricRecorder(p.Recorder),
		tasklet.WithTracer(p.Tracer),
	)
}
