// Package app wires the importUserJob into an Fx application: database and storage
// adapters, telemetry, listeners and the job steps.
package app

import (
	"io/fs"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/importuser/example/importuser/internal/job"
	appListener "github.com/tigerroll/importuser/example/importuser/internal/listener"
	"github.com/tigerroll/importuser/example/importuser/internal/step/processor"
	"github.com/tigerroll/importuser/example/importuser/internal/step/reader"
	"github.com/tigerroll/importuser/example/importuser/internal/step/writer"
	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage/s3"
	"github.com/tigerroll/importuser/pkg/batch/component/tasklet/migration"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	"github.com/tigerroll/importuser/pkg/batch/core/support/incrementer"
	infraMetrics "github.com/tigerroll/importuser/pkg/batch/infrastructure/metrics"
	batchlistener "github.com/tigerroll/importuser/pkg/batch/listener"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// DefaultDBAdapters is used when no adapter list is given.
const DefaultDBAdapters = "postgres,mysql,sqlite"

// DBProviderModules maps an adapter name to the module registering its DBProvider.
// Redshift is served by the PostgreSQL provider.
var DBProviderModules = map[string]fx.Option{
	"postgres": postgres.Module,
	"redshift": postgres.Module,
	"mysql":    mysql.Module,
	"sqlite":   sqlite.Module,
}

// DBProviderOptions selects the DB provider modules named in the comma-separated adapters
// list. Unknown names are skipped with a warning.
func DBProviderOptions(adapters string) []fx.Option {
	if strings.TrimSpace(adapters) == "" {
		adapters = DefaultDBAdapters
	}
	options := make([]fx.Option, 0)
	seen := make(map[string]bool)
	for _, name := range strings.Split(adapters, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "redshift" {
			name = "postgres"
		}
		module, ok := DBProviderModules[name]
		if !ok {
			logger.Warnf("DB adapter '%s' is configured but not recognized/supported. Skipping.", name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		options = append(options, module)
		logger.Debugf("DB adapter '%s' selected and registered.", name)
	}
	return options
}

// Module assembles the application graph for cfg. The migrations FS holds one directory
// per database type.
func Module(cfg *config.Config, migrationsFS fs.FS, dbAdapters string) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		config.Module,
		fx.Provide(fx.Annotate(
			func() fs.FS { return migrationsFS },
			fx.ResultTags(`name:"appMigrationsFS"`),
		)),

		gormadapter.Module,
		fx.Options(DBProviderOptions(dbAdapters)...),
		storage.Module,
		local.Module,
		gcs.Module,
		s3.Module,

		infraMetrics.Module,
		batchlistener.Module,
		incrementer.Module,
		migration.Module,

		reader.Module,
		processor.Module,
		writer.Module,
		fx.Provide(appListener.NewCompletionReporter),
		job.Module,
	)
}
