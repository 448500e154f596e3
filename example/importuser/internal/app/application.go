package app

import (
	"context"
	"fmt"
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/importuser/example/importuser/internal/job"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/tasklet"
	batchlistener "github.com/tigerroll/importuser/pkg/batch/listener"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// Options selects the configuration and the adapters of one application run.
type Options struct {
	// EnvFilePath is loaded into the environment before the configuration is read.
	EnvFilePath string
	// ConfigFile replaces EmbeddedConfig when set.
	ConfigFile     string
	EmbeddedConfig config.EmbeddedConfig
	// MigrationsFS holds one migration directory per database type.
	MigrationsFS fs.FS
	// DBAdapters is a comma-separated list of DB provider names. Empty selects all.
	DBAdapters string
	// Override is applied after loading and before validation, e.g. for command line flags.
	Override func(cfg *config.Config)
}

// LoadConfiguration loads, overrides and validates the configuration, then applies its log level.
func LoadConfiguration(opts Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadConfigFile(opts.EnvFilePath, opts.ConfigFile)
	} else {
		cfg, err = config.LoadConfig(opts.EnvFilePath, opts.EmbeddedConfig)
	}
	if err != nil {
		return nil, err
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunImport runs the importUserJob once. The schema is migrated during start-up when
// auto_migrate is set. The returned result is COMPLETED or FAILED; an error means the run
// could not take place.
func RunImport(appCtx context.Context, opts Options) (*model.JobResult, error) {
	cfg, err := LoadConfiguration(opts)
	if err != nil {
		return nil, err
	}

	signaler := batchlistener.NewJobCompletionSignaler()
	crashed := make(chan error, 1)

	options := []fx.Option{
		logger.Module,
		Module(cfg, opts.MigrationsFS, opts.DBAdapters),
		fx.Supply(signaler),
	}
	if cfg.Surfin.Batch.AutoMigrate {
		options = append(options, fx.Invoke(func(lc fx.Lifecycle, step *tasklet.TaskletStep, params model.JobParameters) {
			lc.Append(fx.Hook{OnStart: onStartMigration(appCtx, step, params)})
		}))
	}
	options = append(options, fx.Invoke(func(lc fx.Lifecycle, step *job.ImportUserStep, params model.JobParameters) {
		lc.Append(fx.Hook{OnStart: onStartJobExecution(appCtx, step, params, crashed)})
	}))

	app := fx.New(options...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	// The run context bounds start-up, so a long migration is not cut short by the start timeout.
	if err := app.Start(appCtx); err != nil {
		return nil, fmt.Errorf("failed to start application: %w", err)
	}

	var runErr error
	select {
	case <-signaler.Done():
	case runErr = <-crashed:
	}
	stopApplication(app)
	return signaler.Result(), runErr
}

// RunMigration applies (command "up") or reverts (command "down") the embedded migrations.
func RunMigration(appCtx context.Context, opts Options, command string) (*model.JobResult, error) {
	cfg, err := LoadConfiguration(opts)
	if err != nil {
		return nil, err
	}

	var (
		step   *tasklet.TaskletStep
		params model.JobParameters
	)
	app := fx.New(
		logger.Module,
		Module(cfg, opts.MigrationsFS, opts.DBAdapters),
		fx.Supply(job.MigrationCommand(command)),
		fx.Populate(&step, &params),
	)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	if err := app.Start(appCtx); err != nil {
		return nil, fmt.Errorf("failed to start application: %w", err)
	}
	result := step.Execute(appCtx, params)
	stopApplication(app)
	return result, nil
}

// onStartMigration runs the migration step synchronously; a failed migration aborts start-up.
func onStartMigration(appCtx context.Context, step *tasklet.TaskletStep, params model.JobParameters) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result := step.Execute(appCtx, params)
		if result.Status != model.BatchStatusCompleted {
			return fmt.Errorf("schema migration failed: %w", result.Failure)
		}
		return nil
	}
}

// onStartJobExecution starts the import step in the background once the application is up.
func onStartJobExecution(appCtx context.Context, step *job.ImportUserStep, params model.JobParameters, crashed chan<- error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in job execution: %v", r)
					crashed <- fmt.Errorf("job execution panicked: %v", r)
				}
			}()
			logger.Infof("Starting job execution for step '%s'...", step.Name())
			step.Execute(appCtx, params)
		}()
		return nil
	}
}

func stopApplication(app *fx.App) {
	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application stop reported an error: %v", err)
	}
}
