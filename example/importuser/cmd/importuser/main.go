package main

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/tigerroll/importuser/example/importuser/internal/app"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// embeddedConfig is used unless --config names another file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// applicationMigrationsFS bundles one migration directory per database type.
//
//go:embed all:resources/migrations
var applicationMigrationsFS embed.FS

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configFile string
	envFile    string
	dbAdapters string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "importuser",
		Short:         "Import people from a delimited file into a relational table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "configuration file replacing the embedded application.yaml")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", envFile, ".env file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&flags.dbAdapters, "db-adapters", os.Getenv("DB_ADAPTERS"), "comma-separated DB providers to register (default "+app.DefaultDBAdapters+")")

	rootCmd.AddCommand(newRunCommand(flags), newMigrateCommand(flags))
	return rootCmd
}

func (f *rootFlags) options(override func(cfg *config.Config)) (app.Options, error) {
	migrationsFS, err := fs.Sub(applicationMigrationsFS, "resources/migrations")
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		EnvFilePath:    f.envFile,
		ConfigFile:     f.configFile,
		EmbeddedConfig: embeddedConfig,
		MigrationsFS:   migrationsFS,
		DBAdapters:     f.dbAdapters,
		Override:       override,
	}, nil
}

func newRunCommand(flags *rootFlags) *cobra.Command {
	var (
		input       string
		chunkSize   int
		skipLimit   int
		dryRun      bool
		autoMigrate bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the importUserJob once",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(func(cfg *config.Config) {
				b := &cfg.Surfin.Batch
				if cmd.Flags().Changed("input") {
					b.InputResource = input
				}
				if cmd.Flags().Changed("chunk-size") {
					b.ChunkSize = chunkSize
				}
				if cmd.Flags().Changed("skip-limit") {
					b.SkipLimit = skipLimit
				}
				if cmd.Flags().Changed("dry-run") {
					b.DryRun = dryRun
				}
				if cmd.Flags().Changed("auto-migrate") {
					b.AutoMigrate = autoMigrate
				}
			})
			if err != nil {
				return err
			}
			result, err := app.RunImport(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return exitOnFailure(result)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input resource: a path or a file://, gs:// or s3:// URI")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 10, "records per transaction")
	cmd.Flags().IntVar(&skipLimit, "skip-limit", 3, "malformed lines tolerated before the run fails")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and transform without writing")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "apply the embedded migrations before importing")
	return cmd
}

func newMigrateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the embedded schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			opts, err := flags.options(nil)
			if err != nil {
				return err
			}
			result, err := app.RunMigration(cmd.Context(), opts, command)
			if err != nil {
				return err
			}
			return exitOnFailure(result)
		},
	}
}

// exitOnFailure maps a FAILED run to exit code 1.
func exitOnFailure(result *model.JobResult) error {
	logger.Infof("%s finished with status %s in %v.", result.JobName, result.Status, result.Duration())
	if result.Status != model.BatchStatusCompleted {
		logger.Errorf("Failure: %s", result.FailureMessage())
		os.Exit(1)
	}
	return nil
}
