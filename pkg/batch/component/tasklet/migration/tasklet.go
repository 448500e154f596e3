package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

const taskletName = "migration_tasklet"

// Settings selects what a MigrationTasklet migrates.
type Settings struct {
	// DBRef is the name of the database connection to migrate.
	DBRef string
	// MigrationDir is the directory inside the migration FS. Empty means the database type.
	MigrationDir string
	// Command is "up" (default) or "down".
	Command string
	// Table tracks the migration history. Empty means AppMigrationsTable.
	Table string
}

// MigrationTasklet applies the migrations of an fs.FS to one database connection.
// It forces a reconnect afterwards because golang-migrate closes the pool it was given.
type MigrationTasklet struct {
	cfg              *config.Config
	providers        map[string]database.DBProvider
	migratorProvider MigratorProvider
	migrationFS      fs.FS
	settings         Settings
}

// NewMigrationTasklet creates a new MigrationTasklet.
func NewMigrationTasklet(
	cfg *config.Config,
	providers []database.DBProvider,
	migratorProvider MigratorProvider,
	migrationFS fs.FS,
	settings Settings,
) (*MigrationTasklet, error) {
	if settings.DBRef == "" {
		return nil, exception.NewBatchError(taskletName, "DBRef is required for MigrationTasklet", nil, false, false)
	}
	if migrationFS == nil {
		return nil, exception.NewBatchError(taskletName, "migration FS is required for MigrationTasklet", nil, false, false)
	}
	if settings.Command == "" {
		settings.Command = CommandUp
	}
	if settings.Command != CommandUp && settings.Command != CommandDown {
		return nil, exception.NewBatchError(taskletName, "unknown migration command: "+settings.Command, nil, false, false)
	}
	if settings.Table == "" {
		settings.Table = AppMigrationsTable
	}
	if migratorProvider == nil {
		migratorProvider = NewMigratorProvider()
	}

	providerMap := make(map[string]database.DBProvider, len(providers))
	for _, p := range providers {
		providerMap[p.Type()] = p
	}

	logger.Debugf("MigrationTasklet initialized: DB=%s, Dir=%s, Command=%s, Table=%s", settings.DBRef, settings.MigrationDir, settings.Command, settings.Table)
	return &MigrationTasklet{
		cfg:              cfg,
		providers:        providerMap,
		migratorProvider: migratorProvider,
		migrationFS:      migrationFS,
		settings:         settings,
	}, nil
}

func (t *MigrationTasklet) provider(dbType string) (database.DBProvider, error) {
	provider, ok := t.providers[dbType]
	if !ok && dbType == "redshift" {
		provider, ok = t.providers["postgres"]
	}
	if !ok {
		return nil, exception.NewBatchError(taskletName, "DBProvider for type '"+dbType+"' not found", nil, false, false)
	}
	return provider, nil
}

// Execute runs the configured migration command.
func (t *MigrationTasklet) Execute(ctx context.Context) error {
	dbConfig, err := gormadapter.LookupDatabaseConfig(t.cfg, t.settings.DBRef)
	if err != nil {
		return exception.NewBatchError(taskletName, "failed to resolve database configuration", err, false, false)
	}
	provider, err := t.provider(dbConfig.Type)
	if err != nil {
		return err
	}

	// A fresh connection, in case an earlier run already handed the pool to golang-migrate.
	dbConn, err := provider.ForceReconnect(t.settings.DBRef)
	if err != nil {
		return exception.NewResourceError(t.settings.DBRef, err)
	}

	migrationDir := t.settings.MigrationDir
	if migrationDir == "" {
		migrationDir = dbConn.Type()
		logger.Debugf("Using DB type '%s' as migration directory.", migrationDir)
	}

	logger.Infof("Starting database migration '%s' for DB connection '%s' (directory '%s').", t.settings.Command, t.settings.DBRef, migrationDir)
	migrator := t.migratorProvider.NewMigrator(dbConn)
	defer migrator.Close()

	if t.settings.Command == CommandDown {
		err = migrator.Down(ctx, t.migrationFS, migrationDir, t.settings.Table)
	} else {
		err = migrator.Up(ctx, t.migrationFS, migrationDir, t.settings.Table)
	}
	if err != nil {
		return exception.NewBatchError(taskletName, "Migration '"+t.settings.Command+"' failed", err, false, false)
	}

	if _, err := provider.ForceReconnect(t.settings.DBRef); err != nil {
		return exception.NewBatchError(taskletName, "Failed to force reconnect DB connection after migration", err, false, false)
	}
	return nil
}

// Close implements port.Tasklet. The tasklet holds no resources of its own.
func (t *MigrationTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*MigrationTasklet)(nil)
