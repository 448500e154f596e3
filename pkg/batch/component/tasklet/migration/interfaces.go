package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
)

// AppMigrationsTable tracks the applied application migrations.
const AppMigrationsTable = "batch_app_migrations"

const (
	CommandUp   = "up"
	CommandDown = "down"
)

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations.
	// tableName: The name of the table used to track migration history.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Close releases resources used by the migrator.
	Close() error
}

// MigratorProvider is a factory for creating Migrator instances.
type MigratorProvider interface {
	NewMigrator(dbConn database.DBConnection) Migrator
}
