// Package database provides the database connection abstractions used by the writer, the
// migrator and the completion reporter.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/importuser/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/importuser/pkg/batch/core/adapter"
)

// DBExecutor defines the write operations shared by connections and transactions.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation on the given model.
	// operation is "CREATE", "UPDATE" or "DELETE". query holds AND-combined column conditions
	// for UPDATE and DELETE.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert performs an INSERT ... ON CONFLICT on the given model.
	// An empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// ExecuteQuery executes a SELECT outside of a managed transaction.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced executes a SELECT with optional ordering and limit. A zero limit fetches all rows.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	// Count counts the records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
	// Pluck retrieves the distinct values of one column into target.
	Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the pool.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB, for the migrator.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a named database connection.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection returns a valid connection, reconnecting if its ping fails.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider provides the connections of one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres", "mysql").
	Type() string
}

// DBProviderGroup is the Fx group name collecting all DBProvider implementations.
const DBProviderGroup = "db_providers"
