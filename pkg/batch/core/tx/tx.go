// Package tx provides an abstraction for transaction management, so that each chunk's
// writes are committed or rolled back as one unit regardless of the database backend.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor defines the write operations executable within a transaction.
type TxExecutor interface {
	// ExecuteUpdate performs database write operations (INSERT, UPDATE, DELETE) on the specified model.
	//
	// model: A struct pointer or slice holding the rows.
	// operation: "CREATE", "UPDATE" or "DELETE".
	// tableName: The target table. Empty lets the model decide.
	// query: AND-combined column conditions for UPDATE or DELETE.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert performs an INSERT ... ON CONFLICT within the transaction.
	// An empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit persists all changes made within tx.
	Commit(tx Tx) error
	// Rollback undoes all changes made within tx.
	Rollback(tx Tx) error
}
