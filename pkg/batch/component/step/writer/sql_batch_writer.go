// Package writer provides ItemWriter implementations that persist chunks to a database
// and export rows to object storage.
package writer

import (
	"context"
	"fmt"

	"github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/core/tx"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// operationCreate is the TxExecutor operation for inserts.
const operationCreate = "CREATE"

// RowMapper maps an item to its row model.
type RowMapper[T, R any] func(T) R

// SqlBatchItemWriter inserts each chunk with a multi-row parameterized INSERT inside its
// own transaction. A chunk is either fully committed or fully rolled back.
type SqlBatchItemWriter[T, R any] struct {
	name                string
	txManager           tx.TransactionManager
	tableName           string
	mapper              RowMapper[T, R]
	maxRowsPerStatement int
	upsert              *upsertSettings
}

// upsertSettings turns the INSERT into INSERT ... ON CONFLICT.
type upsertSettings struct {
	conflictColumns []string
	updateColumns   []string
}

// SqlBatchOption configures a SqlBatchItemWriter.
type SqlBatchOption func(*sqlBatchSettings)

type sqlBatchSettings struct {
	name                string
	maxRowsPerStatement int
	upsert              *upsertSettings
}

// WithWriterName sets the name used in logs.
func WithWriterName(name string) SqlBatchOption {
	return func(s *sqlBatchSettings) { s.name = name }
}

// WithMaxRowsPerStatement splits a chunk into INSERT statements of at most n rows.
// The statements still share the chunk's transaction. Zero means one statement per chunk.
func WithMaxRowsPerStatement(n int) SqlBatchOption {
	return func(s *sqlBatchSettings) { s.maxRowsPerStatement = n }
}

// WithUpsert writes every chunk as INSERT ... ON CONFLICT (conflictColumns). Rows that
// conflict get updateColumns overwritten; an empty updateColumns leaves them unchanged.
func WithUpsert(conflictColumns, updateColumns []string) SqlBatchOption {
	return func(s *sqlBatchSettings) {
		s.upsert = &upsertSettings{
			conflictColumns: append([]string(nil), conflictColumns...),
			updateColumns:   append([]string(nil), updateColumns...),
		}
	}
}

// NewSqlBatchItemWriter creates a writer inserting into tableName.
func NewSqlBatchItemWriter[T, R any](txManager tx.TransactionManager, tableName string, mapper RowMapper[T, R], opts ...SqlBatchOption) (*SqlBatchItemWriter[T, R], error) {
	if txManager == nil {
		return nil, exception.NewBatchError("writer", "SqlBatchItemWriter requires a TransactionManager", nil, false, false)
	}
	if tableName == "" {
		return nil, exception.NewBatchError("writer", "SqlBatchItemWriter requires a table name", nil, false, false)
	}
	if mapper == nil {
		return nil, exception.NewBatchError("writer", "SqlBatchItemWriter requires a RowMapper", nil, false, false)
	}
	s := sqlBatchSettings{name: "sqlBatchItemWriter"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxRowsPerStatement < 0 {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("max rows per statement must not be negative, got %d", s.maxRowsPerStatement), nil, false, false)
	}
	if s.upsert != nil && len(s.upsert.conflictColumns) == 0 {
		return nil, exception.NewBatchError("writer", "upsert requires at least one conflict column", nil, false, false)
	}
	return &SqlBatchItemWriter[T, R]{
		name:                s.name,
		txManager:           txManager,
		tableName:           tableName,
		mapper:              mapper,
		maxRowsPerStatement: s.maxRowsPerStatement,
		upsert:              s.upsert,
	}, nil
}

// TableName returns the target table.
func (w *SqlBatchItemWriter[T, R]) TableName() string {
	return w.tableName
}

// Write persists items atomically. On failure the transaction is rolled back and a
// *exception.WriteError is returned. An empty chunk is a no-op.
func (w *SqlBatchItemWriter[T, R]) Write(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]R, len(items))
	for i, item := range items {
		rows[i] = w.mapper(item)
	}

	t, err := w.txManager.Begin(ctx)
	if err != nil {
		return exception.NewWriteError(w.tableName, len(items), fmt.Errorf("failed to begin transaction: %w", err))
	}

	step := w.maxRowsPerStatement
	if step == 0 {
		step = len(rows)
	}
	for start := 0; start < len(rows); start += step {
		end := start + step
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		if err := w.execute(ctx, t, &batch); err != nil {
			w.rollback(t)
			return exception.NewWriteError(w.tableName, len(items), err)
		}
	}

	// A failed commit has already ended the transaction.
	if err := w.txManager.Commit(t); err != nil {
		return exception.NewWriteError(w.tableName, len(items), fmt.Errorf("failed to commit transaction: %w", err))
	}
	logger.Debugf("%s: inserted %d rows into %s.", w.name, len(items), w.tableName)
	return nil
}

func (w *SqlBatchItemWriter[T, R]) execute(ctx context.Context, t tx.Tx, batch *[]R) error {
	if w.upsert != nil {
		_, err := t.ExecuteUpsert(ctx, batch, w.tableName, w.upsert.conflictColumns, w.upsert.updateColumns)
		return err
	}
	_, err := t.ExecuteUpdate(ctx, batch, operationCreate, w.tableName, nil)
	return err
}

func (w *SqlBatchItemWriter[T, R]) rollback(t tx.Tx) {
	if err := w.txManager.Rollback(t); err != nil {
		logger.Errorf("%s: failed to roll back transaction on %s: %v", w.name, w.tableName, err)
	}
}

var _ port.ItemWriter[any] = (*SqlBatchItemWriter[any, any])(nil)
