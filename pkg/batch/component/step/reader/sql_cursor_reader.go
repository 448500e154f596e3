package reader

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// RowMapper maps the current row of a result set to an item.
type RowMapper[T any] func(*sql.Rows) (T, error)

// SqlCursorReader is an ItemReader that iterates over the result set of one query.
// Open executes the query, so every Open starts again from the first row.
type SqlCursorReader[T any] struct {
	db        *sql.DB
	name      string
	query     string
	args      []any
	mapper    RowMapper[T]
	rows      *sql.Rows
	readCount int
}

var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)

// NewSqlCursorReader creates a SqlCursorReader.
func NewSqlCursorReader[T any](db *sql.DB, name string, query string, args []any, mapper RowMapper[T]) *SqlCursorReader[T] {
	return &SqlCursorReader[T]{
		db:     db,
		name:   name,
		query:  query,
		args:   args,
		mapper: mapper,
	}
}

// Open executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	if r.rows != nil {
		r.Close(ctx)
	}
	logger.Debugf("SqlCursorReader '%s': executing %s", r.name, r.query)
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to execute query for SqlCursorReader '%s'", r.name), err, false, false)
	}
	r.rows = rows
	r.readCount = 0
	return nil
}

// Read maps the next row. It returns io.EOF after the last row.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("SqlCursorReader '%s': reader not opened", r.name), nil, false, false)
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.NewBatchError("reader", fmt.Sprintf("error during row iteration for SqlCursorReader '%s'", r.name), err, false, false)
		}
		return item, io.EOF
	}
	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewBatchError("reader", fmt.Sprintf("failed to map row for SqlCursorReader '%s'", r.name), err, false, false)
	}
	r.readCount++
	return mapped, nil
}

// ReadCount returns the rows read since the last Open.
func (r *SqlCursorReader[T]) ReadCount() int {
	return r.readCount
}

// Close releases the cursor.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("failed to close rows for SqlCursorReader '%s'", r.name), err, false, false)
	}
	return nil
}

// ReadAll opens reader, drains it and closes it.
func ReadAll[T any](ctx context.Context, reader port.ItemReader[T]) (items []T, err error) {
	if err := reader.Open(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		item, err := reader.Read(ctx)
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}
