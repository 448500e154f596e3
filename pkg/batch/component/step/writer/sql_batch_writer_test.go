package writer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/component/step/writer"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/test"
)

type person struct {
	First string
	Last  string
}

type personRow struct {
	ID        int64  `gorm:"column:person_id;primaryKey"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (personRow) TableName() string { return "people" }

func toRow(p person) personRow {
	return personRow{FirstName: p.First, LastName: p.Last}
}

func newGormWriter(t *testing.T, opts ...writer.SqlBatchOption) (*writer.SqlBatchItemWriter[person, personRow], sqlmock.Sqlmock) {
	t.Helper()
	conn, mock := test.NewSqlmockConnection(t)
	tm := gorm.NewGormTransactionManager(test.NewTestSingleConnectionResolver(conn), "default")
	w, err := writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow, opts...)
	require.NoError(t, err)
	return w, mock
}

func TestSqlBatchItemWriter_OneStatementPerChunk(t *testing.T) {
	w, mock := newGormWriter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people` \\(`first_name`,`last_name`\\) VALUES \\(\\?,\\?\\),\\(\\?,\\?\\),\\(\\?,\\?\\)").
		WithArgs("JOHN", "DOE", "JANE", "DOE", "ALICE", "SMITH").
		WillReturnResult(sqlmock.NewResult(1, 3))
	mock.ExpectCommit()

	err := w.Write(context.Background(), []person{{"JOHN", "DOE"}, {"JANE", "DOE"}, {"ALICE", "SMITH"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlBatchItemWriter_RollsBackOnFailure(t *testing.T) {
	w, mock := newGormWriter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people`").WillReturnError(errors.New("value too long for column first_name"))
	mock.ExpectRollback()

	err := w.Write(context.Background(), []person{{strings.Repeat("A", 300), "DOE"}, {"JANE", "DOE"}})
	require.Error(t, err)

	var we *exception.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "people", we.Table)
	assert.Equal(t, 2, we.Count)
	assert.Contains(t, err.Error(), "value too long")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlBatchItemWriter_SplitsStatementsInOneTransaction(t *testing.T) {
	w, mock := newGormWriter(t, writer.WithMaxRowsPerStatement(2))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `people`").WithArgs("A", "A", "B", "B").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO `people`").WithArgs("C", "C").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	require.NoError(t, w.Write(context.Background(), []person{{"A", "A"}, {"B", "B"}, {"C", "C"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlBatchItemWriter_EmptyChunkIsNoop(t *testing.T) {
	tm := &test.MockTxManager{}
	w, err := writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow)
	require.NoError(t, err)

	require.NoError(t, w.Write(context.Background(), nil))
	tm.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
}

func TestSqlBatchItemWriter_BeginFailure(t *testing.T) {
	tm := &test.MockTxManager{}
	tm.On("Begin", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	w, err := writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow)
	require.NoError(t, err)

	err = w.Write(context.Background(), []person{{"A", "B"}})
	assert.True(t, exception.IsWriteError(err))
	assert.ErrorContains(t, err, "connection refused")
	tm.AssertExpectations(t)
}

func TestSqlBatchItemWriter_CommitFailureEndsTransaction(t *testing.T) {
	txn := &test.MockTx{}
	txn.On("ExecuteUpdate", mock.Anything, mock.Anything, "CREATE", "people", mock.Anything).Return(int64(1), nil)

	tm := &test.MockTxManager{}
	tm.On("Begin", mock.Anything, mock.Anything).Return(txn, nil)
	tm.On("Commit", txn).Return(errors.New("serialization failure"))

	w, err := writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow)
	require.NoError(t, err)

	err = w.Write(context.Background(), []person{{"A", "B"}})
	assert.True(t, exception.IsWriteError(err))
	assert.ErrorContains(t, err, "serialization failure")
	tm.AssertExpectations(t)
	tm.AssertNotCalled(t, "Rollback", mock.Anything)
	txn.AssertExpectations(t)
}

func TestSqlBatchItemWriter_CommitFailureOverSql(t *testing.T) {
	w, sqlMock := newGormWriter(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec("INSERT INTO `people`").WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))

	err := w.Write(context.Background(), []person{{"A", "B"}})
	require.Error(t, err)
	assert.True(t, exception.IsWriteError(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestSqlBatchItemWriter_UpsertUpdatesConflictingRows(t *testing.T) {
	w, sqlMock := newGormWriter(t, writer.WithUpsert([]string{"person_id"}, []string{"first_name", "last_name"}))

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec("INSERT INTO `people` \\(`first_name`,`last_name`\\) VALUES \\(\\?,\\?\\),\\(\\?,\\?\\) " +
		"ON DUPLICATE KEY UPDATE `first_name`=VALUES\\(`first_name`\\),`last_name`=VALUES\\(`last_name`\\)").
		WithArgs("JOHN", "DOE", "JANE", "DOE").
		WillReturnResult(sqlmock.NewResult(1, 2))
	sqlMock.ExpectCommit()

	require.NoError(t, w.Write(context.Background(), []person{{"JOHN", "DOE"}, {"JANE", "DOE"}}))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestSqlBatchItemWriter_UpsertSharesChunkTransaction(t *testing.T) {
	txn := &test.MockTx{}
	conflict := []string{"person_id"}
	txn.On("ExecuteUpsert", mock.Anything, mock.Anything, "people", conflict, []string(nil)).Return(int64(1), nil).Twice()

	tm := &test.MockTxManager{}
	tm.On("Begin", mock.Anything, mock.Anything).Return(txn, nil).Once()
	tm.On("Commit", txn).Return(nil).Once()

	w, err := writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow,
		writer.WithUpsert(conflict, nil), writer.WithMaxRowsPerStatement(1))
	require.NoError(t, err)

	require.NoError(t, w.Write(context.Background(), []person{{"A", "A"}, {"B", "B"}}))
	tm.AssertExpectations(t)
	txn.AssertExpectations(t)
	txn.AssertNotCalled(t, "ExecuteUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSqlBatchItemWriter_UpsertFailureRollsBack(t *testing.T) {
	w, sqlMock := newGormWriter(t, writer.WithUpsert([]string{"person_id"}, []string{"last_name"}))

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec("INSERT INTO `people`.*ON DUPLICATE KEY UPDATE").WillReturnError(errors.New("lock wait timeout"))
	sqlMock.ExpectRollback()

	err := w.Write(context.Background(), []person{{"A", "B"}})
	var we *exception.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, 1, we.Count)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestNewSqlBatchItemWriter_Validation(t *testing.T) {
	tm := &test.MockTxManager{}
	_, err := writer.NewSqlBatchItemWriter[person, personRow](nil, "people", toRow)
	assert.Error(t, err)
	_, err = writer.NewSqlBatchItemWriter[person, personRow](tm, "", toRow)
	assert.Error(t, err)
	_, err = writer.NewSqlBatchItemWriter[person, personRow](tm, "people", nil)
	assert.Error(t, err)
	_, err = writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow, writer.WithMaxRowsPerStatement(-1))
	assert.Error(t, err)
	_, err = writer.NewSqlBatchItemWriter[person, personRow](tm, "people", toRow, writer.WithUpsert(nil, []string{"last_name"}))
	assert.Error(t, err)
}
