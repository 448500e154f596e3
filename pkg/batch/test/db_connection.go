package test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	gormio "gorm.io/gorm"

	dbadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/importuser/pkg/batch/adapter/database/config"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	coreadapter "github.com/tigerroll/importuser/pkg/batch/core/adapter"
)

// singleConnectionResolver answers every name with the same connection.
type singleConnectionResolver struct {
	conn dbadapter.DBConnection
}

func (r *singleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	return r.conn, nil
}

func (r *singleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	return r.conn, nil
}

// NewTestSingleConnectionResolver returns a resolver that answers every name with conn.
func NewTestSingleConnectionResolver(conn dbadapter.DBConnection) dbadapter.DBConnectionResolver {
	return &singleConnectionResolver{conn: conn}
}

// NewSqlmockConnection opens a GORM connection over go-sqlmock with the MySQL dialector,
// so tests can assert the exact statements sent to the database.
func NewSqlmockConnection(t *testing.T) (*gorm.GormDBAdapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gormio.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gormio.Config{
		Logger: gorm.NewGormLogger("SILENT"),
	})
	require.NoError(t, err)

	conn, err := gorm.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "default")
	require.NoError(t, err)
	return conn, mock
}

var _ dbadapter.DBConnectionResolver = (*singleConnectionResolver)(nil)
