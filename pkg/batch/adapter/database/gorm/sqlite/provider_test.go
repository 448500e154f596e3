package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm/sqlite"
	dbconfig "github.com/tigerroll/importuser/pkg/batch/adapter/database/config"
	"github.com/tigerroll/importuser/pkg/batch/core/config"
)

type personRow struct {
	ID        int64  `gorm:"column:person_id;primaryKey"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (personRow) TableName() string { return "people" }

type missingRow struct {
	ID int64
}

func (missingRow) TableName() string { return "missing_table" }

func newConfig(name string) *config.Config {
	cfg := config.NewConfig()
	cfg.Surfin.DatabaseConfigs["default"] = map[string]interface{}{
		"type":     "sqlite",
		"database": "file:" + name,
		"params":   "mode=memory&cache=shared",
	}
	cfg.Surfin.DatabaseConfigs["other"] = map[string]interface{}{
		"type": "mysql",
	}
	return cfg
}

func TestConnectionString(t *testing.T) {
	assert.Equal(t, "batch.db", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "batch.db"}))
	assert.Equal(t, "file:x?mode=memory", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "file:x", Params: "mode=memory"}))
}

func TestProvider_WritesAndReadsBack(t *testing.T) {
	provider := sqlite.NewProvider(newConfig("providertest"))
	t.Cleanup(func() { _ = provider.CloseAll() })

	conn, err := provider.GetConnection("default")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Type())

	again, err := provider.GetConnection("default")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	_, err = sqlDB.Exec(`CREATE TABLE people (person_id INTEGER PRIMARY KEY AUTOINCREMENT, first_name VARCHAR(20), last_name VARCHAR(20))`)
	require.NoError(t, err)

	ctx := context.Background()
	rows := []personRow{{FirstName: "JOHN", LastName: "DOE"}, {FirstName: "JANE", LastName: "DOE"}}
	affected, err := conn.ExecuteUpdate(ctx, &rows, gormadapter.OperationCreate, "people", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	n, err := conn.Count(ctx, &personRow{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got []personRow
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &got, nil, "person_id", 0))
	require.Len(t, got, 2)
	assert.Equal(t, "JOHN", got[0].FirstName)

	var lastNames []string
	require.NoError(t, conn.Pluck(ctx, &personRow{}, "last_name", &lastNames, nil))
	assert.Equal(t, []string{"DOE"}, lastNames)

	_, err = conn.Count(ctx, &missingRow{}, nil)
	require.Error(t, err)
	assert.True(t, conn.IsTableNotExistError(err))
}

func TestProvider_TypeMismatchAndMissing(t *testing.T) {
	provider := sqlite.NewProvider(newConfig("mismatch"))

	_, err := provider.GetConnection("other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider type mismatch")

	_, err = provider.GetConnection("absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
