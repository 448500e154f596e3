package migration_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/importuser/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/importuser/pkg/batch/core/config"
)

var migrations = fstest.MapFS{
	"sqlite/000001_create_people.up.sql": &fstest.MapFile{
		Data: []byte("CREATE TABLE people (person_id INTEGER PRIMARY KEY AUTOINCREMENT, first_name VARCHAR(20), last_name VARCHAR(20));"),
	},
	"sqlite/000001_create_people.down.sql": &fstest.MapFile{
		Data: []byte("DROP TABLE IF EXISTS people;"),
	},
}

func newSQLiteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Surfin.DatabaseConfigs["default"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "migrate.db"),
	}
	return cfg
}

func tableExists(t *testing.T, provider database.DBProvider, table string) bool {
	t.Helper()
	conn, err := provider.GetConnection("default")
	require.NoError(t, err)
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	var n int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n))
	return n == 1
}

func TestMigrationTasklet_UpThenDown(t *testing.T) {
	cfg := newSQLiteConfig(t)
	provider := sqlite.NewProvider(cfg)
	t.Cleanup(func() { _ = provider.CloseAll() })
	ctx := context.Background()

	up, err := migration.NewMigrationTasklet(cfg, []database.DBProvider{provider}, nil, migrations, migration.Settings{DBRef: "default"})
	require.NoError(t, err)
	require.NoError(t, up.Execute(ctx))
	assert.True(t, tableExists(t, provider, "people"))
	assert.True(t, tableExists(t, provider, migration.AppMigrationsTable))

	// A second run has nothing to apply.
	require.NoError(t, up.Execute(ctx))

	// The connection is usable after the migration closed the old pool.
	conn, err := provider.GetConnection("default")
	require.NoError(t, err)
	require.NoError(t, conn.RefreshConnection(ctx))

	down, err := migration.NewMigrationTasklet(cfg, []database.DBProvider{provider}, migration.NewMigratorProvider(), migrations, migration.Settings{DBRef: "default", Command: migration.CommandDown})
	require.NoError(t, err)
	require.NoError(t, down.Execute(ctx))
	assert.False(t, tableExists(t, provider, "people"))
	assert.NoError(t, down.Close(ctx))
}

func TestMigrationTasklet_MissingDirectory(t *testing.T) {
	cfg := newSQLiteConfig(t)
	provider := sqlite.NewProvider(cfg)
	t.Cleanup(func() { _ = provider.CloseAll() })

	tl, err := migration.NewMigrationTasklet(cfg, []database.DBProvider{provider}, nil, migrations, migration.Settings{DBRef: "default", MigrationDir: "postgres"})
	require.NoError(t, err)
	assert.Error(t, tl.Execute(context.Background()))
}

func TestMigrationTasklet_UnknownProviderAndConfig(t *testing.T) {
	cfg := newSQLiteConfig(t)
	cfg.Surfin.DatabaseConfigs["pg"] = map[string]interface{}{"type": "postgres"}

	tl, err := migration.NewMigrationTasklet(cfg, nil, nil, migrations, migration.Settings{DBRef: "pg"})
	require.NoError(t, err)
	err = tl.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBProvider for type 'postgres' not found")

	tl, err = migration.NewMigrationTasklet(cfg, nil, nil, migrations, migration.Settings{DBRef: "absent"})
	require.NoError(t, err)
	assert.Error(t, tl.Execute(context.Background()))
}

func TestNewMigrationTasklet_Validation(t *testing.T) {
	cfg := config.NewConfig()
	_, err := migration.NewMigrationTasklet(cfg, nil, nil, migrations, migration.Settings{})
	assert.Error(t, err)
	_, err = migration.NewMigrationTasklet(cfg, nil, nil, nil, migration.Settings{DBRef: "default"})
	assert.Error(t, err)
	_, err = migration.NewMigrationTasklet(cfg, nil, nil, migrations, migration.Settings{DBRef: "default", Command: "redo"})
	assert.Error(t, err)
}
