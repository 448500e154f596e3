package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

var migrationsFS = fstest.MapFS{
	"sqlite/000001_create_people.up.sql": {Data: []byte(
		"CREATE TABLE IF NOT EXISTS people (person_id INTEGER PRIMARY KEY AUTOINCREMENT, first_name VARCHAR(20), last_name VARCHAR(20));")},
	"sqlite/000001_create_people.down.sql": {Data: []byte("DROP TABLE IF EXISTS people;")},
}

// syncBuffer guards the captured log output; the import step logs from its own goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLog(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := logger.SetOutput(buf)
	prevLevel := logger.Level().String()
	t.Cleanup(func() {
		logger.SetOutput(prev)
		logger.SetLogLevel(prevLevel)
	})
	return buf
}

type fixture struct {
	opts   Options
	dbPath string
}

func newFixture(t *testing.T, input string) fixture {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))
	dbPath := filepath.Join(dir, "people.db")

	yaml := fmt.Sprintf(`
surfin:
  system:
    logging:
      level: INFO
  batch:
    input_resource: %q
  database:
    default:
      type: sqlite
      database: %q
`, inputPath, dbPath)

	return fixture{
		opts: Options{
			EmbeddedConfig: []byte(yaml),
			MigrationsFS:   migrationsFS,
			DBAdapters:     "sqlite",
		},
		dbPath: dbPath,
	}
}

func (f fixture) people(t *testing.T) []string {
	t.Helper()
	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT first_name, last_name FROM people ORDER BY person_id")
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var first, last string
		require.NoError(t, rows.Scan(&first, &last))
		out = append(out, first+" "+last)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestRunImport_SkipsMalformedLineAndReports(t *testing.T) {
	logs := captureLog(t)
	f := newFixture(t, "john,doe\njane,doe\nBADLINE\nalice,smith\n")

	result, err := RunImport(context.Background(), f.opts)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.BatchStatusCompleted, result.Status)
	assert.Equal(t, 3, result.WriteCount)
	assert.Equal(t, 1, result.SkipCount)
	assert.Equal(t, []string{"JOHN DOE", "JANE DOE", "ALICE SMITH"}, f.people(t))

	out := logs.String()
	assert.Contains(t, out, "JOB FINISHED!")
	assert.Contains(t, out, "Found <firstName: JOHN, lastName: DOE> in the database.")
	assert.Contains(t, out, "Found <firstName: JANE, lastName: DOE> in the database.")
	assert.Contains(t, out, "Found <firstName: ALICE, lastName: SMITH> in the database.")
}

func TestRunImport_FailsWhenSkipLimitExceeded(t *testing.T) {
	logs := captureLog(t)
	f := newFixture(t, "BAD1\nBAD2\nBAD3\nBAD4\njohn,doe\n")

	result, err := RunImport(context.Background(), f.opts)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	assert.True(t, exception.IsParseError(result.Failure))
	assert.Empty(t, f.people(t))
	assert.NotContains(t, logs.String(), "JOB FINISHED!")
}

func TestRunImport_FlushesFixedSizeChunks(t *testing.T) {
	captureLog(t)
	f := newFixture(t, "a,a\nb,b\nc,c\nd,d\ne,e\n")
	f.opts.Override = func(cfg *config.Config) { cfg.Surfin.Batch.ChunkSize = 2 }

	result, err := RunImport(context.Background(), f.opts)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusCompleted, result.Status)
	assert.Equal(t, []int{2, 2, 1}, result.FlushSizes)
	assert.Len(t, f.people(t), 5)
}

func TestRunImport_DryRunWritesNothing(t *testing.T) {
	captureLog(t)
	f := newFixture(t, "john,doe\njane,doe\n")
	f.opts.Override = func(cfg *config.Config) { cfg.Surfin.Batch.DryRun = true }

	result, err := RunImport(context.Background(), f.opts)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusCompleted, result.Status)
	assert.Equal(t, 2, result.WriteCount)
	assert.Empty(t, f.people(t))
}

func TestRunImport_MissingInputFails(t *testing.T) {
	captureLog(t)
	f := newFixture(t, "")
	f.opts.Override = func(cfg *config.Config) {
		cfg.Surfin.Batch.InputResource = filepath.Join(t.TempDir(), "missing.csv")
	}

	result, err := RunImport(context.Background(), f.opts)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusFailed, result.Status)
	var re *exception.ResourceError
	assert.ErrorAs(t, result.Failure, &re)
}

func TestRunImport_InvalidConfiguration(t *testing.T) {
	captureLog(t)
	f := newFixture(t, "john,doe\n")
	f.opts.Override = func(cfg *config.Config) { cfg.Surfin.Batch.ChunkSize = 0 }

	result, err := RunImport(context.Background(), f.opts)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestRunMigration_UpAndDown(t *testing.T) {
	captureLog(t)
	f := newFixture(t, "")

	result, err := RunMigration(context.Background(), f.opts, "up")
	require.NoError(t, err)
	require.Equal(t, model.BatchStatusCompleted, result.Status, result.FailureMessage())
	assert.Empty(t, f.people(t))

	result, err = RunMigration(context.Background(), f.opts, "down")
	require.NoError(t, err)
	require.Equal(t, model.BatchStatusCompleted, result.Status, result.FailureMessage())

	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Query("SELECT 1 FROM people")
	assert.Error(t, err)
}

func TestDBProviderOptions(t *testing.T) {
	assert.Len(t, DBProviderOptions(""), 3)
	assert.Len(t, DBProviderOptions("sqlite"), 1)
	assert.Len(t, DBProviderOptions("postgres, redshift"), 1)
	assert.Len(t, DBProviderOptions("sqlite,unknown"), 1)
}
