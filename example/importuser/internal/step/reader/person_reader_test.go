package reader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
)

func TestMapPerson(t *testing.T) {
	p, err := MapPerson([]string{"john", "doe"})
	require.NoError(t, err)
	assert.Equal(t, entity.Person{FirstName: "john", LastName: "doe"}, p)

	_, err = MapPerson([]string{"BADLINE"})
	assert.Error(t, err)
	_, err = MapPerson([]string{"a", "b", "c"})
	assert.Error(t, err)
}

func TestNewPersonReader_ReadsConfiguredResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("first;last\njohn;doe\nBADLINE\njane;doe\n"), 0o644))

	cfg := config.NewConfig()
	cfg.Surfin.Batch.InputResource = path
	cfg.Surfin.Batch.Delimiter = ";"
	cfg.Surfin.Batch.LinesToSkip = 1

	r, err := NewPersonReader(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Open(ctx))
	defer r.Close(ctx)

	p, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.Person{FirstName: "john", LastName: "doe"}, p)

	_, err = r.Read(ctx)
	assert.True(t, exception.IsParseError(err))

	p, err = r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane", p.FirstName)

	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
