package local_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/importuser/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/importuser/pkg/batch/core/config"
)

func newAdapter(t *testing.T) (*local.Adapter, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	a, err := local.NewAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: dir}, "test")
	require.NoError(t, err)
	return a, dir
}

func TestAdapter_UploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	a, dir := newAdapter(t)

	require.NoError(t, a.Upload(ctx, "reports", "people/part-0.parquet", bytes.NewBufferString("payload"), "application/octet-stream"))
	_, err := os.Stat(filepath.Join(dir, "reports", "people", "part-0.parquet"))
	require.NoError(t, err)

	rc, err := a.Download(ctx, "reports", "people/part-0.parquet")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, a.DeleteObject(ctx, "reports", "people/part-0.parquet"))
	require.NoError(t, a.DeleteObject(ctx, "reports", "people/part-0.parquet"), "deleting a missing object is not an error")

	_, err = a.Download(ctx, "reports", "people/part-0.parquet")
	assert.Error(t, err)
}

func TestAdapter_ListObjects(t *testing.T) {
	ctx := context.Background()
	a, _ := newAdapter(t)
	for _, name := range []string{"in/a.csv", "in/b.csv", "out/c.parquet"} {
		require.NoError(t, a.Upload(ctx, "", name, bytes.NewBufferString("x"), "text/plain"))
	}

	var names []string
	require.NoError(t, a.ListObjects(ctx, "", "in/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	sort.Strings(names)
	assert.Equal(t, []string{"in/a.csv", "in/b.csv"}, names)
}

func TestAdapter_RejectsPathEscape(t *testing.T) {
	a, _ := newAdapter(t)
	_, err := a.Download(context.Background(), "", "../outside.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of base_dir")
}

func TestNewAdapter_Validation(t *testing.T) {
	_, err := local.NewAdapter(storageConfig.StorageConfig{Type: "local"}, "empty")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: file}, "file")
	assert.Error(t, err)
}

func TestProvider_ResolvedThroughResolver(t *testing.T) {
	cfg := coreConfig.NewConfig()
	cfg.Surfin.StorageConfigs["reports"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir()}
	cfg.Surfin.StorageConfigs["remote"] = map[string]interface{}{"type": "s3", "bucket_name": "b"}

	resolver := storage.NewConnectionResolverFor(cfg, local.NewProvider(cfg))

	conn, err := resolver.ResolveStorageConnection(context.Background(), "reports")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())
	assert.Equal(t, "reports", conn.Name())

	again, err := resolver.ResolveStorageConnection(context.Background(), "reports")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = resolver.ResolveStorageConnection(context.Background(), "remote")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")

	_, err = resolver.ResolveStorageConnection(context.Background(), "missing")
	assert.Error(t, err)

	assert.NoError(t, resolver.CloseAll())
}
