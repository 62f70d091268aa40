package logsource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notmyname/logflow/internal/objstore"
)

const sample = "Mar  3 18:30:01 px1 proxy-server: one\nMar  3 18:30:02 px1 proxy-server: two\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestFileSource_Plain(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "proxy.log", []byte(sample))
	src, err := NewFileSource(context.Background(), path, smallBuffers)
	require.NoError(t, err)

	got := drain(t, src)
	require.Len(t, got, 2)
	assert.Equal(t, "Mar  3 18:30:02 px1 proxy-server: two", got[1].Line)
	assert.Equal(t, path, got[0].Source)
	assert.Equal(t, int64(2), got[1].LineNo)
	assert.Equal(t, "file", src.Name())
	assert.Equal(t, path, src.Path())
	assert.NoError(t, src.Err())
}

func TestFileSource_Gzip(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "proxy.log.gz", gzipped(t, sample))
	src, err := NewFileSource(context.Background(), path, smallBuffers)
	require.NoError(t, err)

	got := drain(t, src)
	require.Len(t, got, 2)
	assert.Equal(t, "Mar  3 18:30:01 px1 proxy-server: one", got[0].Line)
	assert.NoError(t, src.Err())
}

func TestFileSource_CorruptGzip(t *testing.T) {
	t.Parallel()

	data := gzipped(t, sample)
	path := writeFile(t, "bad.gz", data[:len(data)/2])
	src, err := NewFileSource(context.Background(), path, smallBuffers)
	require.NoError(t, err)

	drain(t, src)
	assert.Error(t, src.Err())
}

func TestFileSource_Empty(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "empty.log", nil)
	src, err := NewFileSource(context.Background(), path, smallBuffers)
	require.NoError(t, err)

	assert.Empty(t, drain(t, src))
	assert.NoError(t, src.Err())
}

func TestFileSource_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(context.Background(), filepath.Join(t.TempDir(), "nope.log"), smallBuffers)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFileSource_Directory(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(context.Background(), t.TempDir(), smallBuffers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ", smallBuffers, objstore.S3Config{})
	assert.ErrorIs(t, err, ErrNoInput)

	path := writeFile(t, "x.log", []byte(sample))
	src, err := Open(context.Background(), path, smallBuffers, objstore.S3Config{})
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())
	assert.Len(t, drain(t, src), 2)

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing"), smallBuffers, objstore.S3Config{})
	assert.Error(t, err)

	// No credentials: fails before any network access.
	_, err = Open(context.Background(), "s3://bucket/key", smallBuffers, objstore.S3Config{})
	assert.Error(t, err)
}

func TestOpenAll(t *testing.T) {
	t.Parallel()

	_, err := OpenAll(context.Background(), nil, smallBuffers, objstore.S3Config{})
	assert.ErrorIs(t, err, ErrNoInput)

	plain := writeFile(t, "a.log", []byte(sample))
	packed := writeFile(t, "b.log.gz", gzipped(t, sample))

	src, err := OpenAll(context.Background(), []string{plain, packed}, smallBuffers, objstore.S3Config{})
	require.NoError(t, err)
	assert.Equal(t, "multi", src.Name())
	assert.Len(t, drain(t, src), 4)
	assert.NoError(t, src.Err())

	_, err = OpenAll(context.Background(), []string{plain, filepath.Join(t.TempDir(), "missing")}, smallBuffers, objstore.S3Config{})
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
