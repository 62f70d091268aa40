package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (u *recordingUploader) UploadFile(_ context.Context, _ string, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.keys = append(u.keys, key)
	return nil
}

func writeArtifacts(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var out []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		out = append(out, p)
	}
	return out
}

func TestNewDisabled(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{BucketURL: "https://bucket/prefix"})
	assert.Error(t, err)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{BucketURL: "s3://bucket/prefix"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access key")
}

func TestPublishUploadsUnderRunPrefix(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	p := NewWithUploader(up, "/reports/swift/")
	files := writeArtifacts(t, "series.csv", "report.json")

	keys, err := p.Publish(context.Background(), "run-1", files)
	require.NoError(t, err)
	want := []string{"reports/swift/run-1/series.csv", "reports/swift/run-1/report.json"}
	assert.Equal(t, want, keys)
	assert.Equal(t, want, up.keys)
}

func TestPublishNoPrefix(t *testing.T) {
	t.Parallel()

	p := NewWithUploader(&recordingUploader{}, "")
	assert.Equal(t, "run-1/flow.dot", p.ObjectKey("run-1", "/tmp/out/flow.dot"))
}

func TestPublishStopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("denied")
	p := NewWithUploader(&recordingUploader{err: boom}, "x")
	keys, err := p.Publish(context.Background(), "run-1", writeArtifacts(t, "a.csv", "b.csv"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, keys)
}

func TestPublishMissingFile(t *testing.T) {
	t.Parallel()

	p := NewWithUploader(&recordingUploader{}, "x")
	_, err := p.Publish(context.Background(), "run-1", []string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = p.Publish(context.Background(), "run-1", []string{t.TempDir()})
	assert.Error(t, err)
}

func TestPublishCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	up := &recordingUploader{}
	p := NewWithUploader(up, "x")
	_, err := p.Publish(ctx, "run-1", writeArtifacts(t, "a.csv"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, up.keys)
}

func TestPublishEmptyRunID(t *testing.T) {
	t.Parallel()

	p := NewWithUploader(&recordingUploader{}, "x")
	_, err := p.Publish(context.Background(), " ", nil)
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"series.csv":     "text/csv",
		"report.JSON":    "application/json",
		"flow.dot":       "text/vnd.graphviz",
		"rejects.jsonl":  "application/x-ndjson",
		"logflow.duckdb": "application/octet-stream",
		"unknown.bin":    "application/octet-stream",
		"latency.txt":    "text/plain; charset=utf-8",
		"report.yaml":    "application/yaml",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}
