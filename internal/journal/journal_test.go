package journal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notmyname/logflow/internal/model"
)

func readAll(t *testing.T, path string) []Entry {
	t.Helper()
	var out []Entry
	require.NoError(t, Replay(path, func(e Entry) error {
		out = append(out, e)
		return nil
	}))
	return out
}

func TestRejectAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects", "rejects.jsonl")

	j, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, j.Reject(model.IngestEnvelope{Source: "proxy.log", LineNo: 3, Line: "garbage"}, model.SkipUnrecognized))
	require.NoError(t, j.Reject(model.IngestEnvelope{Source: "proxy.log", LineNo: 9, Line: "x: y"}, model.SkipMalformed))
	assert.Equal(t, uint64(2), j.Count())
	require.NoError(t, j.Close())

	got := readAll(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, Entry{Seq: 1, Source: "proxy.log", LineNo: 3, Reason: model.SkipUnrecognized, Line: "garbage"}, got[0])
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, model.SkipMalformed, got[1].Reason)
}

func TestOpenTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"seq":1,"reason":"old","line":"old"}`+"\n"), 0o644))

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Append(Entry{Reason: model.SkipBadNumber, Line: "new"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	got := readAll(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Line)
}

func TestReplayIgnoresPartialTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.jsonl")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Append(Entry{Reason: model.SkipMalformed, Line: "ok"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":2,"reason":"malf`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got := readAll(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Line)
}

func TestConcurrentRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	j, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = j.Reject(model.IngestEnvelope{Line: "bad"}, model.SkipMalformed)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, j.Close())

	got := readAll(t, path)
	require.Len(t, got, 200)
	seen := make(map[uint64]bool)
	for _, e := range got {
		assert.False(t, seen[e.Seq], "duplicate seq %d", e.Seq)
		seen[e.Seq] = true
	}
}

func TestAppendAfterClose(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "rejects.jsonl"))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Append(Entry{Line: "late"})
	assert.Error(t, err)
	assert.NoError(t, j.Flush())
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

var _ model.RejectSink = (*Journal)(nil)
