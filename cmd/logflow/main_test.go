package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notmyname/logflow/internal/duckdb"
	"github.com/notmyname/logflow/internal/journal"
	"github.com/notmyname/logflow/internal/report"
)

func accessLine(i int, start, end float64) string {
	return fmt.Sprintf("Mar  3 18:30:01 px1 proxy-server: 1.2.3.4 10.0.0.1 03/Mar/2020/18/30/01 GET /v1/AUTH_test/c/o%d HTTP/1.0 200 - curl tk123 - 1024 - tx%d - %.4f - - %.6f %.6f 0",
		i, i, end-start, start, end)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunWithoutInputPrintsUsage(t *testing.T) {
	isolateHome(t)

	code, stdout, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Usage: logflow")
	assert.Contains(t, stderr, "--resolution")
}

func TestRunUnknownFlag(t *testing.T) {
	isolateHome(t)

	code, _, stderr := runCLI(t, "--no-such-flag", "a.log")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "no-such-flag")
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Version:    dev")
}

func TestRunMissingFile(t *testing.T) {
	isolateHome(t)

	code, _, stderr := runCLI(t, "--log-level", "error", "-o", t.TempDir(), filepath.Join(t.TempDir(), "missing.log"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "missing.log")
}

func TestRunEndToEnd(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "proxy.log")
	content := strings.Join([]string{
		accessLine(1, 100.2, 101.5),
		accessLine(2, 101.1, 102.3),
		"not a log line",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))

	outDir := filepath.Join(dir, "out")
	rejects := filepath.Join(dir, "rejects.jsonl")
	dbPath := filepath.Join(dir, "runs.duckdb")

	code, stdout, stderr := runCLI(t,
		"--log-level", "error",
		"--out-dir", outDir,
		"--rejects-file", rejects,
		"--duckdb", dbPath,
		"--verbose",
		input,
	)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Peak concurrency")
	assert.Contains(t, stdout, "unrecognized")

	series, err := os.ReadFile(filepath.Join(outDir, report.SeriesFile))
	require.NoError(t, err)
	assert.Contains(t, string(series), "Client Requests,100,1\nClient Requests,101,2\nClient Requests,102,1\n")

	_, err = os.Stat(filepath.Join(outDir, "report.json"))
	require.NoError(t, err)

	var reasons []string
	require.NoError(t, journal.Replay(rejects, func(e journal.Entry) error {
		reasons = append(reasons, string(e.Reason))
		return nil
	}))
	assert.Equal(t, []string{"unrecognized"}, reasons)

	store, err := duckdb.NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(3), runs[0].Lines)
}

func TestRunGraph(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "storage.log")
	content := strings.Join([]string{
		`Mar  3 18:30:01 ss1 object-server: 10.0.0.1 - - [03/Mar/2020:18:30:01 +0000] "PUT /sda1/123/AUTH_test/c/o" 201 - "PUT http://localhost:8080/v1/AUTH_test/c/o" "tx8a9b-005e5e" "proxy-server 1234" 0.0123 "-" 4242 0`,
		`Mar  3 18:30:02 ss1 swift: 10.0.0.2 - - [03/Mar/2020:18:30:02 +0000] "PUT /sda1/7/.misplaced_objects/c" 201 - "-" "tx9" "container-reconciler 77" 0.0200 "-" 4300`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))

	outDir := filepath.Join(dir, "out")
	code, _, stderr := runCLI(t, "--log-level", "error", "--graph", "-o", outDir, input)
	require.Equal(t, exitOK, code, stderr)

	dot, err := os.ReadFile(filepath.Join(outDir, report.FlowFile))
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"proxy-server 1234" -> "object-server 4242"`)
	assert.Contains(t, string(dot), `"container-reconciler 77" -> "container-reconciler 4300"`)
	assert.NotContains(t, string(dot), "tx8a9b")
}
