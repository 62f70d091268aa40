package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notmyname/logflow/internal/aggregate"
	"github.com/notmyname/logflow/internal/model"
)

type sliceSource struct {
	lines   chan model.IngestEnvelope
	stopped atomic.Bool
	err     error
}

func newSliceSource(lines []string) *sliceSource {
	ch := make(chan model.IngestEnvelope, len(lines))
	for i, l := range lines {
		ch <- model.IngestEnvelope{Source: "test.log", LineNo: int64(i + 1), Line: l}
	}
	close(ch)
	return &sliceSource{lines: ch}
}

func (s *sliceSource) Lines() <-chan model.IngestEnvelope { return s.lines }
func (s *sliceSource) Stop()                              { s.stopped.Store(true) }
func (s *sliceSource) Name() string                       { return "file" }
func (s *sliceSource) Err() error                         { return s.err }

type rejectRecorder struct {
	mu      sync.Mutex
	reasons []model.SkipReason
	err     error
}

func (r *rejectRecorder) Reject(_ model.IngestEnvelope, reason model.SkipReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	return r.err
}

func accessLine(i int, start, end float64) string {
	return fmt.Sprintf("Mar  3 18:30:01 px1 proxy-server: 1.2.3.4 10.0.0.1 03/Mar/2020/18/30/01 GET /v1/AUTH_test/c/o%d HTTP/1.0 200 - curl tk123 - 1024 - tx%d - %.4f - - %.6f %.6f 0",
		i, i, end-start, start, end)
}

func testConfig() Config {
	return Config{
		Analysis: aggregate.DefaultConfig(),
		Logger:   zerolog.Nop(),
	}
}

func TestRunSequentialEndToEnd(t *testing.T) {
	t.Parallel()

	src := newSliceSource([]string{
		accessLine(1, 100.2, 101.5),
		accessLine(2, 101.1, 102.3),
		"",
		"not a log line",
	})

	an, stats, err := Run(context.Background(), src, testConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Lines)
	assert.Equal(t, 1, stats.Workers)
	assert.False(t, stats.Stopped)

	report := an.Report()
	client := report.SeriesByName(model.SeriesClient)
	require.NotNil(t, client)
	assert.Equal(t, []model.Point{{Start: 100, Count: 1}, {Start: 101, Count: 2}, {Start: 102, Count: 1}}, client.Points)
	assert.Equal(t, int64(2), an.Records(model.KindAccess))
	assert.Equal(t, int64(1), an.Skipped(model.SkipUnrecognized))
}

func mixedLines(n int) []string {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := 1000 + float64(i%97) + float64(i%10)/10
		end := start + float64(i%7)*0.35
		switch i % 13 {
		case 0:
			lines = append(lines, "garbage line")
		case 1:
			lines = append(lines, "# comment")
		default:
			lines = append(lines, accessLine(i, start, end))
		}
	}
	return lines
}

func TestRunShardedMatchesSequential(t *testing.T) {
	t.Parallel()

	lines := mixedLines(3000)

	seq, _, err := Run(context.Background(), newSliceSource(lines), testConfig())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Workers = 4
	cfg.BatchSize = 7
	sharded, stats, err := Run(context.Background(), newSliceSource(lines), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, int64(len(lines)), stats.Lines)

	assert.Equal(t, seq.Report(), sharded.Report())
}

func TestRunMaxLines(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 3} {
		src := newSliceSource(mixedLines(50))
		cfg := testConfig()
		cfg.MaxLines = 10
		cfg.Workers = workers
		cfg.BatchSize = 4

		an, stats, err := Run(context.Background(), src, cfg)
		require.NoError(t, err)
		assert.True(t, stats.Stopped)
		assert.Equal(t, int64(10), stats.Lines)
		assert.Equal(t, int64(10), an.Lines())
		assert.True(t, src.stopped.Load())
	}
}

func TestRunRejects(t *testing.T) {
	t.Parallel()

	rec := &rejectRecorder{}
	cfg := testConfig()
	cfg.Rejects = rec
	cfg.Workers = 2
	cfg.BatchSize = 1

	_, _, err := Run(context.Background(), newSliceSource([]string{
		accessLine(1, 100, 101),
		"garbage",
		"# comment",
		"Mar  3 18:30:01 px1 proxy-server: too few fields",
	}), cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.SkipReason{model.SkipUnrecognized, model.SkipMalformed}, rec.reasons)
}

func TestRunRejectErrorIsFatal(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2} {
		cfg := testConfig()
		cfg.Rejects = &rejectRecorder{err: errors.New("disk full")}
		cfg.Workers = workers

		_, _, err := Run(context.Background(), newSliceSource([]string{"garbage"}), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	}
}

func TestRunSourceError(t *testing.T) {
	t.Parallel()

	src := newSliceSource([]string{accessLine(1, 100, 101)})
	src.err = errors.New("truncated gzip")

	_, _, err := Run(context.Background(), src, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := &sliceSource{lines: make(chan model.IngestEnvelope)}
		cfg := testConfig()
		cfg.Workers = workers

		_, _, err := Run(ctx, src, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, src.stopped.Load())
	}
}

func TestRunNilSource(t *testing.T) {
	t.Parallel()

	_, _, err := Run(context.Background(), nil, testConfig())
	assert.Error(t, err)
}

func TestStatsLinesPerSecond(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Stats{Lines: 10}.LinesPerSecond())
}
