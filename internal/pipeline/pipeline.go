// Package pipeline drives one pass over a log source: lines are classified,
// extracted and folded into an aggregate.Analysis, optionally across several
// sharded workers whose results are merged at the end.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/notmyname/logflow/internal/aggregate"
	"github.com/notmyname/logflow/internal/ingest"
	"github.com/notmyname/logflow/internal/logsource"
	"github.com/notmyname/logflow/internal/model"
)

// Config controls a run.
type Config struct {
	Analysis aggregate.Config
	Ingest   ingest.Options

	// Workers > 1 shards lines across that many goroutines.
	Workers   int
	BatchSize int

	// MaxLines stops reading after that many lines; 0 reads everything.
	MaxLines      int64
	ProgressEvery int64

	// Rejects receives every counted skip. It must be safe for concurrent
	// use when Workers > 1.
	Rejects model.RejectSink
	Logger  zerolog.Logger
}

// Stats describes a finished run.
type Stats struct {
	Lines   int64
	Workers int
	Stopped bool // MaxLines was reached
	Elapsed time.Duration
}

// LinesPerSecond is the read throughput of the run.
func (s Stats) LinesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Lines) / s.Elapsed.Seconds()
}

// Run reads src to the end (or to MaxLines) and returns the merged analysis.
// A read error from src, a reject sink error or ctx cancellation is fatal.
func Run(ctx context.Context, src logsource.LogSource, cfg Config) (*aggregate.Analysis, Stats, error) {
	if src == nil {
		return nil, Stats{}, logsource.ErrNoInput
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = model.DefaultBatchSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log := cfg.Logger.With().Str("component", "pipeline").Str("source", src.Name()).Logger()
	started := time.Now()

	var (
		an    *aggregate.Analysis
		stats Stats
		err   error
	)
	if cfg.Workers == 1 {
		an, stats, err = runSequential(ctx, src, cfg, log)
	} else {
		an, stats, err = runSharded(ctx, src, cfg, log)
	}
	stats.Workers = cfg.Workers
	stats.Elapsed = time.Since(started)
	if err != nil {
		return nil, stats, err
	}

	if !stats.Stopped {
		if err := src.Err(); err != nil {
			return nil, stats, fmt.Errorf("pipeline: read input: %w", err)
		}
	}

	log.Info().
		Int64("lines", stats.Lines).
		Int("workers", stats.Workers).
		Bool("stopped", stats.Stopped).
		Dur("elapsed", stats.Elapsed).
		Msg("pass complete")
	return an, stats, nil
}

func newProcessor(src logsource.LogSource, cfg Config, sink model.RecordSink) *ingest.Processor {
	p := ingest.NewEnvelopeProcessor(cfg.Ingest, sink)
	p.SetSourceName(src.Name())
	if cfg.Rejects != nil {
		p.SetRejectSink(cfg.Rejects)
	}
	return p
}

func runSequential(ctx context.Context, src logsource.LogSource, cfg Config, log zerolog.Logger) (*aggregate.Analysis, Stats, error) {
	an := aggregate.New(cfg.Analysis)
	proc := newProcessor(src, cfg, an)

	stats, err := feed(ctx, src, cfg, log, func(env model.IngestEnvelope) error {
		proc.ProcessEnvelope(env)
		if err := proc.Err(); err != nil {
			return fmt.Errorf("pipeline: reject sink: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return an, stats, nil
}

func runSharded(ctx context.Context, src logsource.LogSource, cfg Config, log zerolog.Logger) (*aggregate.Analysis, Stats, error) {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []model.IngestEnvelope, cfg.Workers*2)
	shards := make([]*aggregate.Analysis, cfg.Workers)

	for i := range shards {
		shard := aggregate.New(cfg.Analysis)
		shards[i] = shard
		proc := newProcessor(src, cfg, shard)
		g.Go(func() error {
			for batch := range batches {
				for _, env := range batch {
					proc.ProcessEnvelope(env)
				}
				if err := proc.Err(); err != nil {
					return fmt.Errorf("pipeline: reject sink: %w", err)
				}
			}
			return nil
		})
	}

	var stats Stats
	g.Go(func() error {
		defer close(batches)

		batch := make([]model.IngestEnvelope, 0, cfg.BatchSize)
		send := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]model.IngestEnvelope, 0, cfg.BatchSize)
			return nil
		}

		var err error
		stats, err = feed(gctx, src, cfg, log, func(env model.IngestEnvelope) error {
			batch = append(batch, env)
			if len(batch) >= cfg.BatchSize {
				return send()
			}
			return nil
		})
		if err != nil {
			return err
		}
		return send()
	})

	if err := g.Wait(); err != nil {
		src.Stop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, stats, fmt.Errorf("pipeline: %w", ctxErr)
		}
		return nil, stats, err
	}

	merged := shards[0]
	for _, shard := range shards[1:] {
		merged.Merge(shard)
	}
	return merged, stats, nil
}

// feed reads src and hands each line to process until the source closes,
// MaxLines is reached, process fails or ctx is cancelled.
func feed(ctx context.Context, src logsource.LogSource, cfg Config, log zerolog.Logger, process func(model.IngestEnvelope) error) (Stats, error) {
	var stats Stats
	lines := src.Lines()

	for {
		select {
		case <-ctx.Done():
			src.Stop()
			return stats, fmt.Errorf("pipeline: %w", ctx.Err())
		case env, ok := <-lines:
			if !ok {
				return stats, nil
			}
			stats.Lines++
			if err := process(env); err != nil {
				src.Stop()
				return stats, err
			}
			if cfg.ProgressEvery > 0 && stats.Lines%cfg.ProgressEvery == 0 {
				log.Debug().Int64("lines", stats.Lines).Msg("progress")
			}
			if cfg.MaxLines > 0 && stats.Lines >= cfg.MaxLines {
				src.Stop()
				stats.Stopped = true
				return stats, nil
			}
		}
	}
}
