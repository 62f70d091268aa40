package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/notmyname/logflow/internal/duckdb"
	"github.com/notmyname/logflow/internal/httpserver"
	"github.com/notmyname/logflow/internal/journal"
	"github.com/notmyname/logflow/internal/logger"
	"github.com/notmyname/logflow/internal/logsource"
	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/pipeline"
	"github.com/notmyname/logflow/internal/publish"
	"github.com/notmyname/logflow/internal/report"
)

// snapshotFile is the name of the database copy published with a run.
const snapshotFile = "logflow.duckdb"

// analyze runs one pass over the configured inputs and writes every
// requested output. With --serve it then blocks until ctx is cancelled.
func analyze(ctx context.Context, cfg appConfig, stdout io.Writer) error {
	lg, err := logger.Init(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return err
	}
	log := lg.With().Str("component", "cli").Logger()

	pcfg, err := cfg.pipelineConfig()
	if err != nil {
		return err
	}
	pcfg.Logger = lg

	// Reject every bad destination before reading any input.
	pub, err := publish.New(ctx, publish.Config{
		BucketURL:    cfg.UploadURL,
		S3:           cfg.s3Config(),
		CreateBucket: cfg.CreateBucket,
	})
	if err != nil {
		return err
	}

	src, err := logsource.OpenAll(ctx, cfg.Inputs, logsource.Config{ReadBuffer: cfg.ReadBuffer}, cfg.s3Config())
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Stop()

	var rejects *journal.Journal
	if cfg.RejectsFile != "" {
		rejects, err = journal.Open(cfg.RejectsFile)
		if err != nil {
			return err
		}
		defer rejects.Close()
		pcfg.Rejects = rejects
	}

	an, stats, err := pipeline.Run(ctx, src, pcfg)
	if err != nil {
		return err
	}
	rep := an.Report()

	files, err := report.WriteAll(cfg.OutDir, rep, cfg.format())
	if err != nil {
		return err
	}
	if rejects != nil {
		if err := rejects.Close(); err != nil {
			return err
		}
		log.Info().Str("path", rejects.Path()).Uint64("lines", rejects.Count()).Msg("rejected lines journaled")
		files = append(files, rejects.Path())
	}

	runID := duckdb.NewRunID()

	var store *duckdb.Store
	if cfg.DuckDB != "" {
		store, err = exportReport(cfg, runID, src.Name(), rep, log)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	fmt.Fprint(stdout, report.Summary(rep, report.RunInfo{
		Source:  src.Name(),
		Workers: stats.Workers,
		Elapsed: stats.Elapsed,
		Stopped: stats.Stopped,
	}, terminalWidth(), cfg.Verbose))

	if pub != nil {
		if store != nil {
			snap := filepath.Join(cfg.OutDir, snapshotFile)
			if err := store.SnapshotTo(snap); err == nil {
				files = append(files, snap)
			} else if !errors.Is(err, duckdb.ErrInMemoryStore) {
				return err
			}
		}
		keys, err := pub.Publish(ctx, runID, files)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", runID).Int("objects", len(keys)).Msg("artifacts published")
	}

	if !cfg.Serve {
		return nil
	}
	return serve(ctx, cfg.APIAddr, rep, store, stdout)
}

// exportReport saves rep into the configured database and prunes old runs.
func exportReport(cfg appConfig, runID, source string, rep *model.Report, log zerolog.Logger) (*duckdb.Store, error) {
	store, err := duckdb.NewStore(cfg.DuckDB, cfg.QueryTimeout)
	if err != nil {
		return nil, err
	}
	if err := store.SaveReport(runID, source, rep); err != nil {
		store.Close()
		return nil, err
	}
	log.Info().Str("run_id", runID).Str("path", cfg.DuckDB).Msg("report exported")

	if cfg.DuckDBKeepRuns > 0 {
		pruned, err := store.PruneRuns(cfg.DuckDBKeepRuns)
		if err != nil {
			store.Close()
			return nil, err
		}
		if pruned > 0 {
			log.Info().Int64("runs", pruned).Msg("pruned old runs")
		}
	}
	return store, nil
}

// serve exposes the finished report until ctx is cancelled.
func serve(ctx context.Context, addr string, rep *model.Report, store *duckdb.Store, stdout io.Writer) error {
	var qs httpserver.QueryStore
	if store != nil {
		qs = store
	}

	srv := httpserver.NewServer(addr, rep, qs)
	if err := srv.Start(); err != nil {
		return err
	}
	printServeBanner(stdout, srv.Addr(), store != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})
	return g.Wait()
}

func printServeBanner(w io.Writer, addr string, sql bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	check := green.Render("●")
	dot := dim.Render("●")

	lines := []string{
		"",
		fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr+"/api/report")),
	}
	if sql {
		lines = append(lines, fmt.Sprintf("    %s  SQL            %s", check, cyan.Render("POST /api/query")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  SQL            %s", dot, dim.Render("disabled (no --duckdb)")))
	}
	lines = append(lines, "", "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultChartWidth
}
