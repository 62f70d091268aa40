package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/notmyname/logflow/internal/model"
)

var runIDCounter atomic.Uint64

// NewRunID returns an identifier that is unique within the process and
// sorts by creation time.
func NewRunID() string {
	n := runIDCounter.Add(1)
	return fmt.Sprintf("%x-%x", time.Now().UTC().UnixNano(), n)
}

// SaveReport writes every table of r under runID in a single transaction.
func (s *Store) SaveReport(runID, source string, r *model.Report) error {
	if runID == "" {
		return errors.New("duckdb: run id is empty")
	}
	if r == nil {
		return errors.New("duckdb: report is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, resolution, lookback, lines, degenerate) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, source, r.Resolution, r.Lookback, r.Lines, r.Degenerate,
	); err != nil {
		return fmt.Errorf("duckdb: insert run: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx, string, *model.Report) error
	}{
		{"series", insertSeries},
		{"skips", insertSkips},
		{"latency", insertLatency},
		{"rolling latency", insertRolling},
		{"drives", insertDrives},
		{"edges", insertEdges},
		{"error markers", insertErrorMarkers},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx, runID, r); err != nil {
			return fmt.Errorf("duckdb: insert %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("duckdb: commit: %w", err)
	}
	committed = true
	return nil
}

func insertSeries(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO series_points (run_id, series, bucket_start, requests) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, group := range [][]model.Series{r.Series, r.DriveSeries} {
		for _, series := range group {
			for _, p := range series.Points {
				if _, err := stmt.ExecContext(ctx, runID, series.Name, p.Start, p.Count); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func insertSkips(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO skips (run_id, reason, lines) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	reasons := make([]string, 0, len(r.Skipped))
	for reason := range r.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		if _, err := stmt.ExecContext(ctx, runID, reason, r.Skipped[reason]); err != nil {
			return err
		}
	}
	return nil
}

func insertLatency(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO latency (run_id, path_class, samples, p50, p90, p95, p99, p999, max_latency) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range r.Latency {
		if _, err := stmt.ExecContext(ctx, runID, row.Name, row.Count, row.P50, row.P90, row.P95, row.P99, row.P999, row.Max); err != nil {
			return err
		}
	}
	return nil
}

func insertRolling(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rolling_latency (run_id, series, epoch_second, latency) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, series := range r.Rolling {
		for _, p := range series.Points {
			if _, err := stmt.ExecContext(ctx, runID, series.Name, p.Second, p.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertDrives(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO drives (run_id, host, drive, ops, bytes) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range r.Drives {
		if _, err := stmt.ExecContext(ctx, runID, d.Host, d.Drive, d.Ops, d.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (run_id, source, dest, method, status, label, weight, thickness) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range r.Edges {
		if _, err := stmt.ExecContext(ctx, runID, e.Source, e.Dest, e.Method, e.Status, e.Label, e.Weight, e.Thickness); err != nil {
			return err
		}
	}
	return nil
}

func insertErrorMarkers(ctx context.Context, tx *sql.Tx, runID string, r *model.Report) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO error_markers (run_id, epoch) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, epoch := range r.ErrorMarkers {
		if _, err := stmt.ExecContext(ctx, runID, epoch); err != nil {
			return err
		}
	}
	return nil
}
