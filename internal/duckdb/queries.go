package duckdb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/notmyname/logflow/internal/model"
)

// ErrReadOnly is returned by ExecuteQuery for anything but a single SELECT/WITH query.
var ErrReadOnly = errors.New("duckdb: only read-only queries are allowed")

// maxQueryRows caps the rows ExecuteQuery returns.
const maxQueryRows = 1000

// reportTables lists every table the store owns, in schema order.
var reportTables = []string{"runs", "series_points", "skips", "latency", "rolling_latency", "drives", "edges", "error_markers"}

// dangerousKeywordPattern matches dangerous SQL keywords at word boundaries.
// This avoids false positives like "RESET" matching "SET".
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET|CHECKPOINT)\b`,
)

// blockCommentPattern matches C-style block comments (/* ... */).
var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// stripSQLComments removes -- line comments and /* */ block comments from a query.
func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// checkReadOnly rejects statement chaining, non-SELECT queries and
// dangerous keywords, including ones hidden in comments.
func checkReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("%w: query must not contain semicolons", ErrReadOnly)
	}

	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: only SELECT/WITH queries are allowed", ErrReadOnly)
	}

	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return fmt.Errorf("%w: query contains disallowed keyword: %s", ErrReadOnly, strings.ToUpper(match))
	}
	return nil
}

// ExecuteQuery runs a read-only SQL query and returns at most 1000 rows as maps.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("duckdb: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			log.Warn().Err(err).Str("component", "duckdb").Msg("scan error (ExecuteQuery)")
			continue
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable description of the report tables.
func (s *Store) GetSchemaDescription() string {
	return `Table 'runs': run_id, source, created_at, resolution, lookback, lines, degenerate. ` +
		`Table 'series_points': run_id, series, bucket_start (epoch seconds), requests. ` +
		`Table 'skips': run_id, reason, lines. ` +
		`Table 'latency': run_id, path_class (all/account/container/object/other), samples, p50, p90, p95, p99, p999, max_latency. ` +
		`Table 'rolling_latency': run_id, series (P50/P99), epoch_second, latency. ` +
		`Table 'drives': run_id, host, drive, ops, bytes. ` +
		`Table 'edges': run_id, source, dest, method, status, label, weight, thickness. ` +
		`Table 'error_markers': run_id, epoch.`
}

// TableRowCounts returns the row count for each report table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	counts := make(map[string]int64, len(reportTables))
	for _, table := range reportTables {
		var count int64
		// Table names are hardcoded constants, not user input.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("duckdb: count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

// Runs lists exported runs, newest first.
func (s *Store) Runs() ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, created_at, resolution, lookback, lines, degenerate
		FROM runs
		ORDER BY created_at DESC, run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Source, &r.CreatedAt, &r.Resolution, &r.Lookback, &r.Lines, &r.Degenerate); err != nil {
			return nil, fmt.Errorf("duckdb: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SeriesPoints returns one series of a run, ordered by bucket.
func (s *Store) SeriesPoints(runID, series string) ([]model.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket_start, requests
		FROM series_points
		WHERE run_id = ? AND series = ?
		ORDER BY bucket_start`, runID, series)
	if err != nil {
		return nil, fmt.Errorf("duckdb: series points: %w", err)
	}
	defer rows.Close()

	var points []model.Point
	for rows.Next() {
		var p model.Point
		if err := rows.Scan(&p.Start, &p.Count); err != nil {
			return nil, fmt.Errorf("duckdb: scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// PeakConcurrency returns the highest bucket count of each series in a run.
func (s *Store) PeakConcurrency(runID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, MAX(requests)
		FROM series_points
		WHERE run_id = ?
		GROUP BY series`, runID)
	if err != nil {
		return nil, fmt.Errorf("duckdb: peak concurrency: %w", err)
	}
	defer rows.Close()

	peaks := make(map[string]int64)
	for rows.Next() {
		var name string
		var peak int64
		if err := rows.Scan(&name, &peak); err != nil {
			return nil, fmt.Errorf("duckdb: scan peak: %w", err)
		}
		peaks[name] = peak
	}
	return peaks, rows.Err()
}
