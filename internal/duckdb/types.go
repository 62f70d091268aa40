package duckdb

import "time"

// RunInfo describes one exported run.
type RunInfo struct {
	ID         string    `json:"run_id"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	Resolution float64   `json:"resolution"`
	Lookback   int       `json:"lookback"`
	Lines      int64     `json:"lines"`
	Degenerate int64     `json:"degenerate"`
}
