package duckdb

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// PruneRuns deletes every run but the newest keep, with all of their rows.
// keep <= 0 disables pruning. It returns the number of runs removed.
func (s *Store) PruneRuns(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("duckdb: begin prune: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT run_id FROM (
			SELECT run_id, row_number() OVER (ORDER BY created_at DESC, run_id DESC) AS rn
			FROM runs
		)
		WHERE rn > ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("duckdb: select expired runs: %w", err)
	}
	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("duckdb: scan expired run: %w", err)
		}
		expired = append(expired, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("duckdb: select expired runs: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for _, table := range reportTables {
		// Table names are hardcoded constants, not user input.
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE run_id = ?`, table))
		if err != nil {
			return 0, fmt.Errorf("duckdb: prune %s: %w", table, err)
		}
		for _, id := range expired {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				stmt.Close()
				return 0, fmt.Errorf("duckdb: prune %s: %w", table, err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("duckdb: commit prune: %w", err)
	}
	committed = true

	log.Info().Str("component", "duckdb").Int("runs", len(expired)).Int("keep", keep).Msg("pruned old runs")
	return int64(len(expired)), nil
}
