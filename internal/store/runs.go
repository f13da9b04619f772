package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/metadeploy/internal/ir"
)

// BeginRun records the start of a deploy run with status running.
func (s *Store) BeginRun(ctx context.Context, id string) (ir.Run, error) {
	run := ir.Run{ID: id, StartedAt: s.now().UTC(), Status: ir.RunRunning}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), string(run.Status))
	if err != nil {
		return ir.Run{}, fmt.Errorf("begin run %s: %w", id, err)
	}
	return run, nil
}

// FinishRun sets the terminal status of run id. A non-nil runErr marks the
// run failed and stores its message.
func (s *Store) FinishRun(ctx context.Context, id string, bundles int, runErr error) error {
	status, msg := ir.RunSucceeded, ""
	if runErr != nil {
		status, msg = ir.RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, bundles = ?, error = ? WHERE id = ?
	`, formatTime(s.now()), string(status), bundles, msg, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, bundles, error FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []ir.Run{}
	for rows.Next() {
		var (
			run      ir.Run
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &status, &run.Bundles, &run.Error); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if finished.Valid {
			if run.FinishedAt, err = parseTime(finished.String); err != nil {
				return nil, fmt.Errorf("list runs: %w", err)
			}
		}
		run.Status = ir.RunStatus(status)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}
