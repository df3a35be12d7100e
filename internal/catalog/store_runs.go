package catalog

import (
	"context"
	"errors"
	"fmt"
)

// StartRun inserts a run row, normally with status running.
func (s *Store) StartRun(ctx context.Context, run SyncRun) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := s.execWithRetry(ctx,
		"INSERT INTO sync_runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, string(run.Kind), string(run.Status), formatTime(run.StartedAt), nullableTime(run.FinishedAt),
		run.Processed, run.WithOffers, run.Cleared, run.Skipped, run.Deleted, nullableString(run.Detail))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, run SyncRun) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE sync_runs SET status = ?, finished_at = ?, processed = ?, with_offers = ?, cleared = ?,
		 skipped = ?, deleted = ?, detail = ? WHERE id = ?`,
		string(run.Status), nullableTime(run.FinishedAt), run.Processed, run.WithOffers, run.Cleared,
		run.Skipped, run.Deleted, nullableString(run.Detail), run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM sync_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
