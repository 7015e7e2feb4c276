package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/storage"
)

const runColumns = `id, user_id, list_id, state, outcome, candidate_stores, failed_stores,
	total_potential_savings, applied_items, failed_items, created_at, updated_at`

// SaveRun inserts a run or replaces the existing row with the same ID.
// CreatedAt of an existing row is preserved.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.OptimizationRun) error {
	now := time.Now().Unix()
	if run.CreatedAt == 0 {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO optimization_runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     user_id = excluded.user_id,
		     list_id = excluded.list_id,
		     state = excluded.state,
		     outcome = excluded.outcome,
		     candidate_stores = excluded.candidate_stores,
		     failed_stores = excluded.failed_stores,
		     total_potential_savings = excluded.total_potential_savings,
		     applied_items = excluded.applied_items,
		     failed_items = excluded.failed_items,
		     updated_at = excluded.updated_at`,
		run.ID, run.UserID, run.ListID, run.State, run.Outcome, run.CandidateStores,
		run.FailedStores, run.TotalPotentialSavings, run.AppliedItems, run.FailedItems,
		run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.OptimizationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM optimization_runs WHERE id = ?`,
		runID,
	)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves a user's recent runs, newest first. An empty userID
// matches only runs recorded without a user.
func (s *SQLiteStore) ListRuns(ctx context.Context, userID string, limit int) ([]*models.OptimizationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM optimization_runs
		WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.OptimizationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func scanRun(sc scanner) (*models.OptimizationRun, error) {
	run := &models.OptimizationRun{}
	err := sc.Scan(&run.ID, &run.UserID, &run.ListID, &run.State, &run.Outcome,
		&run.CandidateStores, &run.FailedStores, &run.TotalPotentialSavings,
		&run.AppliedItems, &run.FailedItems, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}
