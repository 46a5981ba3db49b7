package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PgStatsRecorder implements judge.StatsRecorder. The solved-problems table
// carries a unique (user_id, problem_id) constraint, so the statistics counter
// only moves on the first insert; re-judging the same problem is a no-op.
type PgStatsRecorder struct {
	db *sql.DB
}

func NewPgStatsRecorder(db *sql.DB) *PgStatsRecorder {
	return &PgStatsRecorder{db: db}
}

func (r *PgStatsRecorder) RecordSolved(ctx context.Context, userID, problemID, submissionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("PgStatsRecorder.RecordSolved: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_solved_problems (user_id, problem_id, submission_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, problem_id) DO NOTHING`,
		userID, problemID, submissionID,
	)
	if err != nil {
		return fmt.Errorf("PgStatsRecorder.RecordSolved: insert: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("PgStatsRecorder.RecordSolved: %w", err)
	}
	if inserted == 0 {
		return nil // already counted
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_statistics (user_id, total_solved)
		 VALUES ($1, 1)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_solved = user_statistics.total_solved + 1, updated_at = CURRENT_TIMESTAMP`,
		userID,
	); err != nil {
		return fmt.Errorf("PgStatsRecorder.RecordSolved: bump counter: %w", err)
	}

	return tx.Commit()
}
