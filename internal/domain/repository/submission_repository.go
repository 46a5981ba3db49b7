package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)

	// Judging lifecycle. ClaimForJudging is the persisted at-most-once guard;
	// FinalizeJudgement commits the terminal verdict and every testcase
	// result in a single transaction.
	ClaimForJudging(ctx context.Context, id string) (bool, error)
	FinalizeJudgement(ctx context.Context, id string, verdict model.Verdict, results []model.TestcaseResult) error

	GetTestcaseResults(ctx context.Context, submissionID string) ([]model.TestcaseResult, error)
	ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error)
	ListContestSubmissions(ctx context.Context, contestID string) ([]model.Submission, error)

	// ReclaimStale resets RUNNING submissions older than the cutoff back to
	// PENDING and returns their ids so the sweep can re-offer them. PENDING
	// rows older than the cutoff are returned too: a crash before the claim,
	// or a lost queue offer, must not strand a submission. Matched rows get a
	// fresh updated_at so each is re-offered once per staleness window.
	ReclaimStale(ctx context.Context, cutoff time.Time) ([]string, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, problem_id, contest_item_id, contest_id, language, source_code, status, created_at, updated_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	var (
		sub           model.Submission
		problemID     *string
		contestItemID *string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &problemID, &contestItemID, &sub.ContestID,
		&sub.Language, &sub.SourceCode, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	target, err := model.NewSubmissionTarget(problemID, contestItemID)
	if err != nil {
		return nil, fmt.Errorf("submission %s has inconsistent target columns: %w", sub.ID, err)
	}
	sub.Target = target
	return &sub, nil
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	problemID, contestItemID := sub.Target.Columns()
	query := `INSERT INTO submissions (id, user_id, problem_id, contest_item_id, contest_id, language, source_code, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, problemID, contestItemID, sub.ContestID, sub.Language, sub.SourceCode, sub.Status)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, problemID, contestItemID, sub.ContestID, sub.Language, sub.SourceCode, sub.Status)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

// ClaimForJudging wins iff the row is still PENDING. The guard lives in the
// database so it holds across process restarts.
func (r *pgSubmissionRepository) ClaimForJudging(ctx context.Context, id string) (bool, error) {
	query := `UPDATE submissions SET status = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, model.VerdictRunning, id, model.VerdictPending)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.ClaimForJudging: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.ClaimForJudging: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) FinalizeJudgement(ctx context.Context, id string, verdict model.Verdict, results []model.TestcaseResult) error {
	if !verdict.Terminal() {
		return fmt.Errorf("verdict %s is not terminal: %w", verdict, common.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.FinalizeJudgement: begin: %w", err)
	}
	defer tx.Rollback()

	// Guarded on RUNNING: a terminal submission is immutable, so a second
	// finalize attempt can never overwrite the first.
	res, err := tx.ExecContext(ctx,
		`UPDATE submissions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND status = $3`,
		verdict, id, model.VerdictRunning,
	)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.FinalizeJudgement: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.FinalizeJudgement: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("submission %s is not in a finalizable state: %w", id, common.ErrConflict)
	}

	insert := `INSERT INTO testcase_results (id, submission_id, testcase_id, is_sample, status, stdout, stderr, time_ms, memory_kb)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, tr := range results {
		if _, err := tx.ExecContext(ctx, insert,
			tr.ID, id, tr.TestcaseID, tr.IsSample, tr.Status, tr.Stdout, tr.Stderr, tr.TimeMs, tr.MemoryKB,
		); err != nil {
			return fmt.Errorf("pgSubmissionRepository.FinalizeJudgement: insert result: %w", err)
		}
	}

	return tx.Commit()
}

func (r *pgSubmissionRepository) GetTestcaseResults(ctx context.Context, submissionID string) ([]model.TestcaseResult, error) {
	query := `SELECT id, submission_id, testcase_id, is_sample, status, stdout, stderr, time_ms, memory_kb, created_at
	          FROM testcase_results WHERE submission_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestcaseResults: %w", err)
	}
	defer rows.Close()

	var results []model.TestcaseResult
	for rows.Next() {
		var tr model.TestcaseResult
		if err := rows.Scan(&tr.ID, &tr.SubmissionID, &tr.TestcaseID, &tr.IsSample, &tr.Status,
			&tr.Stdout, &tr.Stderr, &tr.TimeMs, &tr.MemoryKB, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetTestcaseResults: scan: %w", err)
		}
		results = append(results, tr)
	}
	return results, rows.Err()
}

func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.querySubmissions(ctx, query, userID, limit, offset)
}

func (r *pgSubmissionRepository) ListContestSubmissions(ctx context.Context, contestID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE contest_id = $1 ORDER BY created_at`
	return r.querySubmissions(ctx, query, contestID)
}

func (r *pgSubmissionRepository) querySubmissions(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.querySubmissions: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.querySubmissions: scan: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) ReclaimStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `UPDATE submissions SET status = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE status IN ($2, $3) AND updated_at < $4
	          RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, model.VerdictPending, model.VerdictRunning, model.VerdictPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ReclaimStale: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ReclaimStale: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
