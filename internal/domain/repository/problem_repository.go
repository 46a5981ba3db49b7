package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, onlyPublished bool) ([]model.Problem, error)

	CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error
	FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error)

	AddProblemTestcases(ctx context.Context, tx *sql.Tx, problemID string, tcs []model.Testcase) error
	AddChallengeTestcases(ctx context.Context, tx *sql.Tx, challengeID string, tcs []model.Testcase) error
	ProblemTestcases(ctx context.Context, problemID string) ([]model.Testcase, error)
	ChallengeTestcases(ctx context.Context, challengeID string) ([]model.Testcase, error)

	// SpecFor implements judge.SpecSource: it resolves any submission target
	// (practice problem or contest item) into limits plus ordered testcases.
	SpecFor(ctx context.Context, target model.SubmissionTarget) (*judge.TargetSpec, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, statement, difficulty, time_limit_ms, memory_limit_kb, is_published, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Statement, p.Difficulty, p.TimeLimitMs, p.MemoryLimitKB, p.IsPublished, p.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Statement, p.Difficulty, p.TimeLimitMs, p.MemoryLimitKB, p.IsPublished, p.CreatedByID)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // slug uniqueness
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

const problemColumns = `id, title, slug, statement, difficulty, time_limit_ms, memory_limit_kb, is_published, created_by, created_at, updated_at`

func scanProblem(row interface{ Scan(...any) error }) (*model.Problem, error) {
	p := &model.Problem{}
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Statement, &p.Difficulty,
		&p.TimeLimitMs, &p.MemoryLimitKB, &p.IsPublished, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	p, err := scanProblem(r.db.QueryRowContext(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	p, err := scanProblem(r.db.QueryRowContext(ctx, `SELECT `+problemColumns+` FROM problems WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemBySlug: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, onlyPublished bool) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems`
	if onlyPublished {
		query += ` WHERE is_published = TRUE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblems: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListProblems: scan: %w", err)
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}

func (r *pgProblemRepository) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `INSERT INTO challenges (id, title, slug, statement, difficulty, time_limit_ms, memory_limit_kb, allow_public_practice, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Statement, c.Difficulty, c.TimeLimitMs, c.MemoryLimitKB, c.AllowPublicPractice, c.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Statement, c.Difficulty, c.TimeLimitMs, c.MemoryLimitKB, c.AllowPublicPractice, c.CreatedByID)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateChallenge: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT id, title, slug, statement, difficulty, time_limit_ms, memory_limit_kb, allow_public_practice, created_by, created_at, updated_at
	          FROM challenges WHERE id = $1`
	c := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &c.Slug, &c.Statement, &c.Difficulty,
		&c.TimeLimitMs, &c.MemoryLimitKB, &c.AllowPublicPractice, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindChallengeByID: %w", err)
	}
	return c, nil
}

func (r *pgProblemRepository) AddProblemTestcases(ctx context.Context, tx *sql.Tx, problemID string, tcs []model.Testcase) error {
	return r.addTestcases(ctx, tx, "problem_testcases", "problem_id", problemID, tcs)
}

func (r *pgProblemRepository) AddChallengeTestcases(ctx context.Context, tx *sql.Tx, challengeID string, tcs []model.Testcase) error {
	return r.addTestcases(ctx, tx, "challenge_testcases", "challenge_id", challengeID, tcs)
}

func (r *pgProblemRepository) addTestcases(ctx context.Context, tx *sql.Tx, table, ownerCol, ownerID string, tcs []model.Testcase) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, input, expected_output, is_sample, is_hidden, sort_order)
	                      VALUES ($1, $2, $3, $4, $5, $6, $7)`, table, ownerCol)
	for _, tc := range tcs {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, tc.ID, ownerID, tc.Input, tc.ExpectedOutput, tc.IsSample, tc.IsHidden, tc.SortOrder)
		} else {
			_, err = r.db.ExecContext(ctx, query, tc.ID, ownerID, tc.Input, tc.ExpectedOutput, tc.IsSample, tc.IsHidden, tc.SortOrder)
		}
		if err != nil {
			return fmt.Errorf("pgProblemRepository.addTestcases(%s): %w", table, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) ProblemTestcases(ctx context.Context, problemID string) ([]model.Testcase, error) {
	return r.testcases(ctx, "problem_testcases", "problem_id", problemID)
}

func (r *pgProblemRepository) ChallengeTestcases(ctx context.Context, challengeID string) ([]model.Testcase, error) {
	return r.testcases(ctx, "challenge_testcases", "challenge_id", challengeID)
}

// testcases returns rows in the stable judging order: sort_order first, then
// creation order as the tie-break.
func (r *pgProblemRepository) testcases(ctx context.Context, table, ownerCol, ownerID string) ([]model.Testcase, error) {
	query := fmt.Sprintf(`SELECT id, input, expected_output, is_sample, is_hidden, sort_order, created_at
	                      FROM %s WHERE %s = $1 ORDER BY sort_order, created_at, id`, table, ownerCol)
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.testcases(%s): %w", table, err)
	}
	defer rows.Close()

	var tcs []model.Testcase
	for rows.Next() {
		var tc model.Testcase
		if err := rows.Scan(&tc.ID, &tc.Input, &tc.ExpectedOutput, &tc.IsSample, &tc.IsHidden, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.testcases(%s): scan: %w", table, err)
		}
		tcs = append(tcs, tc)
	}
	return tcs, rows.Err()
}

func (r *pgProblemRepository) SpecFor(ctx context.Context, target model.SubmissionTarget) (*judge.TargetSpec, error) {
	if problemID, ok := target.ProblemID(); ok {
		p, err := r.FindProblemByID(ctx, problemID)
		if err != nil {
			return nil, err
		}
		tcs, err := r.ProblemTestcases(ctx, problemID)
		if err != nil {
			return nil, err
		}
		return &judge.TargetSpec{
			Limits:            judge.Limits{TimeMs: p.TimeLimitMs, MemoryKB: p.MemoryLimitKB},
			Testcases:         tcs,
			PracticeProblemID: p.ID,
		}, nil
	}

	itemID, _ := target.ContestItemID()
	item, err := r.findContestItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	switch item.Item.Kind() {
	case model.ItemProblem:
		p, err := r.FindProblemByID(ctx, item.Item.ID())
		if err != nil {
			return nil, err
		}
		tcs, err := r.ProblemTestcases(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &judge.TargetSpec{
			Limits:    judge.Limits{TimeMs: p.TimeLimitMs, MemoryKB: p.MemoryLimitKB},
			Testcases: tcs,
		}, nil
	case model.ItemChallenge:
		c, err := r.FindChallengeByID(ctx, item.Item.ID())
		if err != nil {
			return nil, err
		}
		tcs, err := r.ChallengeTestcases(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return &judge.TargetSpec{
			Limits:    judge.Limits{TimeMs: c.TimeLimitMs, MemoryKB: c.MemoryLimitKB},
			Testcases: tcs,
		}, nil
	}
	return nil, fmt.Errorf("contest item %s wraps neither problem nor challenge: %w", item.ID, common.ErrValidation)
}

// findContestItem reads the contest_items row here rather than through the
// contest repository so SpecFor stays a single dependency for the engine.
func (r *pgProblemRepository) findContestItem(ctx context.Context, id string) (*model.ContestItem, error) {
	query := `SELECT id, contest_id, problem_id, challenge_id, sort_order, score FROM contest_items WHERE id = $1`
	var (
		item        model.ContestItem
		problemID   *string
		challengeID *string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.ContestID, &problemID, &challengeID, &item.SortOrder, &item.Score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findContestItem: %w", err)
	}
	item.Item, err = itemRefFromColumns(problemID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("contest item %s: %w", item.ID, err)
	}
	item.ItemKind = item.Item.Kind()
	return &item, nil
}

func itemRefFromColumns(problemID, challengeID *string) (model.ItemRef, error) {
	switch {
	case problemID != nil && challengeID == nil:
		return model.ProblemRef(*problemID), nil
	case problemID == nil && challengeID != nil:
		return model.ChallengeRef(*challengeID), nil
	default:
		return model.ItemRef{}, fmt.Errorf("contest item must wrap exactly one of problem or challenge: %w", common.ErrValidation)
	}
}
