package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ContestRepository interface {
	CreateContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error
	FindContestBySlug(ctx context.Context, slug string) (*model.Contest, error)
	FindContestByID(ctx context.Context, id string) (*model.Contest, error)
	ListContests(ctx context.Context, limit, offset int) ([]model.Contest, error)

	AddManager(ctx context.Context, tx *sql.Tx, contestID, userID string) error

	AddItem(ctx context.Context, tx *sql.Tx, item *model.ContestItem) error
	FindItemByID(ctx context.Context, id string) (*model.ContestItem, error)
	ListItems(ctx context.Context, contestID string) ([]model.ContestItem, error)

	Join(ctx context.Context, contestID, userID string) error
	IsParticipant(ctx context.Context, contestID, userID string) (bool, error)
	// ListParticipants returns participants in join order; the leaderboard's
	// stable tie-break depends on this ordering.
	ListParticipants(ctx context.Context, contestID string) ([]model.Participant, error)

	// TransitionStates advances SCHEDULED contests to LIVE and LIVE contests
	// to ENDED by wall clock. Called by the reconciliation sweep only; the
	// engine itself never mutates contest state.
	TransitionStates(ctx context.Context, now time.Time) (int64, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) CreateContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `INSERT INTO contests (id, title, slug, description, state, start_time, end_time, is_public, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.State, c.StartTime, c.EndTime, c.IsPublic, c.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.State, c.StartTime, c.EndTime, c.IsPublic, c.CreatedByID)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.CreateContest: %w", err)
	}
	return nil
}

const contestColumns = `id, title, slug, description, state, start_time, end_time, is_public, created_by, created_at`

func (r *pgContestRepository) scanContest(ctx context.Context, row interface{ Scan(...any) error }) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.State,
		&c.StartTime, &c.EndTime, &c.IsPublic, &c.CreatedByID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	managers, err := r.managerIDs(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.ManagerIDs = managers
	return c, nil
}

func (r *pgContestRepository) managerIDs(ctx context.Context, contestID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM contest_managers WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.managerIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgContestRepository.managerIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgContestRepository) FindContestBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	c, err := r.scanContest(ctx, r.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindContestBySlug: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	c, err := r.scanContest(ctx, r.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindContestByID: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) ListContests(ctx context.Context, limit, offset int) ([]model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE is_public = TRUE
	          ORDER BY start_time DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListContests: %w", err)
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		c := model.Contest{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.State,
			&c.StartTime, &c.EndTime, &c.IsPublic, &c.CreatedByID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListContests: scan: %w", err)
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

func (r *pgContestRepository) AddManager(ctx context.Context, tx *sql.Tx, contestID, userID string) error {
	query := `INSERT INTO contest_managers (contest_id, user_id) VALUES ($1, $2)
	          ON CONFLICT (contest_id, user_id) DO NOTHING`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, contestID, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, contestID, userID)
	}
	if err != nil {
		return fmt.Errorf("pgContestRepository.AddManager: %w", err)
	}
	return nil
}

func (r *pgContestRepository) AddItem(ctx context.Context, tx *sql.Tx, item *model.ContestItem) error {
	problemID, challengeID := item.Item.Columns()
	if problemID == nil && challengeID == nil {
		return fmt.Errorf("contest item must wrap a problem or a challenge: %w", common.ErrValidation)
	}
	query := `INSERT INTO contest_items (id, contest_id, problem_id, challenge_id, sort_order, score)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, item.ID, item.ContestID, problemID, challengeID, item.SortOrder, item.Score)
	} else {
		_, err = r.db.ExecContext(ctx, query, item.ID, item.ContestID, problemID, challengeID, item.SortOrder, item.Score)
	}
	if err != nil {
		return fmt.Errorf("pgContestRepository.AddItem: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindItemByID(ctx context.Context, id string) (*model.ContestItem, error) {
	query := `SELECT ci.id, ci.contest_id, ci.problem_id, ci.challenge_id, ci.sort_order, ci.score,
	                 COALESCE(p.title, ch.title) AS title
	          FROM contest_items ci
	          LEFT JOIN problems p ON ci.problem_id = p.id
	          LEFT JOIN challenges ch ON ci.challenge_id = ch.id
	          WHERE ci.id = $1`
	item, err := scanContestItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindItemByID: %w", err)
	}
	return item, nil
}

func scanContestItem(row interface{ Scan(...any) error }) (*model.ContestItem, error) {
	var (
		item        model.ContestItem
		problemID   *string
		challengeID *string
	)
	err := row.Scan(&item.ID, &item.ContestID, &problemID, &challengeID, &item.SortOrder, &item.Score, &item.Title)
	if err != nil {
		return nil, err
	}
	item.Item, err = itemRefFromColumns(problemID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("contest item %s: %w", item.ID, err)
	}
	item.ItemKind = item.Item.Kind()
	return &item, nil
}

func (r *pgContestRepository) ListItems(ctx context.Context, contestID string) ([]model.ContestItem, error) {
	query := `SELECT ci.id, ci.contest_id, ci.problem_id, ci.challenge_id, ci.sort_order, ci.score,
	                 COALESCE(p.title, ch.title) AS title
	          FROM contest_items ci
	          LEFT JOIN problems p ON ci.problem_id = p.id
	          LEFT JOIN challenges ch ON ci.challenge_id = ch.id
	          WHERE ci.contest_id = $1
	          ORDER BY ci.sort_order, ci.id`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListItems: %w", err)
	}
	defer rows.Close()

	var items []model.ContestItem
	for rows.Next() {
		item, err := scanContestItem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListItems: scan: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *pgContestRepository) Join(ctx context.Context, contestID, userID string) error {
	query := `INSERT INTO contest_participants (contest_id, user_id) VALUES ($1, $2)
	          ON CONFLICT (contest_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, contestID, userID); err != nil {
		return fmt.Errorf("pgContestRepository.Join: %w", err)
	}
	return nil
}

func (r *pgContestRepository) IsParticipant(ctx context.Context, contestID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM contest_participants WHERE contest_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgContestRepository.IsParticipant: %w", err)
	}
	return exists, nil
}

func (r *pgContestRepository) ListParticipants(ctx context.Context, contestID string) ([]model.Participant, error) {
	query := `SELECT cp.contest_id, cp.user_id, u.username, cp.joined_at
	          FROM contest_participants cp
	          JOIN users u ON cp.user_id = u.id
	          WHERE cp.contest_id = $1
	          ORDER BY cp.joined_at, cp.user_id`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListParticipants: %w", err)
	}
	defer rows.Close()

	var parts []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ContestID, &p.UserID, &p.Username, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListParticipants: scan: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *pgContestRepository) TransitionStates(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	goneLive, err := r.db.ExecContext(ctx,
		`UPDATE contests SET state = $1 WHERE state = $2 AND start_time <= $3 AND end_time > $3`,
		model.ContestLive, model.ContestScheduled, now,
	)
	if err != nil {
		return 0, fmt.Errorf("pgContestRepository.TransitionStates: live: %w", err)
	}
	if n, err := goneLive.RowsAffected(); err == nil {
		total += n
	}

	ended, err := r.db.ExecContext(ctx,
		`UPDATE contests SET state = $1 WHERE state IN ($2, $3) AND end_time <= $4`,
		model.ContestEnded, model.ContestScheduled, model.ContestLive, now,
	)
	if err != nil {
		return 0, fmt.Errorf("pgContestRepository.TransitionStates: ended: %w", err)
	}
	if n, err := ended.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}
