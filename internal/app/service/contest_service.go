package service

import (
	"context"
	"database/sql"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ContestService struct {
	contestRepo repository.ContestRepository
	problemRepo repository.ProblemRepository
	db          *sql.DB
}

func NewContestService(contestRepo repository.ContestRepository, problemRepo repository.ProblemRepository, db *sql.DB) *ContestService {
	return &ContestService{contestRepo: contestRepo, problemRepo: problemRepo, db: db}
}

type CreateContestRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsPublic    bool      `json:"is_public"`
}

func (s *ContestService) CreateContest(ctx context.Context, creatorID string, req CreateContestRequest) (*model.Contest, error) {
	if req.Title == "" {
		return nil, common.Errorf("title is required: %w", common.ErrBadRequest)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, common.Errorf("end_time must be after start_time: %w", common.ErrValidation)
	}

	state := model.ContestScheduled
	now := time.Now()
	if !now.Before(req.StartTime) && now.Before(req.EndTime) {
		state = model.ContestLive
	}

	contest := &model.Contest{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		State:       state,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublic:    req.IsPublic,
		CreatedByID: creatorID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.contestRepo.CreateContest(ctx, tx, contest); err != nil {
		return nil, err
	}
	if err := s.contestRepo.AddManager(ctx, tx, contest.ID, creatorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit contest: %w", err)
	}
	contest.ManagerIDs = []string{creatorID}
	return contest, nil
}

func (s *ContestService) GetContest(ctx context.Context, slugOrID string) (*model.Contest, error) {
	contest, err := s.contestRepo.FindContestBySlug(ctx, slugOrID)
	if err != nil {
		return nil, err
	}
	items, err := s.contestRepo.ListItems(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	contest.Items = items
	return contest, nil
}

func (s *ContestService) ListContests(ctx context.Context, limit, offset int) ([]model.Contest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.contestRepo.ListContests(ctx, limit, offset)
}

type AddItemRequest struct {
	ProblemID   *string `json:"problem_id,omitempty"`
	ChallengeID *string `json:"challenge_id,omitempty"`
	SortOrder   int     `json:"sort_order"`
	Score       int     `json:"score"`
}

// AddItem attaches a problem or challenge to a contest. Only the contest's
// managers (or an admin) may do this, and only before the contest ends.
func (s *ContestService) AddItem(ctx context.Context, actor *model.User, contestID string, req AddItemRequest) (*model.ContestItem, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !contest.IsManager(actor.ID) && actor.Role != model.RoleAdmin {
		return nil, common.Errorf("only contest managers may add items: %w", common.ErrForbidden)
	}
	if contest.Ended(time.Now()) {
		return nil, common.Errorf("contest has ended: %w", common.ErrConflict)
	}

	var ref model.ItemRef
	switch {
	case req.ProblemID != nil && req.ChallengeID == nil:
		if _, err := s.problemRepo.FindProblemByID(ctx, *req.ProblemID); err != nil {
			return nil, err
		}
		ref = model.ProblemRef(*req.ProblemID)
	case req.ProblemID == nil && req.ChallengeID != nil:
		if _, err := s.problemRepo.FindChallengeByID(ctx, *req.ChallengeID); err != nil {
			return nil, err
		}
		ref = model.ChallengeRef(*req.ChallengeID)
	default:
		return nil, common.Errorf("item must reference exactly one of problem_id or challenge_id: %w", common.ErrValidation)
	}

	if req.Score <= 0 {
		req.Score = 100
	}

	item := &model.ContestItem{
		ID:        uuid.NewString(),
		ContestID: contest.ID,
		Item:      ref,
		ItemKind:  ref.Kind(),
		SortOrder: req.SortOrder,
		Score:     req.Score,
	}
	if err := s.contestRepo.AddItem(ctx, nil, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Join registers the user as a participant. Joining is idempotent and allowed
// while the contest is scheduled or live; an ended contest takes no entrants.
func (s *ContestService) Join(ctx context.Context, userID, contestID string) error {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Ended(time.Now()) {
		return common.Errorf("contest has ended: %w", common.ErrConflict)
	}
	if !contest.IsPublic && !contest.IsManager(userID) {
		return common.Errorf("contest is private: %w", common.ErrForbidden)
	}
	return s.contestRepo.Join(ctx, contest.ID, userID)
}
