package service

import (
	"context"
	"database/sql"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	db          *sql.DB
}

func NewProblemService(problemRepo repository.ProblemRepository, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, db: db}
}

type TestcaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsSample       bool   `json:"is_sample"`
	IsHidden       bool   `json:"is_hidden"`
}

type CreateProblemRequest struct {
	Title         string           `json:"title"`
	Statement     string           `json:"statement"`
	Difficulty    model.Difficulty `json:"difficulty"`
	TimeLimitMs   int              `json:"time_limit_ms"`
	MemoryLimitKB int              `json:"memory_limit_kb"`
	IsPublished   bool             `json:"is_published"`
	Testcases     []TestcaseInput  `json:"testcases"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, creatorID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Statement == "" {
		return nil, common.Errorf("title and statement are required: %w", common.ErrBadRequest)
	}
	if req.TimeLimitMs <= 0 {
		req.TimeLimitMs = 1000
	}
	if req.MemoryLimitKB <= 0 {
		req.MemoryLimitKB = 256000
	}

	problem := &model.Problem{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Slug:          slug.Make(req.Title),
		Statement:     req.Statement,
		Difficulty:    req.Difficulty,
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitKB: req.MemoryLimitKB,
		IsPublished:   req.IsPublished,
		CreatedByID:   &creatorID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddProblemTestcases(ctx, tx, problem.ID, toTestcases(req.Testcases)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit problem: %w", err)
	}
	return problem, nil
}

func toTestcases(inputs []TestcaseInput) []model.Testcase {
	tcs := make([]model.Testcase, 0, len(inputs))
	for i, in := range inputs {
		tcs = append(tcs, model.Testcase{
			ID:             uuid.NewString(),
			Input:          in.Input,
			ExpectedOutput: in.ExpectedOutput,
			IsSample:       in.IsSample,
			IsHidden:       in.IsHidden,
			SortOrder:      i + 1,
		})
	}
	return tcs
}

type CreateChallengeRequest struct {
	Title               string           `json:"title"`
	Statement           string           `json:"statement"`
	Difficulty          model.Difficulty `json:"difficulty"`
	TimeLimitMs         int              `json:"time_limit_ms"`
	MemoryLimitKB       int              `json:"memory_limit_kb"`
	AllowPublicPractice bool             `json:"allow_public_practice"`
	Testcases           []TestcaseInput  `json:"testcases"`
}

func (s *ProblemService) CreateChallenge(ctx context.Context, creatorID string, req CreateChallengeRequest) (*model.Challenge, error) {
	if req.Title == "" || req.Statement == "" {
		return nil, common.Errorf("title and statement are required: %w", common.ErrBadRequest)
	}
	if req.TimeLimitMs <= 0 {
		req.TimeLimitMs = 1000
	}
	if req.MemoryLimitKB <= 0 {
		req.MemoryLimitKB = 256000
	}

	challenge := &model.Challenge{
		ID:                  uuid.NewString(),
		Title:               req.Title,
		Slug:                slug.Make(req.Title),
		Statement:           req.Statement,
		Difficulty:          req.Difficulty,
		TimeLimitMs:         req.TimeLimitMs,
		MemoryLimitKB:       req.MemoryLimitKB,
		AllowPublicPractice: req.AllowPublicPractice,
		CreatedByID:         creatorID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateChallenge(ctx, tx, challenge); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddChallengeTestcases(ctx, tx, challenge.ID, toTestcases(req.Testcases)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit challenge: %w", err)
	}
	return challenge, nil
}

func (s *ProblemService) GetProblem(ctx context.Context, slugOrID string, includeHidden bool) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, slugOrID)
	if err != nil {
		return nil, err
	}
	tcs, err := s.problemRepo.ProblemTestcases(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	for _, tc := range tcs {
		if includeHidden || tc.IsSample {
			problem.Testcases = append(problem.Testcases, tc)
		}
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, limit, offset int, includeUnpublished bool) ([]model.Problem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.problemRepo.ListProblems(ctx, limit, offset, !includeUnpublished)
}
