package service

import (
	"context"
	"database/sql"
	"time"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
)

// SubmissionService accepts new submissions, hands them to the orchestrator
// and exposes judged results under the capability policy. Judging is
// synchronous: the caller gets a terminal verdict or an explicit failure,
// never a silently stuck PENDING submission.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	contestRepo    repository.ContestRepository
	userRepo       repository.UserRepository
	registry       *judge.Registry
	orchestrator   *judge.Orchestrator
	db             *sql.DB
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	contestRepo repository.ContestRepository,
	userRepo repository.UserRepository,
	registry *judge.Registry,
	orchestrator *judge.Orchestrator,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		contestRepo:    contestRepo,
		userRepo:       userRepo,
		registry:       registry,
		orchestrator:   orchestrator,
		db:             db,
	}
}

type CreateSubmissionRequest struct {
	ProblemSlug string `json:"problem_slug"`
	Language    string `json:"language"`
	SourceCode  string `json:"source_code"`
}

// CreatePracticeSubmission validates, persists and judges one practice
// submission against a published problem.
func (s *SubmissionService) CreatePracticeSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if req.ProblemSlug == "" || req.SourceCode == "" {
		return nil, common.Errorf("problem and source code are required: %w", common.ErrBadRequest)
	}
	// Reject unsupported languages before judging starts.
	if _, err := s.registry.Lookup(req.Language); err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemBySlug(ctx, req.ProblemSlug)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if !problem.IsPublished {
		return nil, common.Errorf("problem is not published: %w", common.ErrForbidden)
	}

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		Target:     model.ProblemTarget(problem.ID),
		Language:   req.Language,
		SourceCode: req.SourceCode,
		Status:     model.VerdictPending,
	}
	if err := s.submissionRepo.CreateSubmission(ctx, nil, sub); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	return s.orchestrator.Judge(ctx, sub.ID)
}

type CreateContestSubmissionRequest struct {
	ContestItemID string `json:"contest_item_id"`
	Language      string `json:"language"`
	SourceCode    string `json:"source_code"`
}

// CreateContestSubmission validates contest state and participation, then
// persists and judges one contest submission.
func (s *SubmissionService) CreateContestSubmission(ctx context.Context, userID, contestSlug string, req CreateContestSubmissionRequest) (*model.Submission, error) {
	if req.ContestItemID == "" || req.SourceCode == "" {
		return nil, common.Errorf("contest item and source code are required: %w", common.ErrBadRequest)
	}
	if _, err := s.registry.Lookup(req.Language); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.FindContestBySlug(ctx, contestSlug)
	if err != nil {
		return nil, common.Errorf("contest not found: %w", err)
	}
	if !contest.Accepting(time.Now()) {
		return nil, common.Errorf("contest is not accepting submissions: %w", common.ErrForbidden)
	}

	participant, err := s.contestRepo.IsParticipant(ctx, contest.ID, userID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, common.Errorf("not a participant of this contest: %w", common.ErrForbidden)
	}

	item, err := s.contestRepo.FindItemByID(ctx, req.ContestItemID)
	if err != nil {
		return nil, common.Errorf("contest item not found: %w", err)
	}

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		Target:     model.ContestItemTarget(item.ID),
		ContestID:  &contest.ID,
		Language:   req.Language,
		SourceCode: req.SourceCode,
		Status:     model.VerdictPending,
	}
	if err := sub.ValidateAgainstItem(item); err != nil {
		return nil, err
	}
	if err := s.submissionRepo.CreateSubmission(ctx, nil, sub); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	return s.orchestrator.Judge(ctx, sub.ID)
}

// GetSubmission returns a submission with its testcase results filtered by
// the capability of the viewing actor.
func (s *SubmissionService) GetSubmission(ctx context.Context, actorID, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var contest *model.Contest
	if sub.ContestID != nil {
		contest, err = s.contestRepo.FindContestByID(ctx, *sub.ContestID)
		if err != nil {
			return nil, err
		}
	}

	cap := CapabilityFor(actor, sub, contest)
	if cap == CapNone && contest == nil {
		// Practice submissions are private to their owner.
		return nil, common.ErrForbidden
	}

	results, err := s.submissionRepo.GetTestcaseResults(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range results {
		if !CanViewResultDetails(cap, contest, &results[i], now) {
			results[i].Stdout = ""
			results[i].Stderr = ""
		}
	}
	sub.Results = results
	if cap == CapNone {
		sub.SourceCode = ""
	}
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListSubmissionsByUser(ctx, userID, limit, offset)
}
