package service

import (
	"context"

	"codearena/internal/app/judge"
	"codearena/internal/domain/repository"
)

// LeaderboardService assembles the inputs for ranking: the contest, its
// participants, its items and every contest submission, then hands them to
// judge.Rank. Ranking itself stays a pure function so it can be tested
// without a database.
type LeaderboardService struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
}

func NewLeaderboardService(contestRepo repository.ContestRepository, submissionRepo repository.SubmissionRepository) *LeaderboardService {
	return &LeaderboardService{contestRepo: contestRepo, submissionRepo: submissionRepo}
}

type Leaderboard struct {
	ContestID string           `json:"contest_id"`
	Title     string           `json:"title"`
	State     string           `json:"state"`
	Standings []judge.Standing `json:"standings"`
}

func (s *LeaderboardService) ContestLeaderboard(ctx context.Context, slug string) (*Leaderboard, error) {
	contest, err := s.contestRepo.FindContestBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	participants, err := s.contestRepo.ListParticipants(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.contestRepo.ListItems(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListContestSubmissions(ctx, contest.ID)
	if err != nil {
		return nil, err
	}

	return &Leaderboard{
		ContestID: contest.ID,
		Title:     contest.Title,
		State:     string(contest.State),
		Standings: judge.Rank(contest, participants, items, subs),
	}, nil
}
