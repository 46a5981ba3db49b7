package judge_test

import (
	"context"
	"testing"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	subs        map[string]*model.Submission
	results     map[string][]model.TestcaseResult
	finalizeErr error
	claims      int
	finalizes   int
}

func newMemStore(subs ...*model.Submission) *memStore {
	s := &memStore{
		subs:    make(map[string]*model.Submission),
		results: make(map[string][]model.TestcaseResult),
	}
	for _, sub := range subs {
		s.subs[sub.ID] = sub
	}
	return s
}

func (s *memStore) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *memStore) ClaimForJudging(_ context.Context, id string) (bool, error) {
	s.claims++
	sub, ok := s.subs[id]
	if !ok || sub.Status != model.VerdictPending {
		return false, nil
	}
	sub.Status = model.VerdictRunning
	return true, nil
}

func (s *memStore) FinalizeJudgement(_ context.Context, id string, verdict model.Verdict, results []model.TestcaseResult) error {
	s.finalizes++
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	sub, ok := s.subs[id]
	if !ok || sub.Status != model.VerdictRunning {
		return common.ErrConflict
	}
	sub.Status = verdict
	sub.Results = results
	s.results[id] = results
	return nil
}

type memSpecs struct {
	spec *judge.TargetSpec
	err  error
}

func (s *memSpecs) SpecFor(_ context.Context, _ model.SubmissionTarget) (*judge.TargetSpec, error) {
	return s.spec, s.err
}

type memStats struct {
	recorded []string // "userID/problemID"
}

func (s *memStats) RecordSolved(_ context.Context, userID, problemID, _ string) error {
	s.recorded = append(s.recorded, userID+"/"+problemID)
	return nil
}

func acceptingRunner(t *testing.T) *judge.Runner {
	t.Helper()
	client := &fakeClient{execute: func(_ int, req judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput, TimeMs: 30}, nil
	}}
	return judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())
}

func pendingSubmission() *model.Submission {
	sub := pySubmission()
	sub.Status = model.VerdictPending
	return sub
}

func practiceSpec() *judge.TargetSpec {
	return &judge.TargetSpec{
		Limits:            judge.Limits{TimeMs: 1000, MemoryKB: 128000},
		Testcases:         makeTestcases("a", "b"),
		PracticeProblemID: "prob-1",
	}
}

func TestOrchestratorJudgesToTerminalVerdict(t *testing.T) {
	store := newMemStore(pendingSubmission())
	stats := &memStats{}
	orch := judge.NewOrchestrator(store, &memSpecs{spec: practiceSpec()}, acceptingRunner(t), stats, 1, testLogger())

	sub, err := orch.Judge(context.Background(), "sub-1")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictAC, sub.Status)
	assert.Len(t, sub.Results, 2)
	assert.Equal(t, model.VerdictAC, store.subs["sub-1"].Status, "verdict must be persisted")
	assert.Equal(t, []string{"user-1/prob-1"}, stats.recorded)
}

func TestOrchestratorIdempotentOnTerminal(t *testing.T) {
	done := pendingSubmission()
	done.Status = model.VerdictWA
	store := newMemStore(done)
	stats := &memStats{}
	orch := judge.NewOrchestrator(store, &memSpecs{spec: practiceSpec()}, acceptingRunner(t), stats, 1, testLogger())

	sub, err := orch.Judge(context.Background(), "sub-1")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictWA, sub.Status, "stored verdict returned unchanged")
	assert.Zero(t, store.claims, "no claim is attempted on a terminal submission")
	assert.Zero(t, store.finalizes)
	assert.Empty(t, stats.recorded)
}

func TestOrchestratorConflictWhileRunning(t *testing.T) {
	running := pendingSubmission()
	running.Status = model.VerdictRunning
	store := newMemStore(running)
	orch := judge.NewOrchestrator(store, &memSpecs{spec: practiceSpec()}, acceptingRunner(t), &memStats{}, 1, testLogger())

	_, err := orch.Judge(context.Background(), "sub-1")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestOrchestratorPersistFailureSurfaces(t *testing.T) {
	store := newMemStore(pendingSubmission())
	store.finalizeErr = common.Errorf("connection reset")
	stats := &memStats{}
	orch := judge.NewOrchestrator(store, &memSpecs{spec: practiceSpec()}, acceptingRunner(t), stats, 1, testLogger())

	_, err := orch.Judge(context.Background(), "sub-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOrchestrator)
	assert.Equal(t, model.VerdictRunning, store.subs["sub-1"].Status,
		"the submission stays claimed for the staleness sweep")
	assert.Empty(t, stats.recorded, "no stats on an unpersisted verdict")
}

func TestOrchestratorSpecFailureIsTerminalError(t *testing.T) {
	store := newMemStore(pendingSubmission())
	orch := judge.NewOrchestrator(store, &memSpecs{err: common.ErrNotFound}, acceptingRunner(t), &memStats{}, 1, testLogger())

	sub, err := orch.Judge(context.Background(), "sub-1")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictError, sub.Status,
		"a claimed submission must never be left without a terminal state")
	assert.Empty(t, sub.Results)
}

func TestOrchestratorContestACSkipsPracticeStats(t *testing.T) {
	contestID := "contest-1"
	sub := &model.Submission{
		ID:         "sub-2",
		UserID:     "user-1",
		Target:     model.ContestItemTarget("item-1"),
		ContestID:  &contestID,
		Language:   "PYTHON",
		SourceCode: "print(input())",
		Status:     model.VerdictPending,
	}
	store := newMemStore(sub)
	stats := &memStats{}
	spec := practiceSpec()
	spec.PracticeProblemID = ""
	orch := judge.NewOrchestrator(store, &memSpecs{spec: spec}, acceptingRunner(t), stats, 1, testLogger())

	judged, err := orch.Judge(context.Background(), "sub-2")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictAC, judged.Status)
	assert.Empty(t, stats.recorded, "contest submissions do not feed practice statistics")
}
