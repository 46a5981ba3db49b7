package judge_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls    int
	execute  func(call int, req judge.ExecRequest) (judge.RawOutcome, error)
	requests []judge.ExecRequest
}

func (c *fakeClient) Execute(_ context.Context, req judge.ExecRequest) (judge.RawOutcome, error) {
	c.calls++
	c.requests = append(c.requests, req)
	return c.execute(c.calls, req)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *judge.Registry {
	t.Helper()
	reg, err := judge.NewRegistry("")
	require.NoError(t, err)
	return reg
}

func pySubmission() *model.Submission {
	return &model.Submission{
		ID:         "sub-1",
		UserID:     "user-1",
		Target:     model.ProblemTarget("prob-1"),
		Language:   "PYTHON",
		SourceCode: "print(input())",
		Status:     model.VerdictRunning,
	}
}

func makeTestcases(expected ...string) []model.Testcase {
	tcs := make([]model.Testcase, 0, len(expected))
	for i, want := range expected {
		tcs = append(tcs, model.Testcase{
			ID:             "tc-" + want,
			Input:          "in-" + want,
			ExpectedOutput: want,
			SortOrder:      i + 1,
			CreatedAt:      time.Now(),
		})
	}
	return tcs
}

func TestRunnerAllAccepted(t *testing.T) {
	client := &fakeClient{execute: func(_ int, req judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput, TimeMs: 40, MemoryKB: 9000}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 1, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a", "b"))

	assert.Equal(t, model.VerdictAC, verdict)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.VerdictAC, r.Status)
		assert.Equal(t, "sub-1", r.SubmissionID)
	}
	assert.Equal(t, "tc-a", results[0].TestcaseID)
	assert.Equal(t, "tc-b", results[1].TestcaseID)
}

func TestRunnerLanguageLimitsScaled(t *testing.T) {
	client := &fakeClient{execute: func(_ int, req judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())

	// PYTHON doubles the time limit and leaves memory untouched
	runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a"))

	require.Len(t, client.requests, 1)
	assert.Equal(t, 2000, client.requests[0].Limits.TimeMs)
	assert.Equal(t, 128000, client.requests[0].Limits.MemoryKB)
}

func TestRunnerStopsOnFirstFailure(t *testing.T) {
	client := &fakeClient{execute: func(call int, req judge.ExecRequest) (judge.RawOutcome, error) {
		if call == 2 {
			return judge.RawOutcome{StatusID: 4, Stdout: "wrong"}, nil
		}
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a", "b", "c"))

	assert.Equal(t, model.VerdictWA, verdict)
	assert.Len(t, results, 2, "third testcase must not run")
	assert.Equal(t, 2, client.calls)
}

func TestRunnerRunAllKeepsFirstFailureVerdict(t *testing.T) {
	client := &fakeClient{execute: func(call int, req judge.ExecRequest) (judge.RawOutcome, error) {
		switch call {
		case 1:
			return judge.RawOutcome{StatusID: 5}, nil // TLE
		case 2:
			return judge.RawOutcome{StatusID: 4, Stdout: "wrong"}, nil
		default:
			return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
		}
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.RunAll, 0, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a", "b", "c"))

	assert.Equal(t, model.VerdictTLE, verdict, "first failure wins, not the worst")
	assert.Len(t, results, 3)
}

func TestRunnerCompileErrorShortCircuits(t *testing.T) {
	client := &fakeClient{execute: func(_ int, _ judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 6, Stderr: "syntax error"}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a", "b", "c"))

	assert.Equal(t, model.VerdictCE, verdict)
	assert.Empty(t, results, "a compile error persists no testcase rows")
	assert.Equal(t, 1, client.calls)
}

func TestRunnerRetriesTransientFailure(t *testing.T) {
	client := &fakeClient{execute: func(call int, req judge.ExecRequest) (judge.RawOutcome, error) {
		if call == 1 {
			return judge.RawOutcome{}, common.Errorf("connection refused: %w", common.ErrExecutorUnreachable)
		}
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 1, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a"))

	assert.Equal(t, model.VerdictAC, verdict, "one transient failure must not fail the submission")
	require.Len(t, results, 1)
	assert.Equal(t, 2, client.calls)
}

func TestRunnerExhaustedRetriesYieldError(t *testing.T) {
	client := &fakeClient{execute: func(_ int, _ judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{}, common.Errorf("connection refused: %w", common.ErrExecutorUnreachable)
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 1, testLogger())

	verdict, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a", "b"))

	assert.Equal(t, model.VerdictError, verdict)
	require.Len(t, results, 1, "stop-on-first-failure applies to ERROR too")
	assert.Equal(t, model.VerdictError, results[0].Status)
	assert.Equal(t, 2, client.calls, "initial attempt plus one retry")
}

func TestRunnerProtocolErrorNotRetried(t *testing.T) {
	client := &fakeClient{execute: func(_ int, _ judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{}, common.Errorf("garbage: %w", common.ErrExecutorProtocol)
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 3, testLogger())

	verdict, _ := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a"))

	assert.Equal(t, model.VerdictError, verdict)
	assert.Equal(t, 1, client.calls, "only unreachable errors are retried")
}

func TestRunnerTestcaseOrder(t *testing.T) {
	client := &fakeClient{execute: func(_ int, req judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())

	base := time.Now()
	tcs := []model.Testcase{
		{ID: "tc-late", ExpectedOutput: "x", SortOrder: 2, CreatedAt: base},
		{ID: "tc-tie-new", ExpectedOutput: "y", SortOrder: 1, CreatedAt: base.Add(time.Second)},
		{ID: "tc-tie-old", ExpectedOutput: "z", SortOrder: 1, CreatedAt: base},
	}

	_, results := runner.Run(context.Background(), pySubmission(),
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, tcs)

	require.Len(t, results, 3)
	assert.Equal(t, "tc-tie-old", results[0].TestcaseID)
	assert.Equal(t, "tc-tie-new", results[1].TestcaseID)
	assert.Equal(t, "tc-late", results[2].TestcaseID)
}

func TestRunnerUnknownLanguage(t *testing.T) {
	client := &fakeClient{execute: func(_ int, req judge.ExecRequest) (judge.RawOutcome, error) {
		return judge.RawOutcome{StatusID: 3, Stdout: req.ExpectedOutput}, nil
	}}
	runner := judge.NewRunner(client, testRegistry(t), judge.StopOnFirstFailure, 0, testLogger())

	sub := pySubmission()
	sub.Language = "BRAINFUCK"
	verdict, results := runner.Run(context.Background(), sub,
		judge.Limits{TimeMs: 1000, MemoryKB: 128000}, makeTestcases("a"))

	assert.Equal(t, model.VerdictError, verdict)
	assert.Empty(t, results)
	assert.Zero(t, client.calls)
}
