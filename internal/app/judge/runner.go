package judge

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/google/uuid"
)

// Policy decides what happens after a non-AC testcase verdict.
type Policy string

const (
	// StopOnFirstFailure halts the run at the first non-AC testcase. This is
	// the default: it minimizes backend load under binary scoring.
	StopOnFirstFailure Policy = "stop_on_first_failure"
	// RunAll keeps judging every testcase, for partial-credit analytics.
	RunAll Policy = "run_all"
)

func ParsePolicy(s string) Policy {
	if Policy(s) == RunAll {
		return RunAll
	}
	return StopOnFirstFailure
}

// Runner judges all testcases of one submission sequentially against the
// execution client and aggregates the per-testcase verdicts into one final
// submission verdict. A single submission's testcases are never run in
// parallel; that keeps backend load predictable and preserves the early-exit
// savings.
type Runner struct {
	client     Client
	registry   *Registry
	policy     Policy
	maxRetries int // transient-failure retries per testcase
	logger     *slog.Logger
}

func NewRunner(client Client, registry *Registry, policy Policy, maxRetries int, logger *slog.Logger) *Runner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Runner{
		client:     client,
		registry:   registry,
		policy:     policy,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Run judges the submission against the given testcases under the problem's
// base limits. It returns the final verdict plus the testcase results to
// persist. A compile error short-circuits with no results: compilation is
// backend-global, so the remaining testcases were never attempted. Total
// backend failure still yields a terminal ERROR verdict, never an error.
func (r *Runner) Run(ctx context.Context, sub *model.Submission, base Limits, testcases []model.Testcase) (model.Verdict, []model.TestcaseResult) {
	lang, err := r.registry.Lookup(sub.Language)
	if err != nil {
		// Unsupported languages are rejected before judging starts; hitting
		// this means the registry changed under a stored submission.
		r.logger.Error("submission carries unregistered language", "submission_id", sub.ID, "language", sub.Language)
		return model.VerdictError, nil
	}
	limits := lang.Scale(base)

	ordered := make([]model.Testcase, len(testcases))
	copy(ordered, testcases)
	// Stable order defines which failure is "first" and must be reproducible.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	final := model.VerdictAC
	var results []model.TestcaseResult

	for _, tc := range ordered {
		raw, execErr := r.executeWithRetry(ctx, ExecRequest{
			SourceCode:     sub.SourceCode,
			LanguageID:     lang.BackendID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Limits:         limits,
		})

		var status model.Verdict
		var stdout, stderr string
		var timeMs, memKB int
		if execErr != nil {
			// A backend hiccup must not silently fail an otherwise-correct
			// solution; the retry already happened, so this testcase is a
			// judge-system failure, visible to the user as ERROR.
			r.logger.Error("testcase execution failed after retries",
				"submission_id", sub.ID, "testcase_id", tc.ID, "error", execErr)
			status = model.VerdictError
			stderr = execErr.Error()
		} else {
			status = Classify(raw, tc.ExpectedOutput, limits)
			stdout = raw.Stdout
			stderr = raw.Stderr
			timeMs = raw.TimeMs
			memKB = raw.MemoryKB
		}

		if status == model.VerdictCE {
			// Nothing ran; discard any accumulated results so a CE
			// submission persists zero testcase rows.
			return model.VerdictCE, nil
		}

		results = append(results, model.TestcaseResult{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			TestcaseID:   tc.ID,
			IsSample:     tc.IsSample,
			Status:       status,
			Stdout:       stdout,
			Stderr:       stderr,
			TimeMs:       timeMs,
			MemoryKB:     memKB,
			CreatedAt:    time.Now(),
		})

		if status != model.VerdictAC && final == model.VerdictAC {
			final = status // first failure in stable order
		}
		if final != model.VerdictAC && r.policy == StopOnFirstFailure {
			break
		}
	}

	return final, results
}

func (r *Runner) executeWithRetry(ctx context.Context, req ExecRequest) (RawOutcome, error) {
	raw, err := r.client.Execute(ctx, req)
	for attempt := 0; attempt < r.maxRetries && errors.Is(err, common.ErrExecutorUnreachable); attempt++ {
		r.logger.Warn("execution backend unreachable, retrying testcase", "attempt", attempt+1)
		raw, err = r.client.Execute(ctx, req)
	}
	return raw, err
}
