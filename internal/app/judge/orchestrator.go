package judge

import (
	"context"
	"log/slog"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/cenkalti/backoff/v4"
)

// TargetSpec is everything the engine needs to judge one submission target:
// the base resource limits and the ordered testcases. PracticeProblemID is
// set when the target is a practice problem, for the statistics trigger.
type TargetSpec struct {
	Limits            Limits
	Testcases         []model.Testcase
	PracticeProblemID string
}

// SpecSource resolves a submission target into its judging spec. Supplied by
// the problem/challenge collaborator; read-only from the engine's side.
type SpecSource interface {
	SpecFor(ctx context.Context, target model.SubmissionTarget) (*TargetSpec, error)
}

// SubmissionStore is the persistence boundary the orchestrator depends on.
type SubmissionStore interface {
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// ClaimForJudging transitions PENDING to RUNNING and reports whether this
	// caller won the claim. The check is persisted, so the at-most-once guard
	// survives process restarts.
	ClaimForJudging(ctx context.Context, id string) (bool, error)
	// FinalizeJudgement commits the terminal verdict together with all
	// testcase results in one transaction.
	FinalizeJudgement(ctx context.Context, id string, verdict model.Verdict, results []model.TestcaseResult) error
}

// StatsRecorder consumes "user solved a practice problem" events. RecordSolved
// must be idempotent: re-judging never double-counts.
type StatsRecorder interface {
	RecordSolved(ctx context.Context, userID, problemID, submissionID string) error
}

// Orchestrator owns the submission lifecycle state machine
// PENDING -> RUNNING -> terminal verdict. One orchestrator run exclusively
// owns its submission row; concurrent judging of different submissions never
// contends.
type Orchestrator struct {
	subs        SubmissionStore
	specs       SpecSource
	runner      *Runner
	stats       StatsRecorder
	maxAttempts uint64 // persistence attempts before giving up
	logger      *slog.Logger
}

func NewOrchestrator(subs SubmissionStore, specs SpecSource, runner *Runner, stats StatsRecorder, maxPersistAttempts int, logger *slog.Logger) *Orchestrator {
	if maxPersistAttempts < 1 {
		maxPersistAttempts = 1
	}
	return &Orchestrator{
		subs:        subs,
		specs:       specs,
		runner:      runner,
		stats:       stats,
		maxAttempts: uint64(maxPersistAttempts),
		logger:      logger,
	}
}

// Judge runs the submission to a terminal verdict and returns the submission
// as persisted. Re-invoking on an already-terminal submission is a no-op that
// returns the stored result unchanged; invoking while another run holds the
// claim fails with ErrConflict.
func (o *Orchestrator) Judge(ctx context.Context, submissionID string) (*model.Submission, error) {
	sub, err := o.subs.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, common.Errorf("load submission %s: %w", submissionID, err)
	}
	if sub.Status.Terminal() {
		return sub, nil
	}

	claimed, err := o.subs.ClaimForJudging(ctx, sub.ID)
	if err != nil {
		return nil, common.Errorf("claim submission %s: %w", sub.ID, err)
	}
	if !claimed {
		// Either a concurrent run holds it, or it went terminal between the
		// read and the claim. Re-read to tell the two apart.
		sub, err = o.subs.GetSubmissionByID(ctx, sub.ID)
		if err != nil {
			return nil, common.Errorf("re-read submission %s: %w", submissionID, err)
		}
		if sub.Status.Terminal() {
			return sub, nil
		}
		return nil, common.Errorf("submission %s is already being judged: %w", sub.ID, common.ErrConflict)
	}
	sub.Status = model.VerdictRunning

	verdict, results, spec := o.judgeClaimed(ctx, sub)

	if err := o.persist(ctx, sub.ID, verdict, results); err != nil {
		// The submission stays RUNNING; the staleness sweep will re-offer it.
		// Never report a verdict the store does not hold.
		o.logger.Error("failed to persist judged result", "submission_id", sub.ID, "verdict", verdict, "error", err)
		return nil, common.Errorf("submission %s: %v: %w", sub.ID, err, common.ErrOrchestrator)
	}

	sub.Status = verdict
	sub.Results = results
	sub.UpdatedAt = time.Now()

	if verdict == model.VerdictAC && spec != nil {
		o.recordSolved(ctx, sub, spec.PracticeProblemID)
	}

	o.logger.Info("submission judged",
		"submission_id", sub.ID, "verdict", verdict, "testcases", len(results))
	return sub, nil
}

// judgeClaimed resolves the target spec and runs the testcases. Any failure
// to even assemble the run collapses into a terminal ERROR verdict: a claimed
// submission must never be left without a terminal state.
func (o *Orchestrator) judgeClaimed(ctx context.Context, sub *model.Submission) (model.Verdict, []model.TestcaseResult, *TargetSpec) {
	spec, err := o.specs.SpecFor(ctx, sub.Target)
	if err != nil {
		o.logger.Error("could not resolve judging spec", "submission_id", sub.ID, "error", err)
		return model.VerdictError, nil, nil
	}
	verdict, results := o.runner.Run(ctx, sub, spec.Limits, spec.Testcases)
	return verdict, results, spec
}

func (o *Orchestrator) persist(ctx context.Context, id string, verdict model.Verdict, results []model.TestcaseResult) error {
	op := func() error {
		return o.subs.FinalizeJudgement(ctx, id, verdict, results)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.maxAttempts-1), ctx)
	return backoff.Retry(op, policy)
}

// recordSolved fires the statistics trigger for a fresh practice AC. The
// recorder is idempotent, so a lost error here can at worst delay the count,
// never corrupt it.
func (o *Orchestrator) recordSolved(ctx context.Context, sub *model.Submission, problemID string) {
	if problemID == "" {
		return // contest submissions do not feed practice statistics
	}
	if err := o.stats.RecordSolved(ctx, sub.UserID, problemID, sub.ID); err != nil {
		o.logger.Warn("failed to record solved problem",
			"submission_id", sub.ID, "problem_id", problemID, "error", err)
	}
}
