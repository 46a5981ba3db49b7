package model

import (
	"time"

	"codearena/internal/common"
)

type TargetKind string

const (
	TargetProblem     TargetKind = "problem"      // practice submission
	TargetContestItem TargetKind = "contest_item" // contest submission
)

// SubmissionTarget is the one thing a submission is judged against: either a
// practice problem or a contest item. The zero value is invalid, and both-set
// is unrepresentable, so the "exactly one target" rule holds by construction.
type SubmissionTarget struct {
	kind TargetKind
	id   string
}

func ProblemTarget(problemID string) SubmissionTarget {
	return SubmissionTarget{kind: TargetProblem, id: problemID}
}

func ContestItemTarget(contestItemID string) SubmissionTarget {
	return SubmissionTarget{kind: TargetContestItem, id: contestItemID}
}

// NewSubmissionTarget rebuilds a target from the two nullable columns the
// submissions table stores. Exactly one must be non-nil.
func NewSubmissionTarget(problemID, contestItemID *string) (SubmissionTarget, error) {
	switch {
	case problemID != nil && contestItemID == nil:
		return ProblemTarget(*problemID), nil
	case problemID == nil && contestItemID != nil:
		return ContestItemTarget(*contestItemID), nil
	default:
		return SubmissionTarget{}, common.Errorf("submission must target exactly one of problem or contest item: %w", common.ErrValidation)
	}
}

func (t SubmissionTarget) Kind() TargetKind { return t.kind }
func (t SubmissionTarget) ID() string       { return t.id }
func (t SubmissionTarget) IsZero() bool     { return t.kind == "" }

// ProblemID returns the target problem id when the target is a practice problem.
func (t SubmissionTarget) ProblemID() (string, bool) {
	if t.kind == TargetProblem {
		return t.id, true
	}
	return "", false
}

// ContestItemID returns the target contest item id when the target is a contest item.
func (t SubmissionTarget) ContestItemID() (string, bool) {
	if t.kind == TargetContestItem {
		return t.id, true
	}
	return "", false
}

// Columns splits the target back into the nullable column pair for persistence.
func (t SubmissionTarget) Columns() (problemID, contestItemID *string) {
	switch t.kind {
	case TargetProblem:
		return &t.id, nil
	case TargetContestItem:
		return nil, &t.id
	}
	return nil, nil
}

type Submission struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Target     SubmissionTarget `json:"-"`
	ContestID  *string          `json:"contest_id,omitempty"`
	Language   string           `json:"language"`
	SourceCode string           `json:"source_code,omitempty"`
	Status     Verdict          `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`

	Results []TestcaseResult `json:"results,omitempty"`

	// Display-only joins.
	Username    *string `json:"username,omitempty"`
	TargetTitle *string `json:"target_title,omitempty"`
}

// Validate enforces the submission consistency rules: a target must be set,
// and a contest reference is present iff the target is a contest item.
// Matching the contest item against its parent contest needs the item itself,
// see ValidateAgainstItem.
func (s *Submission) Validate() error {
	if s.Target.IsZero() {
		return common.Errorf("submission has no target: %w", common.ErrValidation)
	}
	_, isContest := s.Target.ContestItemID()
	if isContest && s.ContestID == nil {
		return common.Errorf("contest submission must reference its contest: %w", common.ErrValidation)
	}
	if !isContest && s.ContestID != nil {
		return common.Errorf("practice submission must not reference a contest: %w", common.ErrValidation)
	}
	return nil
}

// ValidateAgainstItem additionally checks that the referenced contest is the
// target contest item's parent.
func (s *Submission) ValidateAgainstItem(item *ContestItem) error {
	if err := s.Validate(); err != nil {
		return err
	}
	itemID, ok := s.Target.ContestItemID()
	if !ok {
		return nil
	}
	if item == nil || item.ID != itemID {
		return common.Errorf("contest item %s not loaded for validation: %w", itemID, common.ErrValidation)
	}
	if s.ContestID == nil || *s.ContestID != item.ContestID {
		return common.Errorf("contest item does not belong to the referenced contest: %w", common.ErrValidation)
	}
	return nil
}

// TestcaseResult is one row per (submission, testcase) pair. The sample flag
// is cached at creation time so later edits to the source testcase cannot
// retroactively change what a viewer was allowed to see.
type TestcaseResult struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	TestcaseID   string    `json:"testcase_id"`
	IsSample     bool      `json:"is_sample"`
	Status       Verdict   `json:"status"`
	Stdout       string    `json:"stdout,omitempty"`
	Stderr       string    `json:"stderr,omitempty"`
	TimeMs       int       `json:"time_ms"`
	MemoryKB     int       `json:"memory_kb"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *TestcaseResult) Passed() bool { return r.Status == VerdictAC }
