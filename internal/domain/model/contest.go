package model

import "time"

type ContestState string

const (
	ContestDraft     ContestState = "DRAFT"
	ContestScheduled ContestState = "SCHEDULED"
	ContestLive      ContestState = "LIVE"
	ContestEnded     ContestState = "ENDED"
)

type Contest struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	State       ContestState `json:"state"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	IsPublic    bool         `json:"is_public"`
	CreatedByID string       `json:"created_by_id"`
	CreatedAt   time.Time    `json:"created_at"`

	ManagerIDs []string      `json:"manager_ids,omitempty"`
	Items      []ContestItem `json:"items,omitempty"`
}

// Accepting reports whether the contest takes submissions at t. The stored
// state is authoritative (the sweep keeps it current), the time window is a
// second check against a lagging sweep.
func (c *Contest) Accepting(t time.Time) bool {
	return c.State == ContestLive && !t.Before(c.StartTime) && t.Before(c.EndTime)
}

func (c *Contest) Ended(t time.Time) bool {
	return c.State == ContestEnded || !t.Before(c.EndTime)
}

func (c *Contest) IsManager(userID string) bool {
	if c.CreatedByID == userID {
		return true
	}
	for _, id := range c.ManagerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type ItemKind string

const (
	ItemProblem   ItemKind = "problem"
	ItemChallenge ItemKind = "challenge"
)

// ItemRef points at the exercise a contest item wraps: a problem or a
// challenge, never both.
type ItemRef struct {
	kind ItemKind
	id   string
}

func ProblemRef(problemID string) ItemRef { return ItemRef{kind: ItemProblem, id: problemID} }

func ChallengeRef(challengeID string) ItemRef {
	return ItemRef{kind: ItemChallenge, id: challengeID}
}

func (r ItemRef) Kind() ItemKind { return r.kind }
func (r ItemRef) ID() string     { return r.id }
func (r ItemRef) IsZero() bool   { return r.kind == "" }

// Columns splits the ref into the nullable column pair for persistence.
func (r ItemRef) Columns() (problemID, challengeID *string) {
	switch r.kind {
	case ItemProblem:
		return &r.id, nil
	case ItemChallenge:
		return nil, &r.id
	}
	return nil, nil
}

type ContestItem struct {
	ID        string   `json:"id"`
	ContestID string   `json:"contest_id"`
	Item      ItemRef  `json:"-"`
	ItemKind  ItemKind `json:"item_kind"`
	SortOrder int      `json:"sort_order"`
	Score     int      `json:"score"`

	Title *string `json:"title,omitempty"` // display-only join
}

type Participant struct {
	ContestID string    `json:"contest_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	JoinedAt  time.Time `json:"joined_at"`
}
