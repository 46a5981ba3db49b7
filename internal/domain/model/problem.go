package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type Problem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Statement     string     `json:"statement"`
	Difficulty    Difficulty `json:"difficulty"`
	TimeLimitMs   int        `json:"time_limit_ms"`
	MemoryLimitKB int        `json:"memory_limit_kb"`
	IsPublished   bool       `json:"is_published"`
	CreatedByID   *string    `json:"created_by_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Testcases []Testcase `json:"testcases,omitempty"` // admin view only
}

// Challenge is a manager-authored contest exercise. It can become public
// practice after its contest ends when AllowPublicPractice is set.
type Challenge struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Slug                string     `json:"slug"`
	Statement           string     `json:"statement"`
	Difficulty          Difficulty `json:"difficulty"`
	TimeLimitMs         int        `json:"time_limit_ms"`
	MemoryLimitKB       int        `json:"memory_limit_kb"`
	AllowPublicPractice bool       `json:"allow_public_practice"`
	CreatedByID         string     `json:"created_by_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Testcase is one (input, expected output) pair used for judging. Sample
// testcases are shown to users; hidden ones never are while a contest is live.
type Testcase struct {
	ID             string    `json:"id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	IsSample       bool      `json:"is_sample"`
	IsHidden       bool      `json:"is_hidden"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}
