package judge

import (
	"sort"
	"time"

	"codearena/internal/domain/model"
)

// ItemStanding is one participant's state on one contest item.
type ItemStanding struct {
	ItemID     string `json:"item_id"`
	Title      string `json:"title,omitempty"`
	Solved     bool   `json:"solved"`
	Attempts   int    `json:"attempts"`
	PenaltyMin int    `json:"penalty_min"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank         int            `json:"rank"`
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	TotalScore   int            `json:"total_score"`
	TotalPenalty int            `json:"total_penalty_min"`
	Items        []ItemStanding `json:"items"`
}

// Rank derives the contest leaderboard from persisted verdict history. It is
// a pure read-time computation: it takes no locks and mutates nothing, so it
// tolerates running while submissions are mid-judging (those are simply not
// yet AC and not counted).
//
// Scoring: the first AC submission per item awards the item's full score and
// a penalty of whole minutes from contest start to that submission, floored
// at zero. Attempts count judged submissions up to and including the first
// AC; mid-judging rows, judge-system failures, and submissions made after
// the solve are not the user's doing and are excluded. Rows order by total
// score descending, then total penalty ascending; ties keep the
// participants' input order (stable sort), and participants with no
// submissions still appear with score zero.
func Rank(contest *model.Contest, participants []model.Participant, items []model.ContestItem, subs []model.Submission) []Standing {
	// First AC and attempt counts per (user, item), submissions in creation
	// order so "first" is well defined.
	ordered := make([]model.Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	type pair struct{ user, item string }
	attempts := make(map[pair]int)
	firstAC := make(map[pair]time.Time)
	for _, s := range ordered {
		itemID, ok := s.Target.ContestItemID()
		if !ok {
			continue
		}
		p := pair{user: s.UserID, item: itemID}
		if _, solved := firstAC[p]; solved {
			continue // nothing after the first AC changes the cell
		}
		if !s.Status.Terminal() || s.Status == model.VerdictError {
			continue // mid-judging rows and judge failures are not attempts
		}
		attempts[p]++
		if s.Status == model.VerdictAC {
			firstAC[p] = s.CreatedAt
		}
	}

	standings := make([]Standing, 0, len(participants))
	for _, part := range participants {
		row := Standing{
			UserID:   part.UserID,
			Username: part.Username,
			Items:    make([]ItemStanding, 0, len(items)),
		}
		for _, item := range items {
			is := ItemStanding{ItemID: item.ID}
			if item.Title != nil {
				is.Title = *item.Title
			}
			p := pair{user: part.UserID, item: item.ID}
			is.Attempts = attempts[p]
			if acAt, ok := firstAC[p]; ok {
				is.Solved = true
				is.PenaltyMin = penaltyMinutes(contest.StartTime, acAt)
				row.TotalScore += item.Score
				row.TotalPenalty += is.PenaltyMin
			}
			row.Items = append(row.Items, is)
		}
		standings = append(standings, row)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].TotalScore != standings[j].TotalScore {
			return standings[i].TotalScore > standings[j].TotalScore
		}
		return standings[i].TotalPenalty < standings[j].TotalPenalty
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

func penaltyMinutes(contestStart, solvedAt time.Time) int {
	if solvedAt.Before(contestStart) {
		return 0
	}
	return int(solvedAt.Sub(contestStart) / time.Minute)
}
