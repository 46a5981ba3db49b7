package service

import (
	"time"

	"codearena/internal/domain/model"
)

// Capability is what an actor may do with a submission. It replaces the
// per-view permission checks with a single function consumed uniformly by
// the API handlers; the judging engine itself stays policy-agnostic.
type Capability int

const (
	CapNone Capability = iota
	CapOwner
	CapContestManager
	CapSuperuser
)

// CapabilityFor classifies the actor against a submission and, for contest
// submissions, its contest. contest may be nil for practice submissions.
func CapabilityFor(actor *model.User, sub *model.Submission, contest *model.Contest) Capability {
	if actor == nil {
		return CapNone
	}
	if actor.IsAdmin() {
		return CapSuperuser
	}
	if actor.ID == sub.UserID {
		return CapOwner
	}
	if contest != nil && contest.IsManager(actor.ID) {
		return CapContestManager
	}
	return CapNone
}

// CanViewResultDetails decides whether a testcase result's captured details
// (input echo, stdout, stderr) are visible. Owners, managers and superusers
// always see them. Other viewers see sample results while a contest is live
// and everything once it has ended.
func CanViewResultDetails(cap Capability, contest *model.Contest, result *model.TestcaseResult, at time.Time) bool {
	switch cap {
	case CapSuperuser, CapOwner, CapContestManager:
		return true
	}
	if contest == nil {
		return false
	}
	if contest.Ended(at) {
		return true
	}
	if contest.Accepting(at) {
		return result.IsSample
	}
	return false
}
