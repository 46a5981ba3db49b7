package model

// Verdict is the canonical outcome classification for submissions and
// individual testcase results. PENDING and RUNNING are lifecycle states;
// everything else is terminal.
type Verdict string

const (
	VerdictPending Verdict = "PENDING"
	VerdictRunning Verdict = "RUNNING"

	VerdictAC    Verdict = "AC"    // accepted
	VerdictWA    Verdict = "WA"    // wrong answer
	VerdictTLE   Verdict = "TLE"   // time limit exceeded
	VerdictMLE   Verdict = "MLE"   // memory limit exceeded
	VerdictRE    Verdict = "RE"    // runtime error
	VerdictCE    Verdict = "CE"    // compile error
	VerdictError Verdict = "ERROR" // judge-system failure
)

// badness orders terminal verdicts for aggregation. Lower is better.
var badness = map[Verdict]int{
	VerdictAC:    0,
	VerdictWA:    1,
	VerdictTLE:   2,
	VerdictMLE:   3,
	VerdictRE:    4,
	VerdictCE:    5,
	VerdictError: 6,
}

func (v Verdict) Terminal() bool {
	_, ok := badness[v]
	return ok
}

// WorseThan reports whether v ranks above o in the badness order.
// Non-terminal verdicts rank below every terminal one.
func (v Verdict) WorseThan(o Verdict) bool {
	return badness[v] > badness[o]
}

func (v Verdict) String() string { return string(v) }
