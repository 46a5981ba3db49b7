package judge

import (
	"strings"

	"codearena/internal/domain/model"
)

// statusTable is the pinned, total mapping from backend status ids to
// canonical verdicts. Id 9 has historically been reported by the backend for
// both wall-clock and cpu-time overruns, so it is pinned to TLE here; every
// id outside the table maps to ERROR. Ids 1 and 2 (still queued / still
// processing) should never surface from a waited call and are treated as a
// judge-system failure.
var statusTable = map[int]model.Verdict{
	3:  model.VerdictAC,
	4:  model.VerdictWA,
	5:  model.VerdictTLE,
	6:  model.VerdictCE,
	7:  model.VerdictRE,
	8:  model.VerdictRE,
	9:  model.VerdictTLE,
	10: model.VerdictRE,
	11: model.VerdictCE,
	12: model.VerdictRE,
	13: model.VerdictMLE,
	14: model.VerdictRE,
}

// Classify maps one raw backend outcome to a canonical verdict. It is a pure
// function of its arguments: the same outcome always classifies the same way.
//
// Beyond the status table it applies three overrides the backend is known to
// miss: an elapsed time at or above the limit is TLE even when the backend
// reported success; a non-zero exit with nothing on stderr is a runtime
// error; and a stdout that differs from the expected output after
// trailing-whitespace normalization is a wrong answer.
func Classify(raw RawOutcome, expectedOutput string, limits Limits) model.Verdict {
	verdict, ok := statusTable[raw.StatusID]
	if !ok {
		return model.VerdictError
	}

	if verdict == model.VerdictAC || verdict == model.VerdictWA {
		if limits.TimeMs > 0 && raw.TimeMs >= limits.TimeMs {
			return model.VerdictTLE
		}
	}

	if verdict == model.VerdictAC {
		if raw.ExitCode != 0 && raw.Stderr == "" {
			return model.VerdictRE
		}
		if !outputMatches(raw.Stdout, expectedOutput) {
			return model.VerdictWA
		}
	}

	return verdict
}

// outputMatches compares program output to the expected answer line by line,
// ignoring trailing whitespace on each line and trailing blank lines.
func outputMatches(got, want string) bool {
	return normalizeOutput(got) == normalizeOutput(want)
}

func normalizeOutput(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}
