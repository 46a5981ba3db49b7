package judge_test

import (
	"testing"

	"codearena/internal/app/judge"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatusTable(t *testing.T) {
	limits := judge.Limits{TimeMs: 2000, MemoryKB: 256000}

	cases := []struct {
		statusID int
		want     model.Verdict
	}{
		{3, model.VerdictAC},
		{4, model.VerdictWA},
		{5, model.VerdictTLE},
		{6, model.VerdictCE},
		{7, model.VerdictRE},
		{8, model.VerdictRE},
		{9, model.VerdictTLE},
		{10, model.VerdictRE},
		{11, model.VerdictCE},
		{12, model.VerdictRE},
		{13, model.VerdictMLE},
		{14, model.VerdictRE},
		// still queued / still processing should never reach us from a
		// waited call, so they classify as judge-system failures
		{1, model.VerdictError},
		{2, model.VerdictError},
		{0, model.VerdictError},
		{99, model.VerdictError},
	}

	for _, tc := range cases {
		raw := judge.RawOutcome{StatusID: tc.statusID, Stdout: "42", TimeMs: 100}
		got := judge.Classify(raw, "42", limits)
		assert.Equal(t, tc.want, got, "status id %d", tc.statusID)
	}
}

func TestClassifyTimeOverLimitOverridesAC(t *testing.T) {
	limits := judge.Limits{TimeMs: 1000, MemoryKB: 256000}

	raw := judge.RawOutcome{StatusID: 3, Stdout: "42", TimeMs: 1000}
	assert.Equal(t, model.VerdictTLE, judge.Classify(raw, "42", limits))

	raw = judge.RawOutcome{StatusID: 4, Stdout: "41", TimeMs: 1500}
	assert.Equal(t, model.VerdictTLE, judge.Classify(raw, "42", limits))

	// RE is not rewritten even when slow
	raw = judge.RawOutcome{StatusID: 7, TimeMs: 1500}
	assert.Equal(t, model.VerdictRE, judge.Classify(raw, "42", limits))
}

func TestClassifyNonZeroExitSilentStderr(t *testing.T) {
	limits := judge.Limits{TimeMs: 2000}

	raw := judge.RawOutcome{StatusID: 3, Stdout: "42", ExitCode: 1, Stderr: ""}
	assert.Equal(t, model.VerdictRE, judge.Classify(raw, "42", limits))

	// stderr output alongside an accepted status stays AC
	raw = judge.RawOutcome{StatusID: 3, Stdout: "42", ExitCode: 0, Stderr: "debug noise"}
	assert.Equal(t, model.VerdictAC, judge.Classify(raw, "42", limits))
}

func TestClassifyOutputNormalization(t *testing.T) {
	limits := judge.Limits{TimeMs: 2000}

	// trailing whitespace per line and trailing newlines are ignored
	raw := judge.RawOutcome{StatusID: 3, Stdout: "1 2 \n3\t\n\n"}
	assert.Equal(t, model.VerdictAC, judge.Classify(raw, "1 2\n3", limits))

	raw = judge.RawOutcome{StatusID: 3, Stdout: "1 2\r\n3\r\n"}
	assert.Equal(t, model.VerdictAC, judge.Classify(raw, "1 2\n3", limits))

	// leading whitespace is significant
	raw = judge.RawOutcome{StatusID: 3, Stdout: " 1 2\n3"}
	assert.Equal(t, model.VerdictWA, judge.Classify(raw, "1 2\n3", limits))

	// differing content is WA even when the backend said accepted
	raw = judge.RawOutcome{StatusID: 3, Stdout: "1 3"}
	assert.Equal(t, model.VerdictWA, judge.Classify(raw, "1 2", limits))
}

func TestClassifyDeterministic(t *testing.T) {
	limits := judge.Limits{TimeMs: 1000}
	raw := judge.RawOutcome{StatusID: 3, Stdout: "ok", TimeMs: 999, ExitCode: 0}

	first := judge.Classify(raw, "ok", limits)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, judge.Classify(raw, "ok", limits))
	}
}
