package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/rubric"
	"github.com/adagradschool/scope/internal/session"
)

func sectionIndex(t *testing.T, text, heading string) int {
	t.Helper()
	idx := strings.Index(text, heading)
	require.GreaterOrEqual(t, idx, 0, "missing section %q", heading)
	return idx
}

func TestChecker_SectionOrder(t *testing.T) {
	text := Checker(CheckerInput{
		Rubric: rubric.Rubric{
			Criteria:   []string{"handles empty input", "returns sorted output"},
			NiceToHave: []string{"has benchmarks"},
			Notes:      "legacy callers still send XML",
		},
		GateResults: []gates.Result{
			{Command: "go test ./...", Verdict: gates.VerdictPass},
		},
		DoerOutput: "I implemented the endpoint.",
		Iteration:  2,
		History: []session.IterationRecord{
			{Iteration: 0, Verdict: "retry", Feedback: "tests were failing"},
		},
	})

	order := []string{
		"# Role",
		"# Gate Results",
		"# Must-Have Criteria",
		"# Nice-to-Have Criteria",
		"# Notes",
		"# Doer Output",
		"# Iteration",
		"# Prior Iterations",
		"# Verdict",
	}
	prev := -1
	for _, heading := range order {
		idx := sectionIndex(t, text, heading)
		assert.Greater(t, idx, prev, "%s out of order", heading)
		prev = idx
	}
}

func TestChecker_NumbersCriteria(t *testing.T) {
	text := Checker(CheckerInput{
		Rubric: rubric.Rubric{
			Criteria:   []string{"first", "second"},
			NiceToHave: []string{"bonus"},
		},
		DoerOutput: "output",
	})

	assert.Contains(t, text, "1. first")
	assert.Contains(t, text, "2. second")
	assert.Contains(t, text, "1. bonus")
}

func TestChecker_OmitsEmptySections(t *testing.T) {
	text := Checker(CheckerInput{
		Rubric:     rubric.Rubric{Criteria: []string{"only criterion"}},
		DoerOutput: "output",
	})

	assert.NotContains(t, text, "# Gate Results")
	assert.NotContains(t, text, "# Nice-to-Have Criteria")
	assert.NotContains(t, text, "# Notes")
	assert.NotContains(t, text, "# Prior Iterations")
	assert.Contains(t, text, "# Must-Have Criteria")
	assert.Contains(t, text, "# Verdict")
}

func TestChecker_GateOutputTruncated(t *testing.T) {
	long := strings.Repeat("x", gateOutputLimit+500)
	text := Checker(CheckerInput{
		Rubric: rubric.Rubric{Criteria: []string{"c"}},
		GateResults: []gates.Result{
			{Command: "make test", Verdict: gates.VerdictFail, Output: long},
		},
		DoerOutput: "output",
	})

	assert.Contains(t, text, "`make test` — FAIL")
	assert.NotContains(t, text, long)
	assert.Contains(t, text, strings.Repeat("x", gateOutputLimit))
}

func TestChecker_HistoryFeedbackTruncated(t *testing.T) {
	long := strings.Repeat("f", historyFeedbackLimit+50)
	text := Checker(CheckerInput{
		Rubric:     rubric.Rubric{Criteria: []string{"c"}},
		DoerOutput: "output",
		History: []session.IterationRecord{
			{Iteration: 0, Verdict: "retry", Feedback: long},
		},
	})

	assert.Contains(t, text, "Iteration 0: **RETRY**")
	assert.Contains(t, text, strings.Repeat("f", historyFeedbackLimit)+"...")
	assert.NotContains(t, text, long)
}

func TestDoer_Sections(t *testing.T) {
	text := Doer(DoerInput{
		Task:         "Implement the parser",
		PhaseName:    "build",
		ParentIntent: "ship the importer",
		PriorResults: []string{"## design\n\nuse a state machine"},
		FileScope:    []string{"internal/parser"},
		Verify:       []string{"round-trips all fixtures"},
	})

	order := []string{
		"# Phase",
		"# Parent Intent",
		"# Prior Phase Results",
		"# Task",
		"# File Scope",
		"# Verification",
	}
	prev := -1
	for _, heading := range order {
		idx := sectionIndex(t, text, heading)
		assert.Greater(t, idx, prev, "%s out of order", heading)
		prev = idx
	}

	assert.Contains(t, text, "**build** phase")
	assert.Contains(t, text, "- `internal/parser`")
	assert.Contains(t, text, "- round-trips all fixtures")
}

func TestDoer_BareTask(t *testing.T) {
	text := Doer(DoerInput{Task: "just do it"})
	assert.Equal(t, "# Task\njust do it", text)
}

func TestRetryTask(t *testing.T) {
	text := RetryTask("base task", 1, "partial work", "gate `go test` failed")

	assert.True(t, strings.HasPrefix(text, "base task"))
	assert.Contains(t, text, "iteration 1")
	assert.Contains(t, text, "partial work")
	assert.Contains(t, text, "gate `go test` failed")
}
