package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adagradschool/scope/internal/gates"
)

// TestCompose_AllTransitions uses table-driven tests to verify verdict composition precedence
func TestCompose_AllTransitions(t *testing.T) {
	passGate := gates.Result{Command: "go test ./...", Verdict: gates.VerdictPass}
	failGate := gates.Result{Command: "go vet ./...", Verdict: gates.VerdictFail}
	errGate := gates.Result{Command: "missing-tool", Verdict: gates.VerdictError}

	tests := []struct {
		name         string
		gates        []gates.Result
		mustHave     []CriterionVerdict
		niceToHave   []CriterionVerdict
		agentVerdict string
		expected     string
	}{
		{
			name:     "nothing to check accepts",
			expected: Accept,
		},
		{
			name:     "all gates pass accepts",
			gates:    []gates.Result{passGate, passGate},
			expected: Accept,
		},
		{
			name:     "one failing gate forces retry",
			gates:    []gates.Result{passGate, failGate},
			expected: Retry,
		},
		{
			name:     "gate error counts as failure",
			gates:    []gates.Result{errGate},
			expected: Retry,
		},
		{
			name:         "failing gate beats agent accept",
			gates:        []gates.Result{failGate},
			agentVerdict: Accept,
			expected:     Retry,
		},
		{
			name:         "terminate passes through even with passing gates",
			gates:        []gates.Result{passGate},
			agentVerdict: Terminate,
			expected:     Terminate,
		},
		{
			name:         "terminate beats failing gates",
			gates:        []gates.Result{failGate},
			agentVerdict: Terminate,
			expected:     Terminate,
		},
		{
			name:         "failing must-have forces retry despite agent accept",
			mustHave:     []CriterionVerdict{{Index: 0, Passed: true}, {Index: 1, Passed: false}},
			agentVerdict: Accept,
			expected:     Retry,
		},
		{
			name:         "all must-haves pass with agent accept",
			mustHave:     []CriterionVerdict{{Index: 0, Passed: true}},
			agentVerdict: Accept,
			expected:     Accept,
		},
		{
			name:         "failing nice-to-have never blocks",
			gates:        []gates.Result{passGate},
			mustHave:     []CriterionVerdict{{Index: 0, Passed: true}},
			niceToHave:   []CriterionVerdict{{Index: 0, Passed: false}},
			agentVerdict: Accept,
			expected:     Accept,
		},
		{
			name:         "agent retry holds even when parsed criteria all pass",
			mustHave:     []CriterionVerdict{{Index: 0, Passed: true}},
			agentVerdict: Retry,
			expected:     Retry,
		},
		{
			name:     "gates and criteria together",
			gates:    []gates.Result{passGate},
			mustHave: []CriterionVerdict{{Index: 0, Passed: false}},
			expected: Retry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.gates, tt.mustHave, tt.niceToHave, tt.agentVerdict)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseResponse_OverallVerdict(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"accept on last line", "Everything looks good.\n\nACCEPT", Accept},
		{"retry on last line", "Missing error handling.\n\nRETRY", Retry},
		{"terminate on last line", "The approach cannot work.\n\nTERMINATE", Terminate},
		{"lowercase verdict", "looks fine\naccept", Accept},
		{"terminate wins within a line", "I would ACCEPT but must TERMINATE", Terminate},
		{"accept wins over retry within a line", "ACCEPT not RETRY", Accept},
		{"scans upward past trailing prose", "RETRY\n\nSee notes above.", Retry},
		{"no verdict degrades to retry", "I am not sure what to say here.", Retry},
		{"empty response degrades to retry", "", Retry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ParseResponse(tt.text, 0, 0)
			assert.Equal(t, tt.expected, resp.Overall)
			assert.Equal(t, tt.text, resp.Feedback)
		})
	}
}

func TestParseResponse_StructuredCriteria(t *testing.T) {
	text := `# Must-Have Criteria

1. PASS — handles the happy path
2. FAIL: no retry on timeout

# Nice-to-Have Criteria

1. PASS — logs are structured

RETRY`

	resp := ParseResponse(text, 2, 1)

	assert.True(t, resp.Structured)
	assert.Equal(t, Retry, resp.Overall)
	if assert.Len(t, resp.MustHave, 2) {
		assert.True(t, resp.MustHave[0].Passed)
		assert.Equal(t, 0, resp.MustHave[0].Index)
		assert.False(t, resp.MustHave[1].Passed)
		assert.Equal(t, "no retry on timeout", resp.MustHave[1].Explanation)
	}
	if assert.Len(t, resp.NiceToHave, 1) {
		assert.True(t, resp.NiceToHave[0].Passed)
	}
}

func TestParseResponse_IgnoresOutOfRangeOrdinals(t *testing.T) {
	text := "1. PASS — fine\n7. FAIL — no such criterion\n\nACCEPT"
	resp := ParseResponse(text, 1, 0)

	assert.Len(t, resp.MustHave, 1)
	assert.Equal(t, Accept, resp.Overall)
}

func TestParseResponse_UnstructuredDegradesGracefully(t *testing.T) {
	text := "The first criterion is satisfied and the second needs work.\n\nRETRY"
	resp := ParseResponse(text, 2, 0)

	assert.False(t, resp.Structured)
	assert.Empty(t, resp.MustHave)
	assert.Equal(t, Retry, resp.Overall)
	assert.Equal(t, text, resp.Feedback)
}
