// Package verdict composes gate and criterion outcomes into a single
// iteration verdict, and parses checker-agent responses.
package verdict

import (
	"github.com/adagradschool/scope/internal/gates"
)

// Verdict values for a single iteration.
const (
	Accept    = "accept"
	Retry     = "retry"
	Terminate = "terminate"
)

// CriterionVerdict is the parsed outcome for one rubric criterion. Index is
// the ordinal position within its section (must-have or nice-to-have).
type CriterionVerdict struct {
	Index       int    `json:"index"`
	Passed      bool   `json:"passed"`
	Explanation string `json:"explanation,omitempty"`
}

// Compose merges gate results and criterion verdicts into a composite
// verdict. agentVerdict is the checker agent's overall verdict, or empty
// when no agent was consulted.
//
// Precedence: an agent TERMINATE passes through unchanged; otherwise any
// failing gate forces RETRY, then any failing must-have forces RETRY, then
// an agent RETRY holds (the overall verdict line is authoritative even when
// every parsed criterion line says PASS), otherwise the iteration is
// accepted. Nice-to-have outcomes are recorded for feedback but never block
// acceptance.
//
// Compose is pure: it runs no commands and consults no agent.
func Compose(gateResults []gates.Result, mustHave, niceToHave []CriterionVerdict, agentVerdict string) string {
	if agentVerdict == Terminate {
		return Terminate
	}
	for _, g := range gateResults {
		if !g.Passed() {
			return Retry
		}
	}
	for _, c := range mustHave {
		if !c.Passed {
			return Retry
		}
	}
	if agentVerdict == Retry {
		return Retry
	}
	return Accept
}
