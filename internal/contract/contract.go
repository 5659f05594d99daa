// Package contract renders the markdown contracts sent to doer and checker
// agents. Rendering is deterministic: the same inputs always produce the
// same text, with sections emitted in a fixed order and empty sections
// omitted entirely.
package contract

import (
	"fmt"
	"strings"

	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/rubric"
	"github.com/adagradschool/scope/internal/session"
)

// historyFeedbackLimit truncates long feedback inside history summaries.
const historyFeedbackLimit = 200

// gateOutputLimit bounds per-gate output embedded in a checker contract.
const gateOutputLimit = 2000

// DoerInput carries everything that goes into a doer's task contract.
type DoerInput struct {
	Task         string
	PhaseName    string
	ParentIntent string
	PriorResults []string
	FileScope    []string
	Verify       []string
}

// Doer renders the contract given to a worker session as its initial task.
func Doer(in DoerInput) string {
	var sections []string

	if in.PhaseName != "" {
		sections = append(sections, fmt.Sprintf("# Phase\n\nYou are in the **%s** phase.", in.PhaseName))
	}
	if in.ParentIntent != "" {
		sections = append(sections, "# Parent Intent\n\n"+in.ParentIntent)
	}
	if len(in.PriorResults) > 0 {
		sections = append(sections, "# Prior Phase Results\n\n"+strings.Join(in.PriorResults, "\n\n---\n\n"))
	}

	sections = append(sections, "# Task\n"+in.Task)

	if len(in.FileScope) > 0 {
		var lines []string
		for _, path := range in.FileScope {
			lines = append(lines, "- `"+path+"`")
		}
		sections = append(sections, "# File Scope\n\nOnly modify files within the following paths:\n"+strings.Join(lines, "\n"))
	}
	if len(in.Verify) > 0 {
		var lines []string
		for _, criterion := range in.Verify {
			lines = append(lines, "- "+criterion)
		}
		sections = append(sections, "# Verification\n\nYour output will be verified against these criteria:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// RetryTask builds the task for the next doer iteration after a RETRY
// verdict, injecting the previous attempt's outcome and checker feedback.
func RetryTask(task string, iteration int, doerResult, feedback string) string {
	return fmt.Sprintf(
		"%s\n\n# Previous Attempt (iteration %d)\n\n%s\n\n# Checker Feedback\n\n"+
			"The checker reviewed your previous output and requested a retry:\n\n%s\n\n"+
			"Please address this feedback and try again.",
		task, iteration, doerResult, feedback)
}

// CheckerInput carries everything that goes into a checker contract.
type CheckerInput struct {
	Rubric      rubric.Rubric
	GateResults []gates.Result
	DoerOutput  string
	Iteration   int
	History     []session.IterationRecord
}

// Checker renders the contract sent to the criteria evaluator. Sections
// appear in a fixed order: role framing, gate results, must-have criteria,
// nice-to-have criteria, notes, doer output, iteration index, prior
// iteration history, and the verdict rubric. The caller must only invoke
// Checker when the rubric has criteria; gate-only rubrics skip the agent
// entirely.
func Checker(in CheckerInput) string {
	var sections []string

	sections = append(sections,
		"# Role\n\n"+
			"You are a **checker**. Evaluate the doer's output against each criterion.\n\n"+
			"You MUST end your response with exactly one of these verdicts on its own line:\n"+
			"- `ACCEPT` — all gates pass AND all must-have criteria pass\n"+
			"- `RETRY` — any gate or must-have fails (provide specific feedback)\n"+
			"- `TERMINATE` — fundamentally broken and retrying won't help")

	if len(in.GateResults) > 0 {
		sections = append(sections, gateSection(in.GateResults))
	}
	if len(in.Rubric.Criteria) > 0 {
		sections = append(sections,
			"# Must-Have Criteria\n\n"+
				"For each, state PASS or FAIL with a brief explanation.\n\n"+
				numbered(in.Rubric.Criteria))
	}
	if len(in.Rubric.NiceToHave) > 0 {
		sections = append(sections,
			"# Nice-to-Have Criteria\n\n"+
				"Evaluate each. These don't block acceptance but should be noted.\n\n"+
				numbered(in.Rubric.NiceToHave))
	}
	if in.Rubric.Notes != "" {
		sections = append(sections, "# Notes\n\n"+in.Rubric.Notes)
	}

	sections = append(sections, "# Doer Output\n\n"+in.DoerOutput)
	sections = append(sections, fmt.Sprintf("# Iteration\n\nThis is iteration %d.", in.Iteration))

	if len(in.History) > 0 {
		sections = append(sections, historySection(in.History))
	}

	sections = append(sections,
		"# Verdict\n\n"+
			"ACCEPT — all gates pass AND all must-have criteria pass\n"+
			"RETRY — any gate or must-have fails (provide specific feedback)\n"+
			"TERMINATE — fundamentally broken")

	return strings.Join(sections, "\n\n")
}

func gateSection(results []gates.Result) string {
	var lines []string
	var outputs []string
	for _, g := range results {
		lines = append(lines, fmt.Sprintf("- `%s` — %s", g.Command, strings.ToUpper(g.Verdict)))
		if g.Output != "" {
			out := g.Output
			if len(out) > gateOutputLimit {
				out = out[:gateOutputLimit]
			}
			outputs = append(outputs, fmt.Sprintf("### `%s`\n```\n%s\n```", g.Command, out))
		}
	}
	section := "# Gate Results\n\n" + strings.Join(lines, "\n")
	if len(outputs) > 0 {
		section += "\n\n## Gate Output\n\n" + strings.Join(outputs, "\n\n")
	}
	return section
}

func historySection(history []session.IterationRecord) string {
	var lines []string
	for _, rec := range history {
		line := fmt.Sprintf("- Iteration %d: **%s**", rec.Iteration, strings.ToUpper(rec.Verdict))
		if rec.Feedback != "" {
			summary := rec.Feedback
			if len(summary) > historyFeedbackLimit {
				summary = summary[:historyFeedbackLimit] + "..."
			}
			line += " — " + summary
		}
		lines = append(lines, line)
	}
	return "# Prior Iterations\n\n" + strings.Join(lines, "\n")
}

func numbered(items []string) string {
	var lines []string
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}
