package verdict

import (
	"regexp"
	"strconv"
	"strings"
)

// Response is the best-effort structured form of a checker agent's free-text
// reply. Overall is always populated; the per-criterion slices are filled
// only when the agent emitted recognizable PASS/FAIL lines (Structured).
// Feedback carries the full response text for retry prompts.
type Response struct {
	Overall    string
	MustHave   []CriterionVerdict
	NiceToHave []CriterionVerdict
	Feedback   string
	Structured bool
}

// criterionLine matches numbered per-criterion verdicts such as
// "1. PASS — results are relevant" or "2) FAIL: missing edge cases".
var criterionLine = regexp.MustCompile(`^\s*(\d+)[.):]\s*(PASS|FAIL)\b[\s—:–-]*(.*)$`)

// ParseResponse extracts a verdict from a checker agent's response.
//
// The overall verdict line is scanned from the end of the text, since
// agents are instructed to finish with it; within a line TERMINATE wins
// over ACCEPT, which wins over RETRY. Per-criterion lines are assigned to
// the must-have or nice-to-have section based on the most recent section
// heading, defaulting to must-have. mustCount and niceCount bound the
// accepted ordinals.
//
// Parsing is tolerant by design: a structured miss degrades to the overall
// verdict alone, and a response with no verdict at all degrades to RETRY
// with the full text as feedback. ParseResponse never fails.
func ParseResponse(text string, mustCount, niceCount int) Response {
	resp := Response{
		Overall:  overallVerdict(text),
		Feedback: text,
	}

	inNice := false
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "nice-to-have") || strings.Contains(lower, "nice to have") {
			inNice = true
			continue
		}
		if strings.Contains(lower, "must-have") || strings.Contains(lower, "must have") {
			inNice = false
			continue
		}

		m := criterionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		cv := CriterionVerdict{
			Index:       n - 1,
			Passed:      m[2] == "PASS",
			Explanation: strings.TrimSpace(m[3]),
		}
		if inNice {
			if n <= niceCount {
				resp.NiceToHave = append(resp.NiceToHave, cv)
				resp.Structured = true
			}
		} else if n <= mustCount {
			resp.MustHave = append(resp.MustHave, cv)
			resp.Structured = true
		}
	}

	return resp
}

// overallVerdict scans lines from the end for an ACCEPT/RETRY/TERMINATE
// token. No token found defaults to RETRY: an unreadable checker response
// must never accept work or crash the iteration.
func overallVerdict(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		upper := strings.ToUpper(strings.TrimSpace(lines[i]))
		switch {
		case strings.Contains(upper, "TERMINATE"):
			return Terminate
		case strings.Contains(upper, "ACCEPT"):
			return Accept
		case strings.Contains(upper, "RETRY"):
			return Retry
		}
	}
	return Retry
}
