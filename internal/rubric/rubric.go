// Package rubric parses and renders verification rubrics.
//
// A rubric is a markdown document with up to four sections: Gates
// (deterministic shell checks), Criteria (must-have natural-language
// requirements), Nice to Have (advisory requirements), and Notes (unscored
// background). All sections are optional; an empty rubric is legal and
// degrades composite verification to "always pass".
package rubric

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AgentPrefix marks a shorthand checker spec as a natural-language criterion
// rather than a shell command.
const AgentPrefix = "agent:"

// Rubric is an immutable snapshot of a parsed verification spec.
type Rubric struct {
	Title      string
	Gates      []string
	Criteria   []string
	NiceToHave []string
	Notes      string
}

// HasGates reports whether the rubric contains at least one gate.
func (r Rubric) HasGates() bool {
	return len(r.Gates) > 0
}

// HasCriteria reports whether the rubric contains any must-have or
// nice-to-have criteria. When false, the checker agent is never invoked.
func (r Rubric) HasCriteria() bool {
	return len(r.Criteria) > 0 || len(r.NiceToHave) > 0
}

// Empty reports whether the rubric has no scored content at all.
func (r Rubric) Empty() bool {
	return !r.HasGates() && !r.HasCriteria()
}

// section identifiers during parsing
const (
	secNone = iota
	secGates
	secCriteria
	secNiceToHave
	secNotes
	secUnknown
)

// Parse splits rubric markdown into its sections. Headers are matched
// case-insensitively; any subset of sections may be present. List items
// under Gates may wrap their command in inline backticks, which are
// stripped. Unrecognized `##` headers and their content are ignored.
func Parse(text string) Rubric {
	var r Rubric
	var notes []string
	section := secNone

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "## ") {
			switch strings.ToLower(strings.TrimSpace(trimmed[3:])) {
			case "gates":
				section = secGates
			case "criteria":
				section = secCriteria
			case "nice to have":
				section = secNiceToHave
			case "notes":
				section = secNotes
			default:
				section = secUnknown
			}
			continue
		}

		// Title comes from a leading top-level heading before any section.
		if section == secNone && strings.HasPrefix(trimmed, "# ") && r.Title == "" {
			r.Title = strings.TrimSpace(trimmed[2:])
			continue
		}

		switch section {
		case secGates:
			if item, ok := listItem(trimmed); ok {
				r.Gates = append(r.Gates, stripBackticks(item))
			}
		case secCriteria:
			if item, ok := listItem(trimmed); ok {
				r.Criteria = append(r.Criteria, item)
			}
		case secNiceToHave:
			if item, ok := listItem(trimmed); ok {
				r.NiceToHave = append(r.NiceToHave, item)
			}
		case secNotes:
			notes = append(notes, line)
		}
	}

	r.Notes = strings.TrimSpace(strings.Join(notes, "\n"))
	return r
}

// listItem extracts the content of a single-line bullet entry.
func listItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* "} {
		if strings.HasPrefix(line, marker) {
			item := strings.TrimSpace(line[len(marker):])
			if item != "" {
				return item, true
			}
		}
	}
	return "", false
}

// stripBackticks removes a cosmetic inline-code wrapper from a gate command.
func stripBackticks(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") {
		return s[1 : len(s)-1]
	}
	return s
}

// FromShorthand converts a checker shorthand into a rubric. A spec prefixed
// with "agent:" becomes a single must-have criterion; anything else is
// treated as a shell command and becomes a single gate. The conversion is
// lossless: Render of the result re-parses to the same rubric.
func FromShorthand(spec string) Rubric {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, AgentPrefix); ok {
		return Rubric{Criteria: []string{strings.TrimSpace(rest)}}
	}
	return Rubric{Gates: []string{spec}}
}

// Render produces the canonical markdown form of the rubric. Parsing the
// rendered text yields an identical rubric.
func (r Rubric) Render() string {
	var b strings.Builder
	if r.Title != "" {
		b.WriteString("# " + r.Title + "\n\n")
	}
	if len(r.Gates) > 0 {
		b.WriteString("## Gates\n")
		for _, g := range r.Gates {
			b.WriteString("- `" + g + "`\n")
		}
		b.WriteString("\n")
	}
	if len(r.Criteria) > 0 {
		b.WriteString("## Criteria\n")
		for _, c := range r.Criteria {
			b.WriteString("- " + c + "\n")
		}
		b.WriteString("\n")
	}
	if len(r.NiceToHave) > 0 {
		b.WriteString("## Nice to Have\n")
		for _, c := range r.NiceToHave {
			b.WriteString("- " + c + "\n")
		}
		b.WriteString("\n")
	}
	if r.Notes != "" {
		b.WriteString("## Notes\n" + r.Notes + "\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Hash returns a short stable digest of raw rubric text, used to detect
// mid-loop edits between iterations. Any byte-level change alters the hash.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:8]
}
