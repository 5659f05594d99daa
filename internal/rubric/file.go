package rubric

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads and parses a rubric file, returning the parsed rubric, the raw
// text, and its content hash. The raw text and hash are re-read each loop
// iteration so mid-flight edits take effect without restart.
func Load(path string) (Rubric, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, "", "", fmt.Errorf("read rubric: %w", err)
	}
	raw := string(data)
	return Parse(raw), raw, Hash(raw), nil
}

// IsFileSpec reports whether a checker spec names a rubric file rather than
// a shorthand command or agent prompt.
func IsFileSpec(spec string) bool {
	lower := strings.ToLower(spec)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// Materialize resolves a checker spec to a rubric file on disk inside dir.
// File specs are copied so that per-session edits never touch the source;
// shorthand specs are converted via FromShorthand and rendered. The
// materialized file is editable exactly like a hand-written rubric.
func Materialize(spec string, dir string) (string, error) {
	var content string
	if IsFileSpec(spec) {
		data, err := os.ReadFile(spec)
		if err != nil {
			return "", fmt.Errorf("read rubric file %s: %w", spec, err)
		}
		content = string(data)
	} else {
		content = FromShorthand(spec).Render()
	}

	return writeRubric(content, dir)
}

// Write renders a rubric into dir/rubric.md, for callers that assembled
// the rubric programmatically instead of from a spec string.
func Write(r Rubric, dir string) (string, error) {
	return writeRubric(r.Render(), dir)
}

func writeRubric(content, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create rubric dir: %w", err)
	}
	path := filepath.Join(dir, "rubric.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write rubric: %w", err)
	}
	return path, nil
}
