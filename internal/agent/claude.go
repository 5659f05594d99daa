package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ClaudeRunner implements Runner for the Claude CLI in print mode.
type ClaudeRunner struct {
	Model   string
	WorkDir string
}

// BuildArgs constructs the argument list for the claude CLI command.
func (r *ClaudeRunner) BuildArgs(prompt string) []string {
	args := []string{
		"--print",
		"--dangerously-skip-permissions",
	}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	args = append(args, prompt)
	return args
}

// Run executes the claude CLI with the given prompt and returns its stdout.
func (r *ClaudeRunner) Run(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, "claude", r.BuildArgs(prompt)...)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("claude command failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
