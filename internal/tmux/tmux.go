// Package tmux shells out to the tmux binary for worker session windows.
// Sessions are detached; the operator attaches manually to observe or take
// over a worker.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SessionName derives the tmux session name for a scope session id. Dots
// are not valid in tmux session names.
func SessionName(id string) string {
	return "scope-" + strings.ReplaceAll(id, ".", "_")
}

// NewSession starts a detached tmux session running command in dir, with
// env entries ("KEY=VALUE") prepended to the command's environment.
func NewSession(ctx context.Context, name, dir, command string, env []string) error {
	args := []string{"new-session", "-d", "-s", name}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	for _, kv := range env {
		args = append(args, "-e", kv)
	}
	args = append(args, command)
	if out, err := exec.CommandContext(ctx, "tmux", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// HasSession reports whether a tmux session with the given name exists.
func HasSession(ctx context.Context, name string) bool {
	return exec.CommandContext(ctx, "tmux", "has-session", "-t", name).Run() == nil
}

// KillSession terminates a tmux session. Killing a session that no longer
// exists is not an error.
func KillSession(ctx context.Context, name string) error {
	if !HasSession(ctx, name) {
		return nil
	}
	if out, err := exec.CommandContext(ctx, "tmux", "kill-session", "-t", name).CombinedOutput(); err != nil {
		return fmt.Errorf("tmux kill-session %s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
