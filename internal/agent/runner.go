// Package agent runs AI agents in one-shot mode and returns their output.
package agent

import "context"

// Runner executes a single agent invocation with the given prompt and
// returns the agent's full response text.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, prompt string) (string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
