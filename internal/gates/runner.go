// Package gates executes the deterministic shell checks of a rubric.
//
// Gates are mutually independent: every gate runs regardless of its
// siblings' outcomes, and a timeout in one gate never cancels another.
package gates

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Gate verdict values.
const (
	VerdictPass  = "pass"
	VerdictFail  = "fail"
	VerdictError = "error" // command could not be started
)

// MaxOutputBytes bounds captured gate output to prevent unbounded growth.
const MaxOutputBytes = 16 * 1024

// Result is the immutable outcome of one gate execution.
type Result struct {
	Command  string        `json:"command"`
	Verdict  string        `json:"verdict"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Passed reports whether the gate succeeded. Execution errors count as
// failures for verdict composition.
func (r Result) Passed() bool {
	return r.Verdict == VerdictPass
}

// Runner executes gate commands in a working directory with a per-gate
// timeout and a bounded level of parallelism.
type Runner struct {
	Dir         string
	Timeout     time.Duration // per gate; zero means DefaultTimeout
	MaxParallel int           // zero means DefaultMaxParallel
}

// Defaults matching the per-gate bounds of the loop engine.
const (
	DefaultTimeout     = 5 * time.Minute
	DefaultMaxParallel = 4
)

// RunAll executes every gate command and returns results in gate order.
// A non-zero exit or timeout yields a fail verdict; a command that cannot
// be started yields an error verdict. RunAll never returns an error itself:
// gate failures are data, not engine faults. A nil or empty gate list
// yields an empty result slice (vacuously all-pass).
func (r *Runner) RunAll(ctx context.Context, commands []string) []Result {
	if len(commands) == 0 {
		return nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	parallel := r.MaxParallel
	if parallel <= 0 {
		parallel = DefaultMaxParallel
	}

	results := make([]Result, len(commands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, command := range commands {
		i, command := i, command
		g.Go(func() error {
			results[i] = r.runOne(gctx, command, timeout)
			return nil
		})
	}
	g.Wait() // workers never return errors

	return results
}

func (r *Runner) runOne(ctx context.Context, command string, timeout time.Duration) Result {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	cmd.Dir = r.Dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	result := Result{
		Command:  command,
		Output:   truncate(string(out), MaxOutputBytes),
		Duration: elapsed,
	}

	switch {
	case err == nil:
		result.Verdict = VerdictPass
	case cctx.Err() == context.DeadlineExceeded:
		result.Verdict = VerdictFail
		result.Output = appendLine(result.Output, fmt.Sprintf("gate timed out after %s", timeout))
	case isStartError(err):
		result.Verdict = VerdictError
		result.Output = appendLine(result.Output, err.Error())
	default:
		result.Verdict = VerdictFail
		if result.Output == "" {
			result.Output = err.Error()
		}
	}
	return result
}

// isStartError distinguishes "could not execute" from "executed and failed".
func isStartError(err error) bool {
	_, isExit := err.(*exec.ExitError)
	return !isExit
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (output truncated)"
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}
