// Package banner provides colored banner display functions for the scope CLI.
//
// All banner functions write formatted output to stdout with color-coded
// headers and separators.
package banner

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/workflow"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const sepLine = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the startup banner with session info.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  scope - Verified Agent Sessions
//	═══════════════════════════════════════════════════
//	  Session:    0
//	  Model:      opus
//	  Rubric:     .scope/sessions/0/rubric.md
//	═══════════════════════════════════════════════════
func PrintStartupBanner(sessionID string, model string, rubricPath string) {
	sep := headerColor(sepLine)
	fmt.Println(sep)
	fmt.Println(headerColor("  scope - Verified Agent Sessions"))
	fmt.Println(sep)
	fmt.Printf("  Session:    %s\n", sessionID)
	fmt.Printf("  Model:      %s\n", model)
	if rubricPath != "" {
		fmt.Printf("  Rubric:     %s\n", rubricPath)
	}
	fmt.Println(sep)
}

// PrintAcceptedBanner displays the acceptance banner with stats.
func PrintAcceptedBanner(iterations int, durationSecs int) {
	sep := successColor(sepLine)
	fmt.Println(sep)
	fmt.Println(successColor("  ✓ Result accepted"))
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Printf("  Duration:   %s (%ds)\n", logging.FormatDuration(durationSecs), durationSecs)
	fmt.Println(sep)
}

// PrintTerminatedBanner displays the checker-termination banner.
func PrintTerminatedBanner(feedback string) {
	sep := errorColor(sepLine)
	fmt.Println(sep)
	fmt.Println(errorColor("  ✗ TERMINATED by checker"))
	fmt.Println(sep)
	if feedback != "" {
		fmt.Println("  Reason:")
		fmt.Printf("  %s\n", feedback)
		fmt.Println(sep)
	}
}

// PrintExitedBanner displays when a worker exits voluntarily.
func PrintExitedBanner(reason string) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ Worker exited"))
	if reason != "" {
		fmt.Printf("  Reason: %s\n", reason)
	}
	fmt.Println(sep)
}

// PrintMaxIterationsBanner displays when the iteration limit is reached.
func PrintMaxIterationsBanner(iterations int, maxIterations int) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Printf(warnColor("  ⚠ Max iterations reached (%d/%d)\n"), iterations, maxIterations)
	fmt.Println(sep)
}

// PrintInterruptedBanner displays when a run is interrupted.
func PrintInterruptedBanner(sessionID string) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ Run interrupted"))
	fmt.Printf("  Session: %s\n", sessionID)
	fmt.Println(sep)
}

// PrintWorkflowReport displays one line per executed phase with its verdict
// and, for halted phases, the reason.
//
// Example output:
//
//	───────────────────────────────────────────────────
//	  Workflow: release
//	  ✓ build      accept          (2 iterations)
//	  ✗ test       max_iterations  (3 iterations, 2 attempts)
//	───────────────────────────────────────────────────
func PrintWorkflowReport(name string, results []workflow.PhaseResult) {
	sep := strings.Repeat("─", 51)
	fmt.Println(sep)
	fmt.Printf("  Workflow: %s\n", name)
	for _, r := range results {
		mark := successColor("✓")
		if !r.Accepted() {
			mark = errorColor("✗")
		}
		line := fmt.Sprintf("  %s %-12s %-15s (%d iterations", mark, r.Phase, r.Verdict, r.Iterations)
		if r.Attempts > 1 {
			line += fmt.Sprintf(", %d attempts", r.Attempts)
		}
		line += ")"
		fmt.Println(line)
		if r.Verdict == "exit" && r.ExitReason != "" {
			fmt.Printf("      exit reason: %s\n", r.ExitReason)
		}
	}
	fmt.Println(sep)
}

// PrintStatusLine displays one session row for the status listing.
func PrintStatusLine(id, state, activity, task string) {
	if len(task) > 60 {
		task = task[:57] + "..."
	}
	task = strings.ReplaceAll(task, "\n", " ")
	fmt.Printf("  %-14s %-10s %-14s %s\n", id, state, activity, task)
}
