// Package exitcode defines named exit codes for the scope CLI.
//
// Each code maps a specific loop or workflow outcome to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

// Exit code constants for loop and workflow outcomes.
const (
	Success       = 0   // Checker accepted the work
	Error         = 1   // Invalid args, file not found, misconfiguration
	MaxIterations = 2   // Iteration limit reached without acceptance
	Terminated    = 3   // Checker judged the work fundamentally broken
	Exited        = 4   // Worker exited voluntarily with a reason
	Interrupted   = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case MaxIterations:
		return "MaxIterations"
	case Terminated:
		return "Terminated"
	case Exited:
		return "Exited"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}

// FromVerdict maps a final loop verdict string to its exit code.
func FromVerdict(verdict string) int {
	switch verdict {
	case "accept":
		return Success
	case "terminate":
		return Terminated
	case "max_iterations":
		return MaxIterations
	case "exit":
		return Exited
	default:
		return Error
	}
}
