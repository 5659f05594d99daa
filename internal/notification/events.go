package notification

import "fmt"

// Event types reported to the notification channel.
const (
	EventAccepted      = "accepted"
	EventTerminated    = "terminated"
	EventMaxIterations = "max_iterations"
	EventExited        = "exited"
	EventInterrupted   = "interrupted"
	EventWorkflowDone  = "workflow_done"
)

// FormatEvent creates a notification message for the given event.
func FormatEvent(event string, projectName string, sessionID string, iteration int, exitCode int) string {
	switch event {
	case EventAccepted:
		return fmt.Sprintf("✅ %s [%s] accepted after %d iteration(s) (exit %d)", projectName, sessionID, iteration, exitCode)
	case EventTerminated:
		return fmt.Sprintf("🚨 %s [%s] terminated by checker at iteration %d (exit %d)", projectName, sessionID, iteration, exitCode)
	case EventMaxIterations:
		return fmt.Sprintf("⚠️ %s [%s] reached max iterations (%d) without acceptance (exit %d)", projectName, sessionID, iteration, exitCode)
	case EventExited:
		return fmt.Sprintf("🚪 %s [%s] worker exited voluntarily at iteration %d (exit %d)", projectName, sessionID, iteration, exitCode)
	case EventInterrupted:
		return fmt.Sprintf("⏸️ %s [%s] interrupted at iteration %d (exit %d)", projectName, sessionID, iteration, exitCode)
	case EventWorkflowDone:
		return fmt.Sprintf("🏁 %s [%s] workflow finished after %d phase(s) (exit %d)", projectName, sessionID, iteration, exitCode)
	default:
		return fmt.Sprintf("ℹ️ %s [%s] event: %s (exit %d)", projectName, sessionID, event, exitCode)
	}
}
