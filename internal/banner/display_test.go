package banner

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adagradschool/scope/internal/workflow"
)

// captureStdout captures stdout output during function execution
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-outC
}

func TestPrintStartupBanner(t *testing.T) {
	out := captureStdout(t, func() {
		PrintStartupBanner("0", "opus", ".scope/sessions/0/rubric.md")
	})

	assert.Contains(t, out, "scope - Verified Agent Sessions")
	assert.Contains(t, out, "Session:    0")
	assert.Contains(t, out, "Model:      opus")
	assert.Contains(t, out, ".scope/sessions/0/rubric.md")
}

func TestPrintStartupBanner_NoRubric(t *testing.T) {
	out := captureStdout(t, func() {
		PrintStartupBanner("3", "sonnet", "")
	})

	assert.Contains(t, out, "Session:    3")
	assert.NotContains(t, out, "Rubric:")
}

func TestPrintAcceptedBanner(t *testing.T) {
	out := captureStdout(t, func() {
		PrintAcceptedBanner(2, 95)
	})

	assert.Contains(t, out, "Result accepted")
	assert.Contains(t, out, "Iterations: 2")
	assert.Contains(t, out, "1m 35s")
}

func TestPrintWorkflowReport(t *testing.T) {
	results := []workflow.PhaseResult{
		{Phase: "build", Verdict: "accept", Iterations: 2},
		{Phase: "test", Verdict: "max_iterations", Iterations: 3, Attempts: 2},
		{Phase: "deploy", Verdict: "exit", Iterations: 1, ExitReason: "blocked on credentials"},
	}

	out := captureStdout(t, func() {
		PrintWorkflowReport("release", results)
	})

	assert.Contains(t, out, "Workflow: release")
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "(2 iterations)")
	assert.Contains(t, out, "(3 iterations, 2 attempts)")
	assert.Contains(t, out, "exit reason: blocked on credentials")
}

func TestPrintStatusLine_TruncatesTask(t *testing.T) {
	long := ""
	for i := 0; i < 10; i++ {
		long += "0123456789"
	}

	out := captureStdout(t, func() {
		PrintStatusLine("0.1", "running", "verifying", long)
	})

	assert.Contains(t, out, "0.1")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, long)
}
