package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/loop"
	"github.com/adagradschool/scope/internal/session"
)

// doneSpawner materializes every spawned doer as an already-finished
// session so phase loops complete without real workers.
type doneSpawner struct {
	store   *session.Store
	result  string
	next    int
	spawned []loop.SpawnRequest
}

func (d *doneSpawner) Spawn(ctx context.Context, req loop.SpawnRequest) (string, error) {
	d.spawned = append(d.spawned, req)
	id := req.ID
	if id == "" {
		id = strconv.Itoa(d.next)
		d.next++
	}
	if err := d.store.Save(&session.Session{ID: id, Task: req.Task, Parent: req.Parent, State: session.StateDone}); err != nil {
		return "", err
	}
	if err := d.store.SaveResult(id, d.result); err != nil {
		return "", err
	}
	return id, nil
}

func newLoopRunner(t *testing.T, checkerResponse string) (*LoopRunner, *doneSpawner) {
	t.Helper()
	store, err := session.Open(t.TempDir())
	require.NoError(t, err)
	spawner := &doneSpawner{store: store, result: "phase output"}
	runner := &LoopRunner{
		Store:   store,
		Spawner: spawner,
		NewChecker: func(model string) agent.Runner {
			return agent.RunnerFunc(func(ctx context.Context, prompt string) (string, error) {
				return checkerResponse, nil
			})
		},
		Gates:   &gates.Runner{Dir: t.TempDir()},
		WorkDir: t.TempDir(),
		Intent:  "ship the feature",
	}
	return runner, spawner
}

func TestRunPhase_NoVerificationAcceptsFirstPass(t *testing.T) {
	runner, spawner := newLoopRunner(t, "")

	res, err := runner.RunPhase(context.Background(), Phase{Name: "draft", Task: "write it"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "draft", res.Phase)
	assert.Equal(t, "accept", res.Verdict)
	assert.Equal(t, "phase output", res.ResultText)
	require.Len(t, spawner.spawned, 1)

	// the doer contract carries the phase framing
	task := spawner.spawned[0].Task
	assert.Contains(t, task, "**draft** phase")
	assert.Contains(t, task, "ship the feature")
	assert.Contains(t, task, "write it")
}

func TestRunPhase_PriorResultsInContract(t *testing.T) {
	runner, spawner := newLoopRunner(t, "")

	_, err := runner.RunPhase(context.Background(),
		Phase{Name: "implement", Task: "build"},
		[]string{"## design\n\nuse a queue"})
	require.NoError(t, err)

	require.Len(t, spawner.spawned, 1)
	assert.Contains(t, spawner.spawned[0].Task, "use a queue")
}

func TestRunPhase_MaterializesGateRubric(t *testing.T) {
	runner, spawner := newLoopRunner(t, "")

	res, err := runner.RunPhase(context.Background(),
		Phase{Name: "check", Task: "t", Checker: "true"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "accept", res.Verdict)

	require.Len(t, spawner.spawned, 1)
	path := runner.Store.RubricPath(res.SessionID)
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Gates")
	assert.Equal(t, filepath.Join(runner.Store.SessionDir(res.SessionID), "rubric.md"), path)
}

func TestRunPhase_VerifyCriteriaReachChecker(t *testing.T) {
	runner, _ := newLoopRunner(t, "1. PASS - fine\n\nACCEPT")

	res, err := runner.RunPhase(context.Background(),
		Phase{Name: "verify", Task: "t", Verify: []string{"handles unicode"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "accept", res.Verdict)

	data, err := os.ReadFile(runner.Store.RubricPath(res.SessionID))
	require.NoError(t, err)
	assert.Contains(t, string(data), "handles unicode")
}

func TestRunPhase_FailingGateExhaustsBudget(t *testing.T) {
	runner, spawner := newLoopRunner(t, "")

	res, err := runner.RunPhase(context.Background(),
		Phase{Name: "gated", Task: "t", Checker: "false", MaxIterations: 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, "max_iterations", res.Verdict)
	assert.Equal(t, 2, res.Iterations)
	// root doer plus one retry child
	assert.Len(t, spawner.spawned, 2)
}
