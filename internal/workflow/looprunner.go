package workflow

import (
	"context"
	"fmt"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/contract"
	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/loop"
	"github.com/adagradschool/scope/internal/rubric"
	"github.com/adagradschool/scope/internal/session"
)

// DefaultPhaseIterations bounds a phase's loop when the definition leaves
// max_iterations unset.
const DefaultPhaseIterations = 3

// LoopRunner executes workflow phases through the verification loop
// engine: spawn a doer session, run the loop against the phase's rubric,
// and report the sealed outcome.
type LoopRunner struct {
	Store   *session.Store
	Spawner loop.Spawner
	// NewChecker builds the checker agent for a phase, given the phase's
	// checker model (possibly empty).
	NewChecker func(model string) agent.Runner
	Gates      *gates.Runner
	WorkDir    string
	Intent     string
}

// RunPhase spawns a doer for the phase and drives its verification loop to
// a terminal verdict.
func (r *LoopRunner) RunPhase(ctx context.Context, phase Phase, priorResults []string) (*PhaseResult, error) {
	task := contract.Doer(contract.DoerInput{
		Task:         phase.Task,
		PhaseName:    phase.Name,
		ParentIntent: r.Intent,
		PriorResults: priorResults,
		FileScope:    phase.FileScope,
		Verify:       phase.Verify,
	})

	sessionID, err := r.Spawner.Spawn(ctx, loop.SpawnRequest{
		Task:    task,
		Model:   phase.Model,
		WorkDir: r.WorkDir,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn doer for phase %q: %w", phase.Name, err)
	}

	rubricPath, err := r.materializeRubric(phase, sessionID)
	if err != nil {
		return nil, err
	}

	maxIter := phase.MaxIterations
	if maxIter == 0 {
		maxIter = DefaultPhaseIterations
	}

	engine := &loop.Engine{
		Store:   r.Store,
		Spawner: r.Spawner,
		Checker: r.NewChecker(phase.CheckerModel),
		Gates:   r.Gates,
	}
	res, err := engine.Run(ctx, loop.Params{
		Task:          task,
		SessionID:     sessionID,
		RubricPath:    rubricPath,
		MaxIterations: maxIter,
		Model:         phase.Model,
		WorkDir:       r.WorkDir,
	})
	if err != nil {
		return nil, err
	}

	return &PhaseResult{
		Phase:      phase.Name,
		SessionID:  res.SessionID,
		Verdict:    res.Verdict,
		Iterations: res.Iterations,
		ResultText: res.ResultText,
		ExitReason: res.ExitReason,
	}, nil
}

// materializeRubric resolves the phase's verification spec to a rubric
// file inside the session directory, which stays hot-reloadable by editing
// that copy. Phase-level verify criteria are folded in as must-have
// criteria. A phase with no verification at all gets no rubric, so its
// loop accepts on the first pass.
func (r *LoopRunner) materializeRubric(phase Phase, sessionID string) (string, error) {
	if phase.Checker == "" && len(phase.Verify) == 0 {
		return "", nil
	}

	dir := r.Store.SessionDir(sessionID)
	var path string
	var err error
	if len(phase.Verify) == 0 {
		path, err = rubric.Materialize(phase.Checker, dir)
	} else {
		var rub rubric.Rubric
		if phase.Checker != "" {
			if rubric.IsFileSpec(phase.Checker) {
				rub, _, _, err = rubric.Load(phase.Checker)
				if err != nil {
					return "", fmt.Errorf("rubric for phase %q: %w", phase.Name, err)
				}
			} else {
				rub = rubric.FromShorthand(phase.Checker)
			}
		}
		rub.Criteria = append(rub.Criteria, phase.Verify...)
		path, err = rubric.Write(rub, dir)
	}
	if err != nil {
		return "", fmt.Errorf("materialize rubric for phase %q: %w", phase.Name, err)
	}
	if err := r.Store.SaveRubricPath(sessionID, path); err != nil {
		return "", err
	}
	return path, nil
}
