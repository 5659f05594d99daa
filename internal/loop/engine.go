// Package loop drives the verify-retry cycle around a single doer session:
// wait for the doer to finish, re-read the rubric, run gates, consult the
// checker, compose a verdict, and either seal the result or spawn the next
// attempt.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/contract"
	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/rubric"
	"github.com/adagradschool/scope/internal/session"
	"github.com/adagradschool/scope/internal/verdict"
)

// Loop verdicts. Accept and Terminate mirror the checker vocabulary; the
// other two are produced by the engine itself.
const (
	VerdictAccept        = verdict.Accept
	VerdictTerminate     = verdict.Terminate
	VerdictMaxIterations = "max_iterations"
	VerdictExit          = "exit"
)

// Activity markers written to the loop session while the engine runs.
const (
	ActivityAwaitingDoer = "awaiting_doer"
	ActivityVerifying    = "verifying"
)

// ErrDoerTimeout is recorded when a doer session does not reach a terminal
// state within the engine's wait budget. It never escapes Run; the
// iteration is treated as a failed attempt.
var ErrDoerTimeout = errors.New("doer wait timed out")

// SpawnRequest asks the spawner for a new worker session. An empty ID lets
// the spawner allocate the next id under Parent; a non-empty ID pins an
// iteration-scoped child id.
type SpawnRequest struct {
	ID      string
	Task    string
	Parent  string
	Model   string
	WorkDir string
}

// Spawner starts worker sessions. The loop engine never reads ambient
// environment to find a parent; the parent id travels in the request.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (string, error)
}

// Params configures one loop run.
type Params struct {
	// Task is the base task text, re-used verbatim when building retry
	// contracts.
	Task string
	// SessionID is the already-spawned root doer session the loop wraps.
	SessionID string
	// RubricPath is re-read before every verification pass (hot reload).
	RubricPath    string
	MaxIterations int
	Model         string
	WorkDir       string
}

// Result is the sealed outcome of a loop run.
type Result struct {
	SessionID  string
	Verdict    string
	Iterations int
	History    []session.IterationRecord
	ResultText string
	ExitReason string
}

// Engine owns the collaborators of a loop run. Zero-value durations take
// defaults from DefaultPollInterval and DefaultDoerTimeout.
type Engine struct {
	Store        *session.Store
	Spawner      Spawner
	Checker      agent.Runner
	Gates        *gates.Runner
	PollInterval time.Duration
	DoerTimeout  time.Duration
}

const (
	DefaultPollInterval = 2 * time.Second
	DefaultDoerTimeout  = 2 * time.Hour

	// checkerRetryDelay spaces the single dispatch retry.
	checkerRetryDelay = 2 * time.Second
)

// Run executes the loop until a terminal verdict or the iteration budget is
// exhausted. Gate failures, checker dispatch failures, and doer timeouts
// are absorbed into retry verdicts; Run only returns an error for store
// corruption or a cancelled context.
func (e *Engine) Run(ctx context.Context, p Params) (*Result, error) {
	if p.MaxIterations <= 0 {
		p.MaxIterations = 1
	}

	res := &Result{SessionID: p.SessionID}
	state := &session.LoopState{
		SessionID:     p.SessionID,
		RubricPath:    p.RubricPath,
		MaxIterations: p.MaxIterations,
	}

	var rub rubric.Rubric
	var rubHash string
	doerID := p.SessionID
	checkerResponded := false

	for iter := 0; iter < p.MaxIterations; iter++ {
		res.Iterations = iter + 1

		if err := e.Store.UpdateActivity(p.SessionID, ActivityAwaitingDoer); err != nil {
			return nil, err
		}
		logging.Phase(fmt.Sprintf("Iteration %d/%d: waiting for doer %s", iter+1, p.MaxIterations, doerID))

		sess, waitErr := e.waitForDoer(ctx, doerID)
		if waitErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Timed out: the attempt failed, but the loop carries on.
			logging.Warn(fmt.Sprintf("Doer %s did not finish in time", doerID))
			rec := session.IterationRecord{
				Iteration:   iter,
				DoerSession: doerID,
				Verdict:     verdict.Retry,
				Feedback:    "previous attempt did not finish within the time budget",
				RubricHash:  rubHash,
			}
			stop, nextDoer, err := e.seal(ctx, p, state, res, rec, "")
			if stop || err != nil {
				return res, err
			}
			if nextDoer != "" {
				doerID = nextDoer
			}
			continue
		}

		// Worker-driven exits short-circuit verification entirely.
		if sess.State == session.StateExited {
			res.Verdict = VerdictExit
			res.ExitReason = e.Store.ExitReason(doerID)
			res.ResultText = e.Store.Result(doerID)
			rec := session.IterationRecord{
				Iteration:   iter,
				DoerSession: doerID,
				Verdict:     VerdictExit,
				Feedback:    res.ExitReason,
				RubricHash:  rubHash,
			}
			state.History = append(state.History, rec)
			res.History = state.History
			if err := e.Store.SaveLoopState(state); err != nil {
				return nil, err
			}
			logging.Info(fmt.Sprintf("Doer %s exited: %s", doerID, res.ExitReason))
			return res, nil
		}
		if sess.State == session.StateAborted {
			res.Verdict = VerdictTerminate
			rec := session.IterationRecord{
				Iteration:   iter,
				DoerSession: doerID,
				Verdict:     VerdictTerminate,
				Feedback:    "session aborted",
				RubricHash:  rubHash,
			}
			state.History = append(state.History, rec)
			res.History = state.History
			if err := e.Store.SaveLoopState(state); err != nil {
				return nil, err
			}
			return res, nil
		}

		if err := e.Store.UpdateActivity(p.SessionID, ActivityVerifying); err != nil {
			return nil, err
		}

		// Hot-reload the rubric so edits made while the doer was working
		// apply to this verification pass. A read failure keeps the last
		// good rubric.
		if p.RubricPath != "" {
			if r, _, h, err := rubric.Load(p.RubricPath); err == nil {
				rub, rubHash = r, h
			} else {
				logging.Warn(fmt.Sprintf("Rubric reload failed, keeping previous: %v", err))
			}
		}

		doerResult := e.Store.Result(doerID)

		gateResults := e.Gates.RunAll(ctx, rub.Gates)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for _, g := range gateResults {
			if !g.Passed() {
				logging.Warn(fmt.Sprintf("Gate failed: %s", g.Command))
			}
		}

		rec := session.IterationRecord{
			Iteration:   iter,
			DoerSession: doerID,
			Gates:       gateResults,
			RubricHash:  rubHash,
		}

		agentVerdict := ""
		feedback := ""
		if rub.HasCriteria() {
			resp, checkerID, responded := e.runChecker(ctx, rub, gateResults, doerResult, iter, state.History, p.SessionID)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if responded {
				checkerResponded = true
			} else if !checkerResponded {
				// No usable checker response in any iteration of this run:
				// retrying the doer cannot produce a verifiable result, so
				// the loop terminates with the degradation recorded.
				resp.Overall = verdict.Terminate
				resp.Feedback += "; no usable checker response in any iteration, verification degraded"
			}
			agentVerdict = resp.Overall
			feedback = resp.Feedback
			rec.CheckerSession = checkerID
			rec.MustHave = resp.MustHave
			rec.NiceToHave = resp.NiceToHave
		}

		rec.Verdict = verdict.Compose(gateResults, rec.MustHave, rec.NiceToHave, agentVerdict)
		if rec.Verdict != verdict.Accept {
			rec.Feedback = retryFeedback(gateResults, feedback)
		}

		stop, nextDoer, err := e.seal(ctx, p, state, res, rec, doerResult)
		if stop || err != nil {
			return res, err
		}
		if nextDoer != "" {
			doerID = nextDoer
		}
	}

	res.Verdict = VerdictMaxIterations
	res.History = state.History
	logging.Warn(fmt.Sprintf("Reached max iterations (%d) without acceptance", p.MaxIterations))
	return res, nil
}

// seal appends the record, persists loop state, and either finishes the
// run (stop=true) or spawns the next doer and returns its id.
func (e *Engine) seal(ctx context.Context, p Params, state *session.LoopState, res *Result, rec session.IterationRecord, doerResult string) (bool, string, error) {
	state.History = append(state.History, rec)
	res.History = state.History
	if err := e.Store.SaveLoopState(state); err != nil {
		return true, "", err
	}

	switch rec.Verdict {
	case verdict.Accept:
		res.Verdict = VerdictAccept
		res.ResultText = doerResult
		if rec.DoerSession != p.SessionID {
			// Acceptance came from a retry child; lift its result onto the
			// loop session so downstream consumers find it there.
			if err := e.Store.SaveResult(p.SessionID, doerResult); err != nil {
				return true, "", err
			}
		}
		if err := e.Store.UpdateState(p.SessionID, session.StateDone); err != nil {
			return true, "", err
		}
		logging.Success(fmt.Sprintf("Accepted after %d iteration(s)", rec.Iteration+1))
		return true, "", nil

	case verdict.Terminate:
		res.Verdict = VerdictTerminate
		res.ResultText = doerResult
		// Terminal states never revert: a doer that already finished stays
		// done, only an active session is marked aborted.
		sess, err := e.Store.Load(p.SessionID)
		if err != nil {
			return true, "", err
		}
		if !session.IsTerminal(sess.State) {
			if err := e.Store.UpdateState(p.SessionID, session.StateAborted); err != nil {
				return true, "", err
			}
		}
		logging.Error("Checker terminated the loop")
		return true, "", nil
	}

	// Retry. Out of budget is handled by the run loop's bound.
	if rec.Iteration+1 >= p.MaxIterations {
		return false, "", nil
	}

	nextIter := rec.Iteration + 1
	task := contract.RetryTask(p.Task, rec.Iteration, doerResult, rec.Feedback)
	nextID, err := e.Spawner.Spawn(ctx, SpawnRequest{
		ID:      session.IterID(p.SessionID, nextIter, "doer"),
		Task:    task,
		Parent:  p.SessionID,
		Model:   p.Model,
		WorkDir: p.WorkDir,
	})
	if err != nil {
		return true, "", fmt.Errorf("spawn retry doer: %w", err)
	}
	logging.Info(fmt.Sprintf("Retry verdict: spawned doer %s for iteration %d", nextID, nextIter+1))
	return false, nextID, nil
}

// runChecker records a checker child session, dispatches the contract with
// one retry, and parses the response. Dispatch failure degrades to a RETRY
// verdict with the error as feedback and responded=false; the caller
// escalates when no dispatch ever succeeded.
func (e *Engine) runChecker(ctx context.Context, rub rubric.Rubric, gateResults []gates.Result, doerResult string, iter int, history []session.IterationRecord, loopID string) (verdict.Response, string, bool) {
	prompt := contract.Checker(contract.CheckerInput{
		Rubric:      rub,
		GateResults: gateResults,
		DoerOutput:  doerResult,
		Iteration:   iter,
		History:     history,
	})

	checkerID := session.IterID(loopID, iter, "check")
	checkerSess := &session.Session{
		ID:     checkerID,
		Task:   prompt,
		Parent: loopID,
		State:  session.StateRunning,
	}
	if err := e.Store.Save(checkerSess); err != nil {
		logging.Warn(fmt.Sprintf("Failed to record checker session: %v", err))
		checkerID = ""
	}

	runner := &agent.RetryRunner{Inner: e.Checker, Cfg: agent.RetryConfig{MaxRetries: 1, BaseDelay: checkerRetryDelay}}
	text, err := runner.Run(ctx, prompt)
	if err != nil {
		logging.Warn(fmt.Sprintf("Checker dispatch failed: %v", err))
		if checkerID != "" {
			_ = e.Store.UpdateState(checkerID, session.StateAborted)
		}
		return verdict.Response{
			Overall:  verdict.Retry,
			Feedback: fmt.Sprintf("checker unavailable: %v", err),
		}, checkerID, false
	}

	if checkerID != "" {
		_ = e.Store.SaveResult(checkerID, text)
		_ = e.Store.UpdateState(checkerID, session.StateDone)
	}
	return verdict.ParseResponse(text, len(rub.Criteria), len(rub.NiceToHave)), checkerID, true
}

// waitForDoer blocks until the doer session reaches a terminal state,
// waking on filesystem events when a watcher is available and polling as a
// fallback.
func (e *Engine) waitForDoer(ctx context.Context, id string) (*session.Session, error) {
	pollInterval := e.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}
	timeout := e.DoerTimeout
	if timeout == 0 {
		timeout = DefaultDoerTimeout
	}

	var events <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(e.Store.SessionDir(id)); err == nil {
			events = watcher.Events
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		sess, err := e.Store.Load(id)
		if err != nil {
			return nil, err
		}
		if session.IsTerminal(sess.State) {
			return sess, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s after %s", ErrDoerTimeout, id, timeout)
		case <-ticker.C:
		case <-events:
		}
	}
}

// retryFeedback prefixes checker feedback with a summary of failed gates so
// the next attempt sees the concrete command failures even when the checker
// said nothing about them.
func retryFeedback(gateResults []gates.Result, checkerFeedback string) string {
	var failed []string
	for _, g := range gateResults {
		if !g.Passed() {
			out := g.Output
			if len(out) > 500 {
				out = out[:500]
			}
			failed = append(failed, fmt.Sprintf("Gate `%s` failed:\n%s", g.Command, out))
		}
	}
	if len(failed) == 0 {
		return checkerFeedback
	}
	summary := ""
	for i, f := range failed {
		if i > 0 {
			summary += "\n\n"
		}
		summary += f
	}
	if checkerFeedback == "" {
		return summary
	}
	return summary + "\n\n" + checkerFeedback
}
