// Package workflow sequences named phases, each of which runs a full
// verification loop, and routes accepted results between phases.
package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// On-fail policies. A phase that ends in terminate or max_iterations
// consults its policy; exit always halts the workflow regardless.
const (
	OnFailStop     = "stop"
	OnFailContinue = "continue"
)

// ConfigurationError reports an invalid workflow definition. It is raised
// at registration time, before anything runs.
type ConfigurationError struct {
	Phase  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("workflow configuration error in phase %q: %s", e.Phase, e.Reason)
}

// Phase describes one step of a workflow.
type Phase struct {
	Name          string   `yaml:"name"`
	Task          string   `yaml:"task"`
	Checker       string   `yaml:"checker,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`
	Model         string   `yaml:"model,omitempty"`
	CheckerModel  string   `yaml:"checker_model,omitempty"`
	OnFail        string   `yaml:"on_fail,omitempty"`
	PipeFrom      []string `yaml:"pipe_from,omitempty"`
	FileScope     []string `yaml:"file_scope,omitempty"`
	Verify        []string `yaml:"verify,omitempty"`
}

// PhaseResult is the outcome of one executed phase. When a phase is retried
// under on_fail retry:N only the final attempt is reported, with Attempts
// counting every run.
type PhaseResult struct {
	Phase      string
	SessionID  string
	Verdict    string
	Iterations int
	Attempts   int
	ResultText string
	ExitReason string
}

// Accepted reports whether the phase ended with an accepted result.
func (r *PhaseResult) Accepted() bool { return r.Verdict == "accept" }

// Runner executes a single phase with the piped-in results of earlier
// phases. The workflow engine is agnostic to how phases actually run.
type Runner interface {
	RunPhase(ctx context.Context, phase Phase, priorResults []string) (*PhaseResult, error)
}

// Workflow is an ordered list of validated phases.
type Workflow struct {
	Name   string
	Runner Runner

	phases []Phase
	byName map[string]int
}

// New creates an empty workflow.
func New(name string) *Workflow {
	return &Workflow{Name: name, byName: make(map[string]int)}
}

// Phases returns the registered phases in order.
func (w *Workflow) Phases() []Phase { return w.phases }

// Phase registers the next phase. Duplicate names, unknown pipe_from
// references, and malformed on_fail policies fail here rather than at run
// time.
func (w *Workflow) Phase(p Phase) error {
	if p.Name == "" {
		return &ConfigurationError{Phase: p.Name, Reason: "phase name must not be empty"}
	}
	if p.Task == "" {
		return &ConfigurationError{Phase: p.Name, Reason: "phase task must not be empty"}
	}
	if _, dup := w.byName[p.Name]; dup {
		return &ConfigurationError{Phase: p.Name, Reason: "duplicate phase name"}
	}
	for _, src := range p.PipeFrom {
		if _, ok := w.byName[src]; !ok {
			return &ConfigurationError{Phase: p.Name, Reason: fmt.Sprintf("pipe_from references unknown phase %q", src)}
		}
	}
	if _, _, err := ParseOnFail(p.OnFail); err != nil {
		return &ConfigurationError{Phase: p.Name, Reason: err.Error()}
	}
	if p.MaxIterations < 0 {
		return &ConfigurationError{Phase: p.Name, Reason: "max_iterations must not be negative"}
	}
	w.byName[p.Name] = len(w.phases)
	w.phases = append(w.phases, p)
	return nil
}

// ParseOnFail validates an on_fail policy and returns its mode plus the
// total attempt budget. Empty input means stop. retry:N grants N retries on
// top of the initial run, so the budget is N+1 attempts.
func ParseOnFail(s string) (mode string, attempts int, err error) {
	switch s {
	case "", OnFailStop:
		return OnFailStop, 1, nil
	case OnFailContinue:
		return OnFailContinue, 1, nil
	}
	if rest, ok := strings.CutPrefix(s, "retry:"); ok {
		n, convErr := strconv.Atoi(rest)
		if convErr != nil || n < 1 {
			return "", 0, fmt.Errorf("invalid retry count in on_fail %q", s)
		}
		return "retry", n + 1, nil
	}
	return "", 0, fmt.Errorf("unknown on_fail policy %q", s)
}

// Run executes the phases in order. An exit verdict halts the workflow
// unconditionally. Terminate and max_iterations verdicts consult the
// phase's on_fail policy. The returned slice always contains every phase
// result produced before the halt, including the failing one.
func (w *Workflow) Run(ctx context.Context) ([]PhaseResult, error) {
	if w.Runner == nil {
		return nil, fmt.Errorf("workflow %q has no runner", w.Name)
	}

	var results []PhaseResult
	resultFor := make(map[string]*PhaseResult)

	for i, phase := range w.phases {
		prior := w.pipeInputs(i, phase, resultFor)

		mode, attempts, _ := ParseOnFail(phase.OnFail)

		var final *PhaseResult
		for attempt := 1; attempt <= attempts; attempt++ {
			res, err := w.Runner.RunPhase(ctx, phase, prior)
			if err != nil {
				return results, fmt.Errorf("phase %q: %w", phase.Name, err)
			}
			res.Attempts = attempt
			final = res
			if res.Accepted() || res.Verdict == "exit" {
				break
			}
		}

		results = append(results, *final)
		resultFor[phase.Name] = final

		if final.Verdict == "exit" {
			return results, nil
		}
		if final.Accepted() {
			continue
		}
		if mode == OnFailContinue {
			continue
		}
		// stop, or retry budget exhausted without acceptance
		return results, nil
	}
	return results, nil
}

// pipeInputs collects the result texts piped into a phase: the explicit
// PipeFrom sources, or the immediate predecessor when none are named.
// Phases that produced no result text are skipped; a failed phase that was
// continued past still pipes whatever partial result it produced.
func (w *Workflow) pipeInputs(index int, phase Phase, resultFor map[string]*PhaseResult) []string {
	var sources []string
	if len(phase.PipeFrom) > 0 {
		sources = phase.PipeFrom
	} else if index > 0 {
		sources = []string{w.phases[index-1].Name}
	}

	var inputs []string
	for _, src := range sources {
		if res, ok := resultFor[src]; ok && res.ResultText != "" {
			inputs = append(inputs, fmt.Sprintf("## %s\n\n%s", src, res.ResultText))
		}
	}
	return inputs
}
