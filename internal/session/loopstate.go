package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/verdict"
)

const loopStateFile = "loop_state.json"

// IterationRecord is the append-only record of one completed loop
// iteration. Records are strictly ordered by iteration index and never
// edited after being written.
type IterationRecord struct {
	Iteration      int                        `json:"iteration"`
	DoerSession    string                     `json:"doer_session"`
	CheckerSession string                     `json:"checker_session,omitempty"`
	Gates          []gates.Result             `json:"gates,omitempty"`
	MustHave       []verdict.CriterionVerdict `json:"must_have,omitempty"`
	NiceToHave     []verdict.CriterionVerdict `json:"nice_to_have,omitempty"`
	Verdict        string                     `json:"verdict"`
	Feedback       string                     `json:"feedback,omitempty"`
	RubricHash     string                     `json:"rubric_hash,omitempty"`
}

// LoopState is the loop engine's durable view of a session: rubric
// location, iteration budget, and full history. It is persisted after every
// iteration so a restart can resume from the last record.
type LoopState struct {
	SessionID     string            `json:"session_id"`
	RubricPath    string            `json:"rubric_path"`
	MaxIterations int               `json:"max_iterations"`
	History       []IterationRecord `json:"history"`
}

// SaveLoopState persists a loop state as indented JSON, atomically.
func (s *Store) SaveLoopState(ls *LoopState) error {
	data, err := json.MarshalIndent(ls, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal loop state: %w", err)
	}
	dir := s.SessionDir(ls.SessionID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, ls.SessionID)
	}
	if err := writeFileAtomic(filepath.Join(dir, loopStateFile), string(data)); err != nil {
		return fmt.Errorf("write loop state: %w", err)
	}
	return nil
}

// LoadLoopState reads the persisted loop state for a session. Returns
// ErrNotFound if the session has no loop state.
func (s *Store) LoadLoopState(id string) (*LoopState, error) {
	data, err := os.ReadFile(filepath.Join(s.SessionDir(id), loopStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no loop state for %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read loop state: %w", err)
	}
	var ls LoopState
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("unmarshal loop state: %w", err)
	}
	return &ls, nil
}
