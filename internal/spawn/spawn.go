// Package spawn creates worker sessions: a session record in the store and
// a detached tmux window running the agent with the session id in its
// environment.
package spawn

import (
	"context"
	"fmt"

	"github.com/adagradschool/scope/internal/loop"
	"github.com/adagradschool/scope/internal/session"
	"github.com/adagradschool/scope/internal/tmux"
)

// SessionEnvVar names the environment variable carrying the worker's own
// session id. Only the worker process sees it; the orchestrator always
// passes ids explicitly.
const SessionEnvVar = "SCOPE_SESSION_ID"

// TmuxSpawner implements loop.Spawner on top of detached tmux sessions.
type TmuxSpawner struct {
	Store *session.Store
	// Command is the worker command template; the task is passed on stdin
	// via the session store, so the command only needs the session id from
	// the environment. Defaults to DefaultCommand.
	Command string
}

// DefaultCommand runs the scope worker entry point, which reads its task
// from the store using SCOPE_SESSION_ID.
const DefaultCommand = "scope worker"

// Spawn allocates (or adopts) a session id, persists the session record,
// and starts the tmux window. The session starts in the running state; the
// worker flips it to a terminal state when it finishes.
func (s *TmuxSpawner) Spawn(ctx context.Context, req loop.SpawnRequest) (string, error) {
	id := req.ID
	if id == "" {
		var err error
		id, err = s.Store.NextID(req.Parent)
		if err != nil {
			return "", err
		}
	}

	sess := &session.Session{
		ID:     id,
		Task:   req.Task,
		Parent: req.Parent,
		State:  session.StateRunning,
	}
	if err := s.Store.Save(sess); err != nil {
		return "", err
	}

	command := s.Command
	if command == "" {
		command = DefaultCommand
	}
	env := []string{fmt.Sprintf("%s=%s", SessionEnvVar, id)}
	if req.Model != "" {
		env = append(env, "SCOPE_MODEL="+req.Model)
	}
	if err := tmux.NewSession(ctx, tmux.SessionName(id), req.WorkDir, command, env); err != nil {
		// Roll the record into a terminal state so nothing waits on it.
		_ = s.Store.UpdateState(id, session.StateAborted)
		return "", fmt.Errorf("spawn worker %s: %w", id, err)
	}
	return id, nil
}

// Kill tears down the tmux window of a session, if it exists.
func Kill(ctx context.Context, id string) error {
	return tmux.KillSession(ctx, tmux.SessionName(id))
}
