package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/session"
	"github.com/adagradschool/scope/internal/spawn"
)

// newWorkerCmd is the entry point the spawner launches inside a tmux
// window. It reads its own session id from the environment, runs the agent
// on the session's task, and seals the session with the result.
func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Hidden: true,
		Short:  "Run the agent for the current worker session",
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := os.Getenv(spawn.SessionEnvVar)
			if id == "" {
				return fmt.Errorf("%s is not set", spawn.SessionEnvVar)
			}
			sess, err := a.store.Load(id)
			if err != nil {
				return err
			}
			if session.IsTerminal(sess.State) {
				logging.Info(fmt.Sprintf("Session %s already %s, nothing to do", id, sess.State))
				return nil
			}

			model := os.Getenv("SCOPE_MODEL")
			if model == "" {
				model = a.cfg.Model
			}
			runner := &agent.ClaudeRunner{Model: model}

			result, runErr := runner.Run(cmd.Context(), sess.Task)

			// The agent may have called scope exit while running; a
			// terminal state set by the worker side wins.
			if current, err := a.store.Load(id); err == nil && session.IsTerminal(current.State) {
				return nil
			}

			if runErr != nil {
				logging.Error(fmt.Sprintf("Agent failed for session %s: %v", id, runErr))
				if err := a.store.UpdateState(id, session.StateAborted); err != nil {
					return err
				}
				return runErr
			}

			if err := a.store.SaveResult(id, result); err != nil {
				return err
			}
			return a.store.UpdateState(id, session.StateDone)
		},
	}
}
