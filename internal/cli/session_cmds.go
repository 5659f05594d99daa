package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adagradschool/scope/internal/banner"
	"github.com/adagradschool/scope/internal/exitcode"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/session"
	"github.com/adagradschool/scope/internal/spawn"
)

func newWaitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait ID",
		Short: "Block until a session reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			for {
				sess, err := a.store.Load(id)
				if err != nil {
					return err
				}
				if session.IsTerminal(sess.State) {
					if result := a.store.Result(id); result != "" {
						fmt.Println(result)
					}
					os.Exit(exitCodeForState(sess.State))
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(time.Duration(a.cfg.PollInterval) * time.Second):
				}
			}
		},
	}
	return cmd
}

func exitCodeForState(state string) int {
	switch state {
	case session.StateDone:
		return exitcode.Success
	case session.StateExited:
		return exitcode.Exited
	case session.StateAborted:
		return exitcode.Terminated
	}
	return exitcode.Error
}

func newExitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exit [REASON]",
		Short: "Exit the current worker session voluntarily",
		Long: "Exit marks the calling worker's session as exited, recording REASON. It only works " +
			"inside a worker session, where " + spawn.SessionEnvVar + " is set. An exited session " +
			"skips verification and halts any workflow it belongs to.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := os.Getenv(spawn.SessionEnvVar)
			if id == "" {
				return fmt.Errorf("%s is not set; scope exit only works inside a worker session", spawn.SessionEnvVar)
			}
			reason := ""
			if len(args) == 1 {
				reason = args[0]
			}
			if reason != "" {
				if err := a.store.SaveExitReason(id, reason); err != nil {
					return err
				}
			}
			return a.store.UpdateState(id, session.StateExited)
		},
	}
}

func newAbortCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "abort ID",
		Short: "Abort a session and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			descendants, err := a.store.Descendants(id)
			if err != nil {
				return err
			}
			if err := a.store.Abort(id); err != nil {
				return err
			}
			for _, d := range descendants {
				if err := spawn.Kill(cmd.Context(), d.ID); err != nil {
					logging.Warn(fmt.Sprintf("Failed to kill %s: %v", d.ID, err))
				}
			}
			if err := spawn.Kill(cmd.Context(), id); err != nil {
				logging.Warn(fmt.Sprintf("Failed to kill %s: %v", id, err))
			}
			logging.Info(fmt.Sprintf("Aborted %s and %d descendant(s)", id, len(descendants)))
			return nil
		},
	}
}

func newRubricCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rubric ID",
		Short: "Open a session's rubric in $EDITOR",
		Long: "Rubric opens the materialized rubric of a running session for editing. The loop " +
			"re-reads the rubric before every verification pass, so saved edits apply to the next " +
			"iteration without a restart.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.store.RubricPath(args[0])
			if path == "" {
				return fmt.Errorf("session %s has no rubric", args[0])
			}
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}
			ed := exec.CommandContext(cmd.Context(), editor, path)
			ed.Stdin = os.Stdin
			ed.Stdout = os.Stdout
			ed.Stderr = os.Stderr
			return ed.Run()
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List sessions and their states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.store.ListAll()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				logging.Info("No sessions found.")
				return nil
			}
			fmt.Printf("  %-14s %-10s %-14s %s\n", "ID", "STATE", "ACTIVITY", "TASK")
			fmt.Println("  " + strings.Repeat("─", 70))
			for _, s := range sessions {
				if !all && session.IsTerminal(s.State) {
					continue
				}
				banner.PrintStatusLine(s.ID, s.State, s.Activity, s.Task)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include finished sessions")
	return cmd
}
