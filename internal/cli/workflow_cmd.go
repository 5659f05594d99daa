package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/banner"
	"github.com/adagradschool/scope/internal/exitcode"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/notification"
	sighandler "github.com/adagradschool/scope/internal/signal"
	"github.com/adagradschool/scope/internal/workflow"
)

func newWorkflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run multi-phase workflows",
	}
	cmd.AddCommand(newWorkflowRunCmd(a))
	return cmd
}

func newWorkflowRunCmd(a *app) *cobra.Command {
	var intent string
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a workflow definition file",
		Long: "Run loads a yaml workflow definition and executes its phases in order, piping " +
			"accepted results between phases and applying each phase's on_fail policy.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorkflow(cmd.Context(), args[0], intent)
		},
	}
	cmd.Flags().StringVar(&intent, "intent", "", "overall intent passed to every phase's doer")
	return cmd
}

func (a *app) runWorkflow(ctx context.Context, path, intent string) error {
	wf, err := workflow.LoadFile(path)
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupted, halting workflow...")
	})

	wf.Runner = &workflow.LoopRunner{
		Store:   a.store,
		Spawner: a.spawner(),
		NewChecker: func(model string) agent.Runner {
			return a.checkerRunner(model, workDir)
		},
		Gates:   a.gateRunner(workDir),
		WorkDir: workDir,
		Intent:  intent,
	}

	logging.Phase("Running workflow " + wf.Name)
	results, runErr := wf.Run(ctx)
	banner.PrintWorkflowReport(wf.Name, results)

	if runErr != nil {
		if ctx.Err() != nil {
			a.notify(notification.EventInterrupted, wf.Name, len(results), exitcode.Interrupted)
			os.Exit(exitcode.Interrupted)
		}
		return runErr
	}

	code := exitcode.Success
	if n := len(results); n > 0 {
		last := results[n-1]
		if !last.Accepted() {
			code = exitcode.FromVerdict(last.Verdict)
		}
	}
	a.notify(notification.EventWorkflowDone, wf.Name, len(results), code)
	os.Exit(code)
	return nil // unreachable
}
