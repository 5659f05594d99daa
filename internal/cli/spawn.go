package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adagradschool/scope/internal/banner"
	"github.com/adagradschool/scope/internal/exitcode"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/loop"
	"github.com/adagradschool/scope/internal/notification"
	"github.com/adagradschool/scope/internal/rubric"
	sighandler "github.com/adagradschool/scope/internal/signal"
)

func newSpawnCmd(a *app) *cobra.Command {
	var (
		checker  string
		maxIter  int
		parent   string
		detached bool
	)

	cmd := &cobra.Command{
		Use:   "spawn TASK",
		Short: "Spawn a worker session and verify its result",
		Long: "Spawn starts a worker session for TASK and, unless --detach is given, drives its " +
			"verification loop: each time the worker finishes, gates run and the checker evaluates " +
			"the result against the rubric, retrying with feedback until acceptance.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpawn(cmd.Context(), args[0], checker, maxIter, parent, detached)
		},
	}

	cmd.Flags().StringVarP(&checker, "checker", "c", "", "rubric: a command, agent:CRITERION, or a rubric .md file")
	cmd.Flags().IntVarP(&maxIter, "max-iterations", "n", 0, "iteration budget (default from config)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent session id")
	cmd.Flags().BoolVar(&detached, "detach", false, "spawn only; do not run the verification loop")
	return cmd
}

func (a *app) runSpawn(ctx context.Context, task, checker string, maxIter int, parent string, detached bool) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	spawner := a.spawner()
	id, err := spawner.Spawn(ctx, loop.SpawnRequest{
		Task:    task,
		Parent:  parent,
		Model:   a.cfg.Model,
		WorkDir: workDir,
	})
	if err != nil {
		return err
	}

	rubricPath := ""
	if checker != "" {
		rubricPath, err = rubric.Materialize(checker, a.store.SessionDir(id))
		if err != nil {
			return err
		}
		if err := a.store.SaveRubricPath(id, rubricPath); err != nil {
			return err
		}
	}

	if detached {
		fmt.Println(id)
		return nil
	}

	banner.PrintStartupBanner(id, a.cfg.Model, rubricPath)

	if maxIter == 0 {
		maxIter = a.cfg.MaxIterations
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupted, aborting session...")
	})

	engine := &loop.Engine{
		Store:        a.store,
		Spawner:      spawner,
		Checker:      a.checkerRunner("", workDir),
		Gates:        a.gateRunner(workDir),
		PollInterval: time.Duration(a.cfg.PollInterval) * time.Second,
		DoerTimeout:  time.Duration(a.cfg.DoerTimeout) * time.Second,
	}

	start := time.Now()
	res, err := engine.Run(ctx, loop.Params{
		Task:          task,
		SessionID:     id,
		RubricPath:    rubricPath,
		MaxIterations: maxIter,
		Model:         a.cfg.Model,
		WorkDir:       workDir,
	})
	if err != nil {
		if ctx.Err() != nil {
			if abortErr := a.store.Abort(id); abortErr != nil {
				logging.Warn(fmt.Sprintf("Failed to abort session: %v", abortErr))
			}
			banner.PrintInterruptedBanner(id)
			a.notify(notification.EventInterrupted, id, 0, exitcode.Interrupted)
			os.Exit(exitcode.Interrupted)
		}
		return err
	}

	code := exitcode.FromVerdict(res.Verdict)
	duration := int(time.Since(start).Seconds())
	switch res.Verdict {
	case loop.VerdictAccept:
		banner.PrintAcceptedBanner(res.Iterations, duration)
		if res.ResultText != "" {
			fmt.Println(res.ResultText)
		}
		a.notify(notification.EventAccepted, id, res.Iterations, code)
	case loop.VerdictTerminate:
		feedback := ""
		if len(res.History) > 0 {
			feedback = res.History[len(res.History)-1].Feedback
		}
		banner.PrintTerminatedBanner(feedback)
		a.notify(notification.EventTerminated, id, res.Iterations, code)
	case loop.VerdictExit:
		banner.PrintExitedBanner(res.ExitReason)
		a.notify(notification.EventExited, id, res.Iterations, code)
	case loop.VerdictMaxIterations:
		banner.PrintMaxIterationsBanner(res.Iterations, maxIter)
		a.notify(notification.EventMaxIterations, id, res.Iterations, code)
	}
	os.Exit(code)
	return nil // unreachable
}

func (a *app) notify(event, sessionID string, iteration, code int) {
	workDir, _ := os.Getwd()
	project := filepath.Base(workDir)
	if project == "." || project == "" {
		project = "scope"
	}
	msg := notification.FormatEvent(event, project, sessionID, iteration, code)
	notification.SendNotification(a.cfg.NotifyWebhook, a.cfg.NotifyChannel, a.cfg.NotifyChatID, msg)
}
