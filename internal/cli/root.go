// Package cli assembles the scope command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adagradschool/scope/internal/agent"
	"github.com/adagradschool/scope/internal/config"
	"github.com/adagradschool/scope/internal/gates"
	"github.com/adagradschool/scope/internal/logging"
	"github.com/adagradschool/scope/internal/session"
	"github.com/adagradschool/scope/internal/spawn"
)

// app carries the resolved configuration and open store shared by every
// subcommand.
type app struct {
	cfg   *config.Config
	store *session.Store
}

// NewRootCmd builds the scope command tree.
func NewRootCmd(version string) *cobra.Command {
	cfg := config.NewDefaultConfig()
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:     "scope",
		Short:   "Verified agent sessions",
		Long:    "Scope spawns agent worker sessions and verifies their results against rubrics before accepting them.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.ConfigFile, "config", "", "explicit config file")
	pf.StringVar(&cfg.StoreDir, "store", cfg.StoreDir, "session store directory")
	pf.StringVar(&cfg.Model, "model", cfg.Model, "doer agent model")
	pf.StringVar(&cfg.CheckerModel, "checker-model", cfg.CheckerModel, "checker agent model")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newSpawnCmd(a),
		newWaitCmd(a),
		newExitCmd(a),
		newAbortCmd(a),
		newRubricCmd(a),
		newStatusCmd(a),
		newWorkflowCmd(a),
		newWorkerCmd(a),
	)
	return root
}

// init resolves the precedence chain and opens the session store. CLI flags
// were already bound to the default config; Changed() distinguishes real
// overrides from defaults so file values are not clobbered.
func (a *app) init(cmd *cobra.Command) error {
	overrides := buildCLIOverrides(cmd, a.cfg)

	globalPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		globalPath = filepath.Join(home, ".config", "scope", "config")
	}
	projectPath := filepath.Join(a.cfg.StoreDir, "config")

	final, err := config.LoadWithPrecedence(globalPath, projectPath, a.cfg.ConfigFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	final.ConfigFile = a.cfg.ConfigFile
	a.cfg = final

	logging.SetVerbose(a.cfg.Verbose)

	store, err := session.Open(a.cfg.StoreDir)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func buildCLIOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)
	flags := cmd.Flags()

	if flags.Changed("model") {
		overrides["MODEL"] = cfg.Model
	}
	if flags.Changed("checker-model") {
		overrides["CHECKER_MODEL"] = cfg.CheckerModel
	}
	if flags.Changed("store") {
		overrides["STORE_DIR"] = cfg.StoreDir
	}
	if flags.Changed("verbose") {
		if cfg.Verbose {
			overrides["VERBOSE"] = "true"
		} else {
			overrides["VERBOSE"] = "false"
		}
	}
	return overrides
}

// spawner builds the tmux-backed worker spawner from the config.
func (a *app) spawner() *spawn.TmuxSpawner {
	return &spawn.TmuxSpawner{Store: a.store, Command: a.cfg.WorkerCommand}
}

// gateRunner builds the gate runner rooted at the working directory.
func (a *app) gateRunner(dir string) *gates.Runner {
	return &gates.Runner{
		Dir:         dir,
		Timeout:     time.Duration(a.cfg.GateTimeout) * time.Second,
		MaxParallel: a.cfg.GateParallel,
	}
}

// checkerRunner builds the checker agent for the given model, falling back
// to the configured checker model. Dispatch retries live in the loop
// engine, so the raw runner is returned here.
func (a *app) checkerRunner(model, workDir string) agent.Runner {
	if model == "" {
		model = a.cfg.CheckerModel
	}
	return &agent.ClaudeRunner{Model: model, WorkDir: workDir}
}
