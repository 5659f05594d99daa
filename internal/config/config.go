// Package config defines the scope configuration model and default values.
//
// Configuration is assembled from multiple sources with a strict precedence
// chain: built-in defaults < global config file < project config file <
// explicit config file < CLI flag overrides.
package config

// WhitelistedVars lists every configuration variable name that may appear in
// config files. Variables not in this list are silently ignored during loading.
var WhitelistedVars = [13]string{
	"MODEL",
	"CHECKER_MODEL",
	"MAX_ITERATIONS",
	"POLL_INTERVAL",
	"DOER_TIMEOUT",
	"GATE_TIMEOUT",
	"GATE_PARALLEL",
	"STORE_DIR",
	"WORKER_COMMAND",
	"VERBOSE",
	"NOTIFY_WEBHOOK",
	"NOTIFY_CHANNEL",
	"NOTIFY_CHAT_ID",
}

// Config holds every configuration field for the scope CLI.
type Config struct {
	// Model selection for doer and checker agents.
	Model        string
	CheckerModel string

	// Loop limits and timing (durations in seconds).
	MaxIterations int
	PollInterval  int
	DoerTimeout   int
	GateTimeout   int
	GateParallel  int

	// Session store location and worker launch command.
	StoreDir      string
	WorkerCommand string

	// Runtime flags.
	Verbose bool

	// Notification settings.
	NotifyWebhook string
	NotifyChannel string
	NotifyChatID  string

	// CLI-only flags (not loaded from config files).
	ConfigFile string
}

// NewDefaultConfig returns a Config populated with all built-in default values.
func NewDefaultConfig() *Config {
	return &Config{
		Model:         "opus",
		CheckerModel:  "sonnet",
		MaxIterations: 3,
		PollInterval:  2,
		DoerTimeout:   7200,
		GateTimeout:   300,
		GateParallel:  4,
		StoreDir:      ".scope",
		NotifyChannel: "telegram",
	}
}
