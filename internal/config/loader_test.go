package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config", `
# comment line
MODEL=opus

CHECKER_MODEL = sonnet
MAX_ITERATIONS=5
NOT_WHITELISTED=ignored
malformed line without equals
VERBOSE=true
`)

	m, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "opus", m["MODEL"])
	assert.Equal(t, "sonnet", m["CHECKER_MODEL"])
	assert.Equal(t, "5", m["MAX_ITERATIONS"])
	assert.Equal(t, "true", m["VERBOSE"])
	assert.NotContains(t, m, "NOT_WHITELISTED")
	assert.Len(t, m, 4)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestApplyMapToConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyMapToConfig(cfg, map[string]string{
		"MODEL":          "haiku",
		"MAX_ITERATIONS": "7",
		"DOER_TIMEOUT":   "not-a-number", // preserved previous value
		"VERBOSE":        "yes",
		"UNKNOWN":        "ignored",
	})

	assert.Equal(t, "haiku", cfg.Model)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, NewDefaultConfig().DoerTimeout, cfg.DoerTimeout)
	assert.True(t, cfg.Verbose)
}

func TestLoadWithPrecedence(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global", "MODEL=global-model\nMAX_ITERATIONS=10\n")
	project := writeConfig(t, dir, "project", "MODEL=project-model\nGATE_TIMEOUT=60\n")
	explicit := writeConfig(t, dir, "explicit", "MODEL=explicit-model\n")

	cfg, err := LoadWithPrecedence(global, project, explicit, map[string]string{
		"GATE_TIMEOUT": "120",
	})
	require.NoError(t, err)

	// each layer overrides the one below it
	assert.Equal(t, "explicit-model", cfg.Model)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 120, cfg.GateTimeout)
	// untouched fields keep defaults
	assert.Equal(t, NewDefaultConfig().CheckerModel, cfg.CheckerModel)
}

func TestLoadWithPrecedence_MissingOptionalFiles(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadWithPrecedence(
		filepath.Join(dir, "no-global"),
		filepath.Join(dir, "no-project"),
		"", nil)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadWithPrecedence_MissingExplicitFileFails(t *testing.T) {
	_, err := LoadWithPrecedence("", "", filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("true"))
	assert.True(t, parseBool("TRUE"))
	assert.True(t, parseBool("1"))
	assert.True(t, parseBool("yes"))
	assert.False(t, parseBool("false"))
	assert.False(t, parseBool("0"))
	assert.False(t, parseBool(""))
	assert.False(t, parseBool("maybe"))
}
