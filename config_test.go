package fnpilot

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/nervosnetwork/fnpilot/signal"
	"github.com/stretchr/testify/require"
)

const testConfigToml = `
debuglevel = "debug"

[fiber]
url = "http://127.0.0.1:9227"
timeout = "5s"
max_rps = 5.0

[ckb]
url = "http://127.0.0.1:9114"

[prometheus]
enable = true
listen = "127.0.0.1:9999"

[[agents]]
max_chan_num = 5
max_pending = 2
min_chan_funds = "0x174876e800"
max_chan_funds = 500000000000

[agents.token]
type = "Ckb"

[[agents]]
max_chan_num = 1
max_pending = 1
min_chan_funds = 100
max_chan_funds = 100
interval = 120
heuristics = [
  { heuristic = "Richness", weight = 1.0 },
]

[agents.token]
type = "Udt"
name = "RUSD"

[agents.token.script]
code_hash = "0x1142755a044bf2ee358cba9f2da187ce928c91cd4dc8692ded0337efa677d21a"
hash_type = "type"
args = "0x878fcc6f1f08d48e87bb1c3b3d5083f23f8a39c5d5c764f253b55b998526439b"
`

// writeConfig writes content as the default config file of a fresh fnpilot
// directory and returns the directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	err := os.WriteFile(
		filepath.Join(dir, fncfg.DefaultConfigFilename),
		[]byte(content), 0600,
	)
	require.NoError(t, err)

	return dir
}

// TestParseConfig checks that the config file found in the fnpilot
// directory is loaded and that flags take precedence over it.
func TestParseConfig(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, testConfigToml)

	cfg, fileErr, err := parseConfig("fnpilot", []string{
		"--fnpilotdir=" + dir,
		"--ckb.url=http://10.0.0.1:8114",
	})
	require.NoError(t, err)
	require.NoError(t, fileErr)

	require.Equal(t, "debug", cfg.DebugLevel)
	require.Equal(t, "http://127.0.0.1:9227", cfg.Fiber.URL)
	require.Equal(t, 5*time.Second, cfg.Fiber.Timeout)
	require.Equal(t, 5.0, cfg.Fiber.MaxRPS)

	// Values absent from the file keep their defaults.
	require.Equal(t, fncfg.DefaultFiberBurst, cfg.Fiber.Burst)

	// The flag wins over the file.
	require.Equal(t, "http://10.0.0.1:8114", cfg.Ckb.URL)

	require.True(t, cfg.Prometheus.Enabled())
	require.Equal(t, "127.0.0.1:9999", cfg.Prometheus.Listen)

	require.Len(t, cfg.Agents, 2)
	require.Equal(t, fnwire.Amount(100_000_000_000), cfg.Agents[0].MinChanFunds)
	require.Equal(t, "RUSD", cfg.Agents[1].Name())
	require.EqualValues(t, 120, cfg.Agents[1].Interval)
}

// TestParseConfigFileErrors checks how a missing file and unknown keys are
// reported.
func TestParseConfigFileErrors(t *testing.T) {
	t.Parallel()

	// A missing file is reported but doesn't fail parsing.
	cfg, fileErr, err := parseConfig("fnpilot", []string{
		"--fnpilotdir=" + t.TempDir(),
	})
	require.NoError(t, err)
	require.ErrorIs(t, fileErr, fs.ErrNotExist)
	require.Empty(t, cfg.Agents)

	// Unknown keys are reported the same way.
	dir := writeConfig(t, testConfigToml+"\nbogus_option = 1\n")
	_, fileErr, err = parseConfig("fnpilot", []string{
		"--fnpilotdir=" + dir,
	})
	require.NoError(t, err)
	require.ErrorContains(t, fileErr, "bogus_option")

	// Malformed TOML fails.
	dir = writeConfig(t, "[[agents]\n")
	_, _, err = parseConfig("fnpilot", []string{"--fnpilotdir=" + dir})
	require.Error(t, err)

	// So do unknown flags.
	_, _, err = parseConfig("fnpilot", []string{"--nosuchflag"})
	require.Error(t, err)
}

// TestValidateConfig checks validation of a parsed config. It replaces the
// package loggers, so it doesn't run in parallel.
func TestValidateConfig(t *testing.T) {
	dir := writeConfig(t, testConfigToml)

	parse := func(t *testing.T, args ...string) Config {
		t.Helper()

		args = append(args, "--fnpilotdir="+dir)
		cfg, _, err := parseConfig("fnpilot", args)
		require.NoError(t, err)

		// Keep the test from writing log files.
		cfg.LogConfig.File.Disable = true

		return *cfg
	}

	var interceptor signal.Interceptor

	t.Run("valid", func(t *testing.T) {
		cfg, err := ValidateConfig(parse(t), interceptor)
		require.NoError(t, err)
		require.NotNil(t, cfg.SubLogMgr)
		require.Equal(t, filepath.Join(dir, defaultLogDirname),
			cfg.LogDir)

		// Defaults were applied to the agents.
		for _, a := range cfg.Agents {
			require.NotNil(t, a.Public)
			require.True(t, *a.Public)
			require.NotEmpty(t, a.Heuristics)
		}
		require.EqualValues(t, fncfg.DefaultInterval,
			cfg.Agents[0].Interval)
	})

	t.Run("no agents", func(t *testing.T) {
		cfg := parse(t)
		cfg.Agents = nil

		_, err := ValidateConfig(cfg, interceptor)
		require.ErrorContains(t, err, "no agents configured")
	})

	t.Run("invalid agent", func(t *testing.T) {
		cfg := parse(t)
		cfg.Agents[0].MaxPending = 0

		_, err := ValidateConfig(cfg, interceptor)
		require.ErrorContains(t, err, "max_pending")
	})

	t.Run("invalid url", func(t *testing.T) {
		cfg := parse(t, "--fiber.url=ftp://127.0.0.1")

		_, err := ValidateConfig(cfg, interceptor)
		require.Error(t, err)
	})

	t.Run("invalid debug level", func(t *testing.T) {
		cfg := parse(t, "--debuglevel=loud")

		_, err := ValidateConfig(cfg, interceptor)
		require.ErrorContains(t, err, "debug level")
	})
}
