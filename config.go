// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (C) 2015-2020 The Lightning Network Developers

package fnpilot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/nervosnetwork/fnpilot/build"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/nervosnetwork/fnpilot/signal"
)

const (
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = "fnpilot.log"
)

var (
	// DefaultFnpilotDir is the default directory where fnpilot tries to
	// find its configuration file and store its logs.
	DefaultFnpilotDir = btcutil.AppDataDir("fnpilot", false)

	// DefaultConfigFile is the default full path of fnpilot's
	// configuration file.
	DefaultConfigFile = filepath.Join(
		DefaultFnpilotDir, fncfg.DefaultConfigFilename,
	)

	defaultLogDir = filepath.Join(DefaultFnpilotDir, defaultLogDirname)
)

// Config defines the configuration options for fnpilot.
//
// See LoadConfig for further details regarding the configuration
// loading+parsing process.
//
//nolint:ll
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit" toml:"-"`

	FnpilotDir string `long:"fnpilotdir" description:"The base directory that contains fnpilot's config file and logs." toml:"-"`
	ConfigFile string `short:"C" long:"configfile" description:"Path to the TOML configuration file" toml:"-"`
	LogDir     string `long:"logdir" description:"Directory to log output." toml:"logdir"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems" toml:"debuglevel"`

	Fiber *fncfg.Fiber `group:"fiber" namespace:"fiber" toml:"fiber"`

	Ckb *fncfg.Ckb `group:"ckb" namespace:"ckb" toml:"ckb"`

	Prometheus *fncfg.Prometheus `group:"prometheus" namespace:"prometheus" toml:"prometheus"`

	HealthChecks *fncfg.HealthCheckConfig `group:"healthcheck" namespace:"healthcheck" toml:"healthcheck"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging" toml:"logging"`

	// Agents can only be configured in the config file.
	Agents []*fncfg.Agent `no-flag:"true" toml:"agents"`

	// SubLogMgr is the root logger that all the daemon's subloggers are
	// hooked up to.
	SubLogMgr  *build.SubLoggerManager
	LogRotator *build.RotatingLogWriter
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		FnpilotDir:   DefaultFnpilotDir,
		ConfigFile:   DefaultConfigFile,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
		Fiber:        fncfg.DefaultFiber(),
		Ckb:          fncfg.DefaultCkb(),
		Prometheus:   fncfg.DefaultPrometheus(),
		HealthChecks: fncfg.DefaultHealthCheck(),
		LogConfig:    build.DefaultLogConfig(),
		LogRotator:   build.NewRotatingLogWriter(),
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(interceptor signal.Interceptor) (*Config, error) {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))

	cfg, configFileError, err := parseConfig(appName, os.Args[1:])
	if err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Println(appName, "version", build.Version(),
			"commit="+build.Commit)
		os.Exit(0)
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(*cfg, interceptor)
	if err != nil {
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		fnplLog.Warnf("%v", configFileError)
	}

	return cleanCfg, nil
}

// parseConfig runs the flag, file, flag sequence on args. A missing config
// file is not an error and is returned separately.
func parseConfig(appName string, args []string) (*Config, error, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := newParser(appName, &preCfg).ParseArgs(args); err != nil {
		return nil, nil, err
	}
	if preCfg.ShowVersion {
		return &preCfg, nil, nil
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their fnpilotdir, then we should assume they intend to use
	// the config file within it.
	configFileDir := fncfg.CleanAndExpandPath(preCfg.FnpilotDir)
	configFilePath := fncfg.CleanAndExpandPath(preCfg.ConfigFile)
	if configFileDir != DefaultFnpilotDir {
		if configFilePath == DefaultConfigFile {
			configFilePath = filepath.Join(
				configFileDir, fncfg.DefaultConfigFilename,
			)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	md, err := toml.DecodeFile(configFilePath, &cfg)
	switch {
	// A config file that doesn't exist is fine, the agents check in
	// ValidateConfig tells the user what is missing.
	case errors.Is(err, fs.ErrNotExist):
		configFileError = err

	case err != nil:
		return nil, nil, fmt.Errorf("unable to parse config file "+
			"%v: %w", configFilePath, err)

	default:
		for _, key := range md.Undecoded() {
			configFileError = errors.Join(configFileError,
				fmt.Errorf("unknown config key %v in %v",
					key, configFilePath))
		}
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := newParser(appName, &cfg).ParseArgs(args); err != nil {
		return nil, nil, err
	}

	return &cfg, configFileError, nil
}

// newParser returns a command line parser for cfg.
func newParser(appName string, cfg *Config) *flags.Parser {
	parser := flags.NewParser(cfg, flags.Default)
	parser.Name = appName

	return parser
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config, interceptor signal.Interceptor) (*Config,
	error) {

	// If the provided fnpilot directory is not the default, we'll modify
	// the path to the logs that live within it.
	fnpilotDir := fncfg.CleanAndExpandPath(cfg.FnpilotDir)
	if fnpilotDir != DefaultFnpilotDir && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(fnpilotDir, defaultLogDirname)
	}
	cfg.LogDir = fncfg.CleanAndExpandPath(cfg.LogDir)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		subLogMgr := build.NewSubLoggerManager()
		SetupLoggers(subLogMgr, interceptor)
		fmt.Println("Supported subsystems",
			subLogMgr.SupportedSubsystems())
		os.Exit(0)
	}

	for _, agent := range cfg.Agents {
		agent.ApplyDefaults()
	}

	err := fncfg.Validate(
		cfg.Fiber, cfg.Ckb, cfg.Prometheus, cfg.HealthChecks,
		cfg.LogConfig,
	)
	if err != nil {
		return nil, err
	}

	if len(cfg.Agents) == 0 {
		return nil, errors.New("no agents configured, add at least " +
			"one [[agents]] section to the config file")
	}
	if err := fncfg.ValidateAgents(cfg.Agents); err != nil {
		return nil, err
	}

	// Initialize logging at the default logging level.
	cfg.SubLogMgr = build.NewSubLoggerManager(
		build.NewDefaultLogHandlers(cfg.LogConfig, cfg.LogRotator)...,
	)
	SetupLoggers(cfg.SubLogMgr, interceptor)

	if !cfg.LogConfig.File.Disable {
		err := cfg.LogRotator.InitLogRotator(
			cfg.LogConfig.File,
			filepath.Join(cfg.LogDir, defaultLogFilename),
		)
		if err != nil {
			return nil, err
		}
	}

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(cfg.DebugLevel, cfg.SubLogMgr)
	if err != nil {
		return nil, fmt.Errorf("error parsing debug level: %w", err)
	}

	return &cfg, nil
}
