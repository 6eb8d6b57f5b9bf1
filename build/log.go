package build

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btclog/v2"
)

// LogType selects where package level loggers write, set through the stdlog
// and nolog build tags.
type LogType byte

const (
	// LogTypeNone indicates no logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut writes every subsystem straight to stdout. Used for
	// debugging tests.
	LogTypeStdOut

	// LogTypeDefault hands subsystem loggers out of the daemon's
	// SubLoggerManager.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// NewSubLogger constructs a new subsystem logger for the build's LoggingType.
// Package level loggers are created with a nil generator and stay silent
// until the daemon replaces them through UseLogger.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch LoggingType {
	case LogTypeDefault:
		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	case LogTypeStdOut:
		handler := btclog.NewDefaultHandler(os.Stdout)
		logger := btclog.NewSLogger(handler.SubSystem(subsystem))

		// The level comes from the loglevel build tags.
		level, _ := btclog.LevelFromString(LogLevel)
		logger.SetLevel(level)

		return logger
	}

	return btclog.Disabled
}

// SubLoggers is a type that holds a map of subsystem loggers keyed by their
// subsystem name.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger provides the ability to retrieve the subsystem loggers of
// a logger and set their log levels individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns the sorted names of the registered
	// subsystems.
	SupportedSubsystems() []string

	// SetLogLevel assigns an individual subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// ParseAndSetDebugLevels parses a debug level string of the form
// <global-level>,<subsystem>=<level>,... and applies it to logger. The
// global level is optional. Nothing is applied if any part is invalid.
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	global, pairs, err := parseDebugLevels(level, logger)
	if err != nil {
		return err
	}

	if global != "" {
		logger.SetLogLevels(global)
	}
	for _, p := range pairs {
		logger.SetLogLevel(p.subsystem, p.level)
	}

	return nil
}

// levelPair is one <subsystem>=<level> entry of a debug level string.
type levelPair struct {
	subsystem string
	level     string
}

// parseDebugLevels splits and validates a debug level string.
func parseDebugLevels(level string,
	logger LeveledSubLogger) (string, []levelPair, error) {

	entries := strings.Split(level, ",")

	var global string
	if !strings.Contains(entries[0], "=") {
		global = entries[0]
		if !validLogLevel(global) {
			return "", nil, fmt.Errorf("the specified debug level "+
				"[%v] is invalid", global)
		}
		entries = entries[1:]
	}

	subLoggers := logger.SubLoggers()
	pairs := make([]levelPair, 0, len(entries))
	for _, entry := range entries {
		subsystem, lvl, ok := strings.Cut(entry, "=")
		switch {
		case !ok:
			return "", nil, fmt.Errorf("the specified debug level "+
				"contains an invalid subsystem/level pair [%v]",
				entry)

		case strings.Contains(lvl, "="):
			return "", nil, fmt.Errorf("the specified debug level "+
				"has an invalid format [%v] -- use format "+
				"subsystem1=level1,subsystem2=level2", entry)
		}

		if _, exists := subLoggers[subsystem]; !exists {
			return "", nil, fmt.Errorf("the specified subsystem "+
				"[%v] is invalid -- supported subsystems are %v",
				subsystem, logger.SupportedSubsystems())
		}

		if !validLogLevel(lvl) {
			return "", nil, fmt.Errorf("the specified debug level "+
				"[%v] is invalid", lvl)
		}

		pairs = append(pairs, levelPair{
			subsystem: subsystem,
			level:     lvl,
		})
	}

	return global, pairs, nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}

	return false
}
