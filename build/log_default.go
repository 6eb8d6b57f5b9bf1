//go:build !stdlog && !nolog
// +build !stdlog,!nolog

package build

// LoggingType hands out loggers from the daemon's SubLoggerManager once it
// is set up, and keeps package loggers silent until then.
const LoggingType = LogTypeDefault
