//go:build nolog
// +build nolog

package build

// LoggingType silences every package level logger.
const LoggingType = LogTypeNone
