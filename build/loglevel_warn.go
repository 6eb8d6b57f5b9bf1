//go:build warn
// +build warn

package build

// LogLevel specifies a log level of warn.
var LogLevel = "warn"
