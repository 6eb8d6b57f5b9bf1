//go:build trace
// +build trace

package build

// LogLevel specifies a log level of trace.
var LogLevel = "trace"
