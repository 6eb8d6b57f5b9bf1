//go:build critical
// +build critical

package build

// LogLevel specifies a log level of critical.
var LogLevel = "critical"
