//go:build info
// +build info

package build

// LogLevel specifies a log level of info.
var LogLevel = "info"
