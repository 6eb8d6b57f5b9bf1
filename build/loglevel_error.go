//go:build error
// +build error

package build

// LogLevel specifies a log level of error.
var LogLevel = "error"
