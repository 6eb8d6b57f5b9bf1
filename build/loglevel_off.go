//go:build off
// +build off

package build

// LogLevel specifies a log level of off.
var LogLevel = "off"
