//go:build stdlog
// +build stdlog

package build

// LoggingType makes every package level logger write to stdout, even before
// the daemon set up its handlers.
const LoggingType = LogTypeStdOut
