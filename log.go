package fnpilot

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/build"
	"github.com/nervosnetwork/fnpilot/ckbrpc"
	"github.com/nervosnetwork/fnpilot/fnrpc"
	"github.com/nervosnetwork/fnpilot/monitoring"
	"github.com/nervosnetwork/fnpilot/signal"
)

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it will write to the backend. When adding new
// subsystems, add the subsystem logger variable here and to the
// SetupLoggers function.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file. This must be performed early during application startup by
// calling ValidateConfig.
var (
	// fnplPkgLoggers is a list of all fnpilot package level loggers that
	// are registered. They are tracked here so they can be replaced once
	// the SetupLoggers function is called with the final root logger.
	fnplPkgLoggers []*replaceableLogger

	// addFnplPkgLogger is a helper function that creates a new replaceable
	// main package level logger and adds it to the list of loggers that
	// are replaced again later, once the final root logger is ready.
	addFnplPkgLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{
			Logger:    build.NewSubLogger(subsystem, nil),
			subsystem: subsystem,
		}
		fnplPkgLoggers = append(fnplPkgLoggers, l)
		return l
	}

	// Loggers that need to be accessible from the fnpilot package can be
	// placed here. Loggers that are only used in sub modules can be added
	// directly by using the AddSubLogger method.
	fnplLog = addFnplPkgLogger("FNPL")
	hlckLog = addFnplPkgLogger("HLCK")
)

// replaceableLogger is a thin wrapper around a logger that is used so the
// logger can be replaced easily without some black pointer magic.
type replaceableLogger struct {
	btclog.Logger
	subsystem string
}

// SetupLoggers initializes all package-global logger variables.
func SetupLoggers(root *build.SubLoggerManager,
	interceptor signal.Interceptor) {

	// Now that we have the proper root logger, we can replace the
	// placeholder fnpilot package loggers.
	for _, l := range fnplPkgLoggers {
		l.Logger = build.NewSubLogger(
			l.subsystem, genSubLogger(root, interceptor),
		)
		SetSubLogger(root, l.subsystem, l.Logger)
	}

	AddSubLogger(root, autopilot.Subsystem, interceptor,
		autopilot.UseLogger)
	AddSubLogger(root, fnrpc.Subsystem, interceptor, fnrpc.UseLogger)
	AddSubLogger(root, ckbrpc.Subsystem, interceptor, ckbrpc.UseLogger)
	AddSubLogger(root, monitoring.Subsystem, interceptor,
		monitoring.UseLogger)
	AddSubLogger(root, signal.Subsystem, interceptor, signal.UseLogger)
}

// genSubLogger creates a logger for a subsystem. We provide an instance of
// a signal.Interceptor to be able to shutdown in the case of a critical error.
func genSubLogger(root *build.SubLoggerManager,
	interceptor signal.Interceptor) func(string) btclog.Logger {

	// Create a shutdown function which will request shutdown from our
	// interceptor if it is listening.
	shutdown := func() {
		if !interceptor.Alive() {
			return
		}

		interceptor.RequestShutdown()
	}

	// Return a function which will create a sublogger from our root
	// logger without shutdown fn.
	return func(tag string) btclog.Logger {
		return root.GenSubLogger(tag, shutdown)
	}
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.SubLoggerManager, subsystem string,
	interceptor signal.Interceptor, useLoggers ...func(btclog.Logger)) {

	// genSubLogger will return a callback for creating a logger instance,
	// which we will give to the root logger.
	genLogger := genSubLogger(root, interceptor)

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := build.NewSubLogger(subsystem, genLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a
// sub system.
func SetSubLogger(root *build.SubLoggerManager, subsystem string,
	logger btclog.Logger, useLoggers ...func(btclog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}
