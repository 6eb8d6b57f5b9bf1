package fnpilot

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/build"
	"github.com/nervosnetwork/fnpilot/ckbrpc"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/nervosnetwork/fnpilot/fnrpc"
	"github.com/nervosnetwork/fnpilot/monitoring"
	"github.com/nervosnetwork/fnpilot/signal"
)

// dialTimeout bounds connecting to the RPC endpoints on startup.
const dialTimeout = 30 * time.Second

// Main is the true entry point for fnpilot. It dials the Fiber node and the
// CKB indexer, starts one agent per configured token and blocks until a
// shutdown is requested through the interceptor.
func Main(cfg *Config, interceptor signal.Interceptor) error {
	defer func() {
		fnplLog.Info("Shutdown complete")
		if err := cfg.LogRotator.Close(); err != nil {
			fmt.Printf("unable to close log rotator: %v\n", err)
		}
	}()

	// Show version at startup.
	fnplLog.Infof("Version: %s commit=%s, debuglevel=%s",
		build.Version(), build.Commit, cfg.DebugLevel)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	fiber, err := fnrpc.Dial(ctx, &fnrpc.Config{
		URL:            cfg.Fiber.URL,
		RequestTimeout: cfg.Fiber.Timeout,
		MaxRPS:         cfg.Fiber.MaxRPS,
		Burst:          cfg.Fiber.Burst,
		PageSize:       cfg.Fiber.PageSize,
	})
	if err != nil {
		return mkErr("unable to dial fiber node at %v: %v",
			cfg.Fiber.URL, err)
	}
	defer fiber.Close()

	ckb, err := ckbrpc.Dial(ctx, &ckbrpc.Config{
		URL:            cfg.Ckb.URL,
		RequestTimeout: cfg.Ckb.Timeout,
		PageSize:       cfg.Ckb.PageSize,
	})
	if err != nil {
		return mkErr("unable to dial ckb indexer at %v: %v",
			cfg.Ckb.URL, err)
	}
	defer ckb.Close()

	fnplLog.Infof("Connected to fiber node at %v and ckb indexer at %v",
		cfg.Fiber.URL, cfg.Ckb.URL)

	// Create the health monitor before anything else is started, so
	// that an unreachable node shuts us down early.
	healthMonitor := newHealthMonitor(
		cfg.HealthChecks, fiber, ckb, interceptor,
	)
	if err := healthMonitor.Start(); err != nil {
		return mkErr("unable to start health monitor: %v", err)
	}
	defer func() {
		if err := healthMonitor.Stop(); err != nil {
			hlckLog.Errorf("Unable to stop health monitor: %v", err)
		}
	}()

	var metrics *monitoring.AgentMetrics
	if cfg.Prometheus.Enabled() {
		exporter, err := monitoring.NewExporter(cfg.Prometheus)
		if err != nil {
			return mkErr("unable to create prometheus exporter: %v",
				err)
		}

		metrics, err = monitoring.NewAgentMetrics(exporter.Registry())
		if err != nil {
			return mkErr("unable to create agent metrics: %v", err)
		}

		if err := exporter.Start(); err != nil {
			return mkErr("unable to start prometheus exporter: %v",
				err)
		}
		defer func() {
			if err := exporter.Stop(); err != nil {
				fnplLog.Errorf("Unable to stop prometheus "+
					"exporter: %v", err)
			}
		}()
	}

	source := &rpcGraphSource{
		fiber: fiber,
		ckb:   ckb,
	}
	agents, err := initAutoPilot(cfg.Agents, source, metrics)
	if err != nil {
		return mkErr("unable to initialize autopilot: %v", err)
	}

	manager := autopilot.NewManager(agents...)
	if err := manager.Start(); err != nil {
		return mkErr("unable to start autopilot agents: %v", err)
	}
	defer func() {
		if err := manager.Stop(); err != nil {
			fnplLog.Errorf("Unable to stop autopilot agents: %v",
				err)
		}
	}()

	fnplLog.Infof("Started %d autopilot agent(s)", manager.NumRunning())

	// Wait for shutdown signal from either a graceful server stop or from
	// the interrupt handler.
	<-interceptor.ShutdownChannel()

	return nil
}

// newHealthMonitor creates a health monitor that pings the Fiber node and
// the CKB indexer. When a check keeps failing, a shutdown is requested.
func newHealthMonitor(cfg *fncfg.HealthCheckConfig, fiber *fnrpc.Client,
	ckb *ckbrpc.Client,
	interceptor signal.Interceptor) *healthcheck.Monitor {

	var checks []*healthcheck.Observation

	if cfg.FiberCheck.Enabled() {
		timeout := cfg.FiberCheck.Timeout
		checks = append(checks, healthcheck.NewObservation(
			"fiber",
			func() error {
				ctx, cancel := context.WithTimeout(
					context.Background(), timeout,
				)
				defer cancel()

				_, err := fiber.NodeInfo(ctx)
				return err
			},
			cfg.FiberCheck.Interval, cfg.FiberCheck.Timeout,
			cfg.FiberCheck.Backoff, cfg.FiberCheck.Attempts,
		))
	}

	if cfg.CkbCheck.Enabled() {
		timeout := cfg.CkbCheck.Timeout
		checks = append(checks, healthcheck.NewObservation(
			"ckb",
			func() error {
				ctx, cancel := context.WithTimeout(
					context.Background(), timeout,
				)
				defer cancel()

				_, err := ckb.IndexerTip(ctx)
				return err
			},
			cfg.CkbCheck.Interval, cfg.CkbCheck.Timeout,
			cfg.CkbCheck.Backoff, cfg.CkbCheck.Attempts,
		))
	}

	return healthcheck.NewMonitor(&healthcheck.Config{
		Checks: checks,
		Shutdown: func(format string, params ...interface{}) {
			hlckLog.Criticalf("Health check: "+format, params...)
			interceptor.RequestShutdown()
		},
	})
}

// mkErr logs the error at error level and returns it.
func mkErr(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	fnplLog.Errorf("Shutting down because error in main method: %v", err)

	return err
}
