package fncfg

import (
	"errors"
	"fmt"
	"time"
)

var (
	// MinHealthCheckInterval is the minimum interval we allow between
	// health checks.
	MinHealthCheckInterval = time.Minute

	// MinHealthCheckTimeout is the minimum amount of time we allow a
	// health check to take before it fails.
	MinHealthCheckTimeout = time.Second

	// MinHealthCheckBackoff is the minimum back off we allow between
	// health check retries.
	MinHealthCheckBackoff = time.Second
)

// HealthCheckConfig contains the configuration for the health checks that
// fnpilot runs against the nodes it depends on.
type HealthCheckConfig struct {
	FiberCheck *CheckConfig `group:"fiber" namespace:"fiber" toml:"fiber"`

	CkbCheck *CheckConfig `group:"ckb" namespace:"ckb" toml:"ckb"`
}

// Validate checks the values configured for our health checks.
func (h *HealthCheckConfig) Validate() error {
	if err := h.FiberCheck.validate("fiber"); err != nil {
		return err
	}

	return h.CkbCheck.validate("ckb")
}

// CheckConfig is the configuration of a single health check.
//
//nolint:ll
type CheckConfig struct {
	Interval time.Duration `long:"interval" toml:"interval" description:"How often to run a health check."`

	Attempts int `long:"attempts" toml:"attempts" description:"The number of calls we will make for the check before failing. Set this value to 0 to disable a check."`

	Timeout time.Duration `long:"timeout" toml:"timeout" description:"The amount of time we allow the health check to take before failing due to timeout."`

	Backoff time.Duration `long:"backoff" toml:"backoff" description:"The amount of time to back-off between failed health checks."`
}

// Enabled reports whether the check runs at all.
func (c *CheckConfig) Enabled() bool {
	return c != nil && c.Attempts > 0
}

// validate checks the values in a health check config entry if it is
// enabled.
func (c *CheckConfig) validate(name string) error {
	if c == nil {
		return errors.New(name + " health check config missing")
	}

	if c.Attempts == 0 {
		return nil
	}

	if c.Backoff < MinHealthCheckBackoff {
		return fmt.Errorf("%v backoff: %v below minimum: %v", name,
			c.Backoff, MinHealthCheckBackoff)
	}

	if c.Timeout < MinHealthCheckTimeout {
		return fmt.Errorf("%v timeout: %v below minimum: %v", name,
			c.Timeout, MinHealthCheckTimeout)
	}

	if c.Interval < MinHealthCheckInterval {
		return fmt.Errorf("%v interval: %v below minimum: %v", name,
			c.Interval, MinHealthCheckInterval)
	}

	return nil
}

// DefaultHealthCheck returns the default health check settings: both nodes
// are polled every minute and fnpilot shuts down after three failed
// attempts in a row.
func DefaultHealthCheck() *HealthCheckConfig {
	return &HealthCheckConfig{
		FiberCheck: &CheckConfig{
			Interval: time.Minute,
			Attempts: 3,
			Timeout:  10 * time.Second,
			Backoff:  30 * time.Second,
		},
		CkbCheck: &CheckConfig{
			Interval: time.Minute,
			Attempts: 3,
			Timeout:  10 * time.Second,
			Backoff:  30 * time.Second,
		},
	}
}
