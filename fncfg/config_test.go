package fncfg_test

import (
	"testing"
	"time"

	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/stretchr/testify/require"
)

// TestValidateRPC checks the URL and limit checks of the node connection
// settings.
func TestValidateRPC(t *testing.T) {
	t.Parallel()

	require.NoError(t, fncfg.DefaultFiber().Validate())
	require.NoError(t, fncfg.DefaultCkb().Validate())

	tests := []struct {
		name string
		url  string
		err  string
	}{
		{name: "https", url: "https://fiber.example.com/rpc"},
		{name: "websocket", url: "ws://127.0.0.1:8227"},
		{name: "empty", url: "", err: "must be set"},
		{name: "scheme", url: "tcp://127.0.0.1:8227", err: "scheme"},
		{name: "no host", url: "http://", err: "no host"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := fncfg.DefaultFiber()
			f.URL = test.url

			c := fncfg.DefaultCkb()
			c.URL = test.url

			if test.err == "" {
				require.NoError(t, fncfg.Validate(f, c))
				return
			}
			require.ErrorContains(t, f.Validate(), test.err)
			require.ErrorContains(t, c.Validate(), test.err)
		})
	}

	f := fncfg.DefaultFiber()
	f.MaxRPS = -1
	require.ErrorContains(t, f.Validate(), "max_rps")

	c := fncfg.DefaultCkb()
	c.Timeout = -time.Second
	require.ErrorContains(t, c.Validate(), "timeout")
}

// TestValidateHealthCheck checks the minimum values of enabled health
// checks.
func TestValidateHealthCheck(t *testing.T) {
	t.Parallel()

	require.NoError(t, fncfg.DefaultHealthCheck().Validate())

	h := fncfg.DefaultHealthCheck()
	h.FiberCheck.Interval = time.Second
	require.ErrorContains(t, h.Validate(), "fiber interval")

	h = fncfg.DefaultHealthCheck()
	h.CkbCheck.Backoff = 0
	require.ErrorContains(t, h.Validate(), "ckb backoff")

	// A disabled check isn't validated.
	h.CkbCheck.Attempts = 0
	require.NoError(t, h.Validate())
	require.False(t, h.CkbCheck.Enabled())
	require.True(t, h.FiberCheck.Enabled())
}

// TestValidatePrometheus checks the exporter listen address.
func TestValidatePrometheus(t *testing.T) {
	t.Parallel()

	p := fncfg.DefaultPrometheus()
	require.False(t, p.Enabled())

	p.Listen = "nonsense"
	require.NoError(t, p.Validate())

	p.Enable = true
	require.Error(t, p.Validate())

	p.Listen = fncfg.DefaultPrometheusListen
	require.NoError(t, p.Validate())
}
