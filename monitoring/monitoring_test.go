package monitoring

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestAgentMetrics checks that observer calls end up in the right series.
func TestAgentMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewAgentMetrics(reg)
	require.NoError(t, err)

	ckb := m.ForAgent("ckb")
	udt := m.ForAgent("RUSD")

	ckb.ObserveCycle(time.Second, nil)
	ckb.ObserveCycle(time.Second, fmt.Errorf("cycle: %w",
		autopilot.ErrInsufficientFunds))
	udt.ObserveCycle(time.Second, errors.New("rpc down"))

	require.Equal(t, 1.0, testutil.ToFloat64(
		m.cycles.WithLabelValues("ckb", resultOK),
	))
	require.Equal(t, 1.0, testutil.ToFloat64(
		m.cycles.WithLabelValues("ckb", resultInsufficientFunds),
	))
	require.Equal(t, 1.0, testutil.ToFloat64(
		m.cycles.WithLabelValues("RUSD", resultError),
	))

	ckb.ObserveOpen(nil)
	ckb.ObserveOpen(nil)
	ckb.ObserveOpen(errors.New("peer refused"))
	require.Equal(t, 2.0, testutil.ToFloat64(
		m.opens.WithLabelValues("ckb", resultOK),
	))
	require.Equal(t, 1.0, testutil.ToFloat64(
		m.opens.WithLabelValues("ckb", resultError),
	))

	ckb.ObservePending(3)
	ckb.ObservePending(2)
	require.Equal(t, 2.0, testutil.ToFloat64(
		m.pending.WithLabelValues("ckb"),
	))

	// Registering twice on the same registry fails.
	_, err = NewAgentMetrics(reg)
	require.Error(t, err)
}

// TestExporter checks that the exporter serves the registry over HTTP.
func TestExporter(t *testing.T) {
	t.Parallel()

	e, err := NewExporter(&fncfg.Prometheus{
		Enable: true,
		Listen: "127.0.0.1:0",
	})
	require.NoError(t, err)

	m, err := NewAgentMetrics(e.Registry())
	require.NoError(t, err)
	m.ForAgent("ckb").ObservePending(1)

	require.NoError(t, e.Start())
	t.Cleanup(func() {
		require.NoError(t, e.Stop())
	})

	resp, err := http.Get(fmt.Sprintf("http://%v/metrics", e.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "fnpilot_version")
	require.Contains(t, string(body), "fnpilot_uptime_seconds")
	require.Contains(
		t, string(body), `fnpilot_agent_pending_opens{agent="ckb"} 1`,
	)
}
