package fncfg

import (
	"fmt"
	"net"
)

// DefaultPrometheusListen is the default address the metrics exporter
// listens on.
const DefaultPrometheusListen = "127.0.0.1:8989"

// Prometheus configures the Prometheus exporter.
//
//nolint:ll
type Prometheus struct {
	// Enable indicates whether to export agent metrics.
	Enable bool `long:"enable" toml:"enable" description:"Enable the Prometheus exporter."`

	// Listen is the address the exporter serves /metrics on.
	Listen string `long:"listen" toml:"listen" description:"The interface and port the Prometheus exporter listens on."`
}

// DefaultPrometheus is the default configuration for the Prometheus metrics
// exporter.
func DefaultPrometheus() *Prometheus {
	return &Prometheus{
		Listen: DefaultPrometheusListen,
	}
}

// Enabled returns whether or not Prometheus monitoring is enabled.
func (p *Prometheus) Enabled() bool {
	return p.Enable
}

// Validate checks the listen address when the exporter is enabled.
func (p *Prometheus) Validate() error {
	if !p.Enable {
		return nil
	}

	if _, _, err := net.SplitHostPort(p.Listen); err != nil {
		return fmt.Errorf("prometheus: invalid listen address %q: %w",
			p.Listen, err)
	}

	return nil
}
