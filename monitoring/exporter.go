package monitoring

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nervosnetwork/fnpilot/build"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every exported metric.
const namespace = "fnpilot"

// Exporter serves the metrics of a registry over HTTP for Prometheus to
// scrape.
type Exporter struct {
	started sync.Once
	stopped sync.Once

	cfg      *fncfg.Prometheus
	registry *prometheus.Registry

	listener net.Listener
	server   *http.Server
	wg       sync.WaitGroup
}

// NewExporter creates an exporter with a fresh registry holding the process,
// Go runtime, version and uptime metrics.
func NewExporter(cfg *fncfg.Prometheus) (*Exporter, error) {
	registry := prometheus.NewRegistry()

	versionGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "version",
			Help:      "Version of fnpilot running.",
		},
		[]string{"version", "commit"},
	)
	versionGauge.WithLabelValues(build.Version(), build.Commit).Set(1)

	startTime := time.Now()
	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Uptime of fnpilot in seconds.",
		},
		func() float64 {
			return time.Since(startTime).Seconds()
		},
	)

	err := registerAll(
		registry,
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
		collectors.NewGoCollector(),
		versionGauge,
		uptime,
	)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		cfg:      cfg,
		registry: registry,
	}, nil
}

// Registry returns the registry the exporter serves. Agent metrics are
// registered here.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Start listens on the configured address and serves /metrics.
func (e *Exporter) Start() error {
	var startErr error
	e.started.Do(func() {
		listener, err := net.Listen("tcp", e.cfg.Listen)
		if err != nil {
			startErr = fmt.Errorf("unable to listen on %v: %w",
				e.cfg.Listen, err)
			return
		}
		e.listener = listener

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			e.registry, promhttp.HandlerOpts{},
		))
		e.server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		log.Infof("Prometheus exporter started on %v/metrics",
			listener.Addr())

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()

			err := e.server.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Prometheus exporter failed: %v", err)
			}
		}()
	})

	return startErr
}

// Addr returns the address the exporter listens on, once started.
func (e *Exporter) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}

	return e.listener.Addr()
}

// Stop shuts the HTTP server down.
func (e *Exporter) Stop() error {
	var err error
	e.stopped.Do(func() {
		if e.server == nil {
			return
		}

		log.Info("Prometheus exporter shutting down")

		err = e.server.Close()
		e.wg.Wait()
	})

	return err
}

// registerAll registers every collector with reg.
func registerAll(reg prometheus.Registerer,
	cs ...prometheus.Collector) error {

	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("unable to register collector: %w", err)
		}
	}

	return nil
}
