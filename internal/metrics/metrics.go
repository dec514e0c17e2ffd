// Package metrics exposes the Prometheus surface named in the domain
// stack expansion: commands applied by tag, trades by symbol, a
// per-symbol order book depth gauge, apply latency and snapshot size and
// duration. The metrics are registered and served; nothing in this
// module updates them, so every series keeps its initial value. fx-based
// lifecycle wiring is dropped in favor of explicit construction from
// cmd/tradsys/main.go -- this module has no Raft/RPC concerns of its
// own to schedule around.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is the full set of counters/gauges/histograms this node
// exports.
type Metrics struct {
	registry *prometheus.Registry

	CommandsApplied  *prometheus.CounterVec
	TradesTotal      *prometheus.CounterVec
	BookDepth        *prometheus.GaugeVec
	ApplyLatency     *prometheus.HistogramVec
	SnapshotSize     prometheus.Gauge
	SnapshotDuration prometheus.Histogram
}

// New registers every metric against a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		CommandsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "commands_applied_total",
			Help:      "Commands applied by the OrderProcessor, by command tag.",
		}, []string{"command"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "trades_total",
			Help:      "Half-trades emitted by the matcher, by symbol.",
		}, []string{"symbol"}),
		BookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "book_depth",
			Help:      "Resting order count per symbol and side.",
		}, []string{"symbol", "side"}),
		ApplyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "apply_latency_seconds",
			Help:      "Time spent applying one command, by command tag.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "snapshot_size_bytes",
			Help:      "Size in bytes of the most recently produced snapshot.",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradsys",
			Subsystem: "engine",
			Name:      "snapshot_build_seconds",
			Help:      "Time spent building the most recent snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.CommandsApplied,
		m.TradesTotal,
		m.BookDepth,
		m.ApplyLatency,
		m.SnapshotSize,
		m.SnapshotDuration,
	)
	return m
}

// Server builds an http.Server that serves the registry on addr; Run
// starts it and shuts it down when the context is canceled.
func (m *Metrics) Server(addr string, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}),
	}
	return srv
}

// Run starts srv and blocks until ctx is canceled, then shuts it down.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting metrics server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("stopping metrics server")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
