// Package metrics provides Prometheus metrics for fileshare.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so several instances can live in one
// process (tests) without colliding on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	transfersTotal   *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
	transfersActive  *prometheus.GaugeVec
	queriesAnswered  prometheus.Counter
	discoveredOffers *prometheus.CounterVec
}

// New creates and registers every fileshare metric.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_transfers_total",
				Help: "Finished transfers by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		transferBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_transfer_bytes_total",
				Help: "Bytes moved by finished transfers",
			},
			[]string{"direction"},
		),
		transfersActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fileshare_transfers_active",
				Help: "Transfers currently in progress",
			},
			[]string{"direction"},
		),
		queriesAnswered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fileshare_discovery_queries_answered_total",
				Help: "Discovery queries answered by the announcer",
			},
		),
		discoveredOffers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_discovery_offers_total",
				Help: "Discovery responses received, by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.transfersTotal,
		m.transferBytes,
		m.transfersActive,
		m.queriesAnswered,
		m.discoveredOffers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes the metrics on ln at /metrics until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	}
}

// TransferStarted implements transfer.Recorder.
func (m *Metrics) TransferStarted(direction string) {
	if m == nil {
		return
	}
	m.transfersActive.WithLabelValues(direction).Inc()
}

// TransferFinished implements transfer.Recorder.
func (m *Metrics) TransferFinished(direction, outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.transfersActive.WithLabelValues(direction).Dec()
	m.transfersTotal.WithLabelValues(direction, outcome).Inc()
	m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
}

// QueryAnswered records a discovery response sent by the announcer.
func (m *Metrics) QueryAnswered() {
	if m == nil {
		return
	}
	m.queriesAnswered.Inc()
}

// OfferReceived records a discovery response seen by the discoverer.
// result is one of "new", "duplicate" or "malformed".
func (m *Metrics) OfferReceived(result string) {
	if m == nil {
		return
	}
	m.discoveredOffers.WithLabelValues(result).Inc()
}
