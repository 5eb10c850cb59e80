// Package metrics exposes Prometheus collectors for the transfer service.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inventory-transfer/internal/core"
)

const namespace = "inventory"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	transfers       *prometheus.CounterVec
	ledgerMutations *prometheus.CounterVec
	lowStockEvents  *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "operations_total",
			Help:      "Transfer operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Committed stock mutations by ledger operation.",
		}, []string{"op"}),
		lowStockEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "low_stock",
			Name:      "events_total",
			Help:      "Low-stock events by dispatch outcome.",
		}, []string{"outcome"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		m.transfers,
		m.ledgerMutations,
		m.lowStockEvents,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// TransferOperation counts one create/execute/cancel call. outcome is "success" or an
// error kind label.
func (m *Metrics) TransferOperation(operation, outcome string) {
	m.transfers.WithLabelValues(operation, outcome).Inc()
}

// LowStockEvent satisfies notify.Recorder.
func (m *Metrics) LowStockEvent(outcome string) {
	m.lowStockEvents.WithLabelValues(outcome).Inc()
}

// StockChanged counts a ledger mutation once its unit of work commits.
func (m *Metrics) StockChanged(_ context.Context, tx core.Tx, change core.StockChange) error {
	op := string(change.Op)
	tx.AfterCommit(func() { m.ledgerMutations.WithLabelValues(op).Inc() })
	return nil
}

// Instrument records request counts and latency labelled by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
