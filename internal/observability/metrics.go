package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/Christophertabanag/Inventory-System/internal/jobs"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerOps       *prometheus.CounterVec
	stocktakeRuns   *prometheus.CounterVec
	labelsRendered  *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, ledger and job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framestock_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framestock_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ledger := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framestock_ledger_operations_total",
		Help: "Ledger operations by operation and result.",
	}, []string{"op", "result"})
	stocktake := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framestock_stocktake_runs_total",
		Help: "Stocktake reconciliations by outcome.",
	}, []string{"outcome"})
	labels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "framestock_labels_rendered_total",
		Help: "Rendered barcode labels by output format.",
	}, []string{"format"})
	registry.MustRegister(
		requests, duration, ledger, stocktake, labels,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ledgerOps:       ledger,
		stocktakeRuns:   stocktake,
		labelsRendered:  labels,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLedger counts one ledger operation. result is ok, rejected or error.
func (m *Metrics) ObserveLedger(op, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

// ObserveStocktake counts one reconciliation. clean means nothing was
// missing or unexpected.
func (m *Metrics) ObserveStocktake(clean bool) {
	if m == nil {
		return
	}
	outcome := "discrepancy"
	if clean {
		outcome = "clean"
	}
	m.stocktakeRuns.WithLabelValues(outcome).Inc()
}

// ObserveLabels counts rendered labels per format.
func (m *Metrics) ObserveLabels(format string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.labelsRendered.WithLabelValues(format).Add(float64(count))
}

// Jobs exposes the background job collectors sharing this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
