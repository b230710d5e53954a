package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics process-wide counters and histograms, registered on a private
// registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	saveOutcomes      *prometheus.CounterVec
	satelliteFailures *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		saveOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_intake_saves_total",
			Help: "Intake save attempts by outcome.",
		}, []string{"outcome"}),
		satelliteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_intake_satellite_failures_total",
			Help: "Best-effort satellite writes that failed, by table.",
		}, []string{"table"}),
	}
}

// ObserveSave implements the save pipeline's metrics hook.
func (m *Metrics) ObserveSave(outcome string) {
	m.saveOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveSatelliteFailure implements the save pipeline's metrics hook.
func (m *Metrics) ObserveSatelliteFailure(table string) {
	m.satelliteFailures.WithLabelValues(table).Inc()
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
