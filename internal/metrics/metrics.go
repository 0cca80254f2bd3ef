package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calscan"

// Collector exposes Prometheus metrics for inbound HTTP requests, scans,
// vendor calls and narrative generation.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	scansTotal      *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	candidates      prometheus.Histogram
	vendorDuration  *prometheus.HistogramVec
	narrativeTotal  *prometheus.CounterVec
}

// NewCollector constructs a collector on its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scans by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Latency distribution for scans, including vendor calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "candidates",
			Help:      "Number of calendar candidates scored per scan.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		vendorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vendor",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for market-data vendor requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		narrativeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "requests_total",
			Help:      "Total number of narrative generation calls.",
		}, []string{"provider", "status"}),
	}

	for _, col := range []prometheus.Collector{
		c.requestDuration,
		c.requestTotal,
		c.scansTotal,
		c.scanDuration,
		c.candidates,
		c.vendorDuration,
		c.narrativeTotal,
	} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveScan records a scan outcome.
func (c *Collector) ObserveScan(outcome string, candidates int, duration time.Duration) {
	c.scansTotal.WithLabelValues(outcome).Inc()
	c.scanDuration.Observe(duration.Seconds())
	if outcome != "error" {
		c.candidates.Observe(float64(candidates))
	}
}

// ObserveVendorRequest records one vendor HTTP request. A zero status means
// the request failed before a response arrived.
func (c *Collector) ObserveVendorRequest(endpoint string, status int, duration time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	c.vendorDuration.WithLabelValues(endpoint, label).Observe(duration.Seconds())
}

// ObserveNarrative records a narrative call.
func (c *Collector) ObserveNarrative(provider, status string) {
	c.narrativeTotal.WithLabelValues(provider, status).Inc()
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := routeLabel(r.URL.Path)

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// routeLabel collapses scan IDs so per-scan paths share one series.
func routeLabel(path string) string {
	const prefix = "/api/scans/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return path
	}
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return prefix + "{id}" + rest[i:]
		}
	}
	return prefix + "{id}"
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
