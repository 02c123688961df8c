// Package metrics registers the daemon's Prometheus collectors.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_runs_total",
			Help: "Total number of pipeline runs by result.",
		},
		[]string{"result"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "footprint_run_duration_seconds",
			Help:    "Pipeline run duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_samples_total",
			Help: "Propagated samples by validity.",
		},
		[]string{"kind"},
	)

	satellitesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "footprint_satellites_skipped_total",
			Help: "Satellites skipped because no propagator could be built.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "footprint_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(satellitesSkippedTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder receives pipeline run outcomes. The zero value of Prom writes
// to the default registry; tests substitute their own.
type Recorder interface {
	RunFinished(result string, d time.Duration)
	Samples(valid, invalid int)
	Skipped(n int)
}

// Prom records into the package collectors.
type Prom struct{}

func (Prom) RunFinished(result string, d time.Duration) {
	runsTotal.WithLabelValues(result).Inc()
	runDurationSeconds.Observe(d.Seconds())
}

func (Prom) Samples(valid, invalid int) {
	samplesTotal.WithLabelValues("valid").Add(float64(valid))
	samplesTotal.WithLabelValues("invalid").Add(float64(invalid))
}

func (Prom) Skipped(n int) {
	satellitesSkippedTotal.Add(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade take over the connection. The status
// is recorded as 101.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: %T does not support hijacking", rw.ResponseWriter)
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]bool{
	"/":                    true,
	"/healthz":             true,
	"/metrics":             true,
	"/ws":                  true,
	"/api/status":          true,
	"/api/version":         true,
	"/api/config":          true,
	"/api/catalog":         true,
	"/api/catalog/refresh": true,
	"/api/run":             true,
}

// normalizeRoute keeps the path label bounded: anything the daemon does
// not serve is counted as "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}
