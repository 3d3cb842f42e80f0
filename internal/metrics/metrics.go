package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "horizons_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_upstream_requests_total",
			Help: "Total number of Horizons API attempts by product and outcome.",
		},
		[]string{"product", "outcome"},
	)

	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "horizons_upstream_duration_seconds",
			Help:    "Horizons API attempt duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"product"},
	)

	upstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_upstream_retries_total",
			Help: "Total number of retried Horizons API attempts.",
		},
		[]string{"product"},
	)

	recordsDecodedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_records_decoded_total",
			Help: "Total number of records decoded from Horizons responses.",
		},
		[]string{"product"},
	)

	recordsMalformedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_records_malformed_total",
			Help: "Total number of responses that ended on a malformed record.",
		},
		[]string{"product"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamDurationSeconds)
	prometheus.MustRegister(upstreamRetriesTotal)
	prometheus.MustRegister(recordsDecodedTotal)
	prometheus.MustRegister(recordsMalformedTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstreamRequest records one attempt against the Horizons API.
func ObserveUpstreamRequest(product, outcome string, d time.Duration) {
	upstreamRequestsTotal.WithLabelValues(product, outcome).Inc()
	upstreamDurationSeconds.WithLabelValues(product).Observe(d.Seconds())
}

// IncUpstreamRetry counts an attempt that is about to be retried.
func IncUpstreamRetry(product string) {
	upstreamRetriesTotal.WithLabelValues(product).Inc()
}

// AddRecordsDecoded adds n decoded records of product.
func AddRecordsDecoded(product string, n int) {
	if n <= 0 {
		return
	}
	recordsDecodedTotal.WithLabelValues(product).Add(float64(n))
}

// IncRecordsMalformed counts a response whose table failed to decode.
func IncRecordsMalformed(product string) {
	recordsMalformedTotal.WithLabelValues(product).Inc()
}

// exactRoutes are served as-is; anything else is either a body route or "other".
var exactRoutes = map[string]bool{
	"/":              true,
	"/healthz":       true,
	"/readyz":        true,
	"/metrics":       true,
	"/api/v1/bodies": true,
}

var bodySubroutes = map[string]bool{
	"vectors":    true,
	"elements":   true,
	"properties": true,
}

// normalizeRoute maps a request path to a bounded set of label values so that
// body ids and bot probes do not blow up label cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/api/v1/bodies/")
	if !ok {
		return "other"
	}
	id, sub, ok := strings.Cut(rest, "/")
	if !ok || !bodySubroutes[sub] {
		return "other"
	}
	if _, err := strconv.Atoi(id); err != nil {
		return "other"
	}
	return "/api/v1/bodies/{id}/" + sub
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

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
