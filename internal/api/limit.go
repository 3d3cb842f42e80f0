package api

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/star/horizons/internal/httputil"
)

// Default concurrency caps for requests that reach Horizons. JPL asks
// clients not to run many queries in parallel.
const (
	DefaultMaxConcurrentPerIP = 4
	DefaultMaxConcurrent      = 32
)

// upstreamLimiter tracks in-flight upstream requests per client IP and globally.
type upstreamLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newUpstreamLimiter(maxPerIP, maxTotal int) *upstreamLimiter {
	if maxPerIP < 1 {
		maxPerIP = DefaultMaxConcurrentPerIP
	}
	if maxTotal < 1 {
		maxTotal = DefaultMaxConcurrent
	}
	return &upstreamLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a request for ip. It returns false when either cap is reached.
func (l *upstreamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.inFlight[ip] >= l.maxPerIP {
		return false
	}
	l.inFlight[ip]++
	l.total++
	return true
}

func (l *upstreamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

// count returns the in-flight requests for ip.
func (l *upstreamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}

// limitMiddleware rejects /api/ requests over the concurrency caps with 429.
// Probes and metrics are never limited.
func limitMiddleware(logger *slog.Logger, l *upstreamLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			ip := httputil.ClientIP(r, trustProxy)
			if !l.acquire(ip) {
				logger.Warn("concurrency limit reached",
					"component", "api",
					"remote_ip", ip,
					"in_flight", l.count(ip),
					"request_id", httputil.RequestIDFrom(r.Context()),
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many concurrent requests")
				return
			}
			defer l.release(ip)

			next.ServeHTTP(w, r)
		})
	}
}
