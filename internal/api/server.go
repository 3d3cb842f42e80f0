package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/star/horizons/internal/auth"
	"github.com/star/horizons/internal/client"
	"github.com/star/horizons/internal/health"
	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/httputil"
	"github.com/star/horizons/internal/metrics"
)

// Source provides decoded Horizons records. *client.Client implements it.
type Source interface {
	Bodies(ctx context.Context) ([]horizons.Body, error)
	Vectors(ctx context.Context, id int, w client.Window) ([]horizons.VectorItem, error)
	Elements(ctx context.Context, id int, w client.Window) ([]horizons.OrbitalElementsItem, error)
	Properties(ctx context.Context, id int) (horizons.Properties, error)
}

// Options configure the gateway beyond its address and source.
type Options struct {
	Auth       auth.Config
	TrustProxy bool

	// Caps on in-flight /api/ requests; zero uses the defaults.
	MaxConcurrentPerIP int
	MaxConcurrent      int
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	readiness  *health.Readiness
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, src Source, opts Options) *Server {
	readiness := &health.Readiness{}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           newHandler(logger, src, readiness, opts),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Upstream queries may take several attempts of up to 30s each.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		readiness: readiness,
		logger:    logger,
	}
}

func newHandler(logger *slog.Logger, src Source, readiness *health.Readiness, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", readiness.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/bodies", bodiesHandler(logger, src))
	mux.HandleFunc("GET /api/v1/bodies/{id}/vectors", vectorsHandler(logger, src))
	mux.HandleFunc("GET /api/v1/bodies/{id}/elements", elementsHandler(logger, src))
	mux.HandleFunc("GET /api/v1/bodies/{id}/properties", propertiesHandler(logger, src))

	limiter := newUpstreamLimiter(opts.MaxConcurrentPerIP, opts.MaxConcurrent)

	// Build middleware chain: metrics -> logging -> auth -> limit -> mux.
	var handler http.Handler = mux
	handler = limitMiddleware(logger, limiter, opts.TrustProxy)(handler)
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe binds the address, marks the server ready and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve marks the server ready and serves on an already bound listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening", "component", "api", "addr", ln.Addr().String())
	s.readiness.SetReady(true)
	return s.httpServer.Serve(ln)
}

// Shutdown fails the readiness probe and then drains open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.readiness.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := httputil.RequestID(r)
			w.Header().Set(httputil.RequestIDHeader, requestID)
			r = r.WithContext(httputil.WithRequestID(r.Context(), requestID))
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
				"request_id", requestID,
			)
		})
	}
}
