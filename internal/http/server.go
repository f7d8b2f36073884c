package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bukukas/internal/log"
	"bukukas/internal/metrics"
	"bukukas/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the optional parts of a Server.
type Options struct {
	// RateLimit is the number of requests per minute allowed per client IP.
	// Zero disables limiting.
	RateLimit   int
	CORSOrigins []string
	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready   func(ctx context.Context) error
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	http.Server
	svc      *services.Bookkeeping
	ready    func(ctx context.Context) error
	logger   *log.Logger
	metrics  *metrics.Metrics
	security securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.Bookkeeping, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		svc:     svc,
		ready:   opts.Ready,
		logger:  logger.WithComponent(log.ComponentHTTP),
		metrics: opts.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(s.withRequestLogging)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(withSecurityHeaders)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.Gatherer != nil {
		r.Method("GET", "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Method("GET", "/metrics", promhttp.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/document", s.handleGetDocument)
		api.Put("/document", s.handlePutDocument)

		api.Get("/services", s.handleListServices)
		api.Put("/services", s.handleUpsertService)
		api.Delete("/services/{id}", s.handleDeleteService)
		api.Get("/employees", s.handleListEmployees)
		api.Put("/employees", s.handleUpsertEmployee)
		api.Delete("/employees/{id}", s.handleDeleteEmployee)

		api.Put("/entries", s.handleSaveEntry)
		api.Delete("/entries/{date}/{employeeID}", s.handleDeleteEntry)

		api.Get("/days/{date}", s.handleDailyRecap)
		api.Post("/days/{date}/recompute", s.handleRecompute)
		api.Get("/days/{date}/export.csv", s.handleDayCSV)

		api.Post("/transactions", s.handleAddTransaction)
		api.Delete("/transactions/{id}", s.handleDeleteTransaction)
		api.Post("/product-sales", s.handleAddProductSale)
		api.Delete("/product-sales/{id}", s.handleDeleteProductSale)

		api.Get("/overrides", s.handleListOverrides)
		api.Put("/overrides/{date}", s.handleSetOverride)
		api.Delete("/overrides/{date}", s.handleClearOverride)

		api.Get("/months/{month}", s.handleMonthlyReport)
		api.Get("/months/{month}/export.xlsx", s.handleMonthXLSX)
		api.Get("/months/{month}/export.csv", s.handleMonthCSV)

		api.Post("/exports", s.handleRequestExport)
		api.Get("/exports", s.handleExportHistory)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLogging logs request completion and records HTTP metrics
// under the matched route pattern.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		ctx := r.Context()

		if detectSuspiciousRequest(r, &s.security) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, clientIP,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		route := "unmatched"
		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(r.Method, route, status, duration)
		log.NewStructuredLogger(log.FromContext(ctx)).LogHTTPEnd(ctx, r, status, duration.Milliseconds(), clientIP)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
