// Package web exposes the cleaning pipeline over HTTP: upload three raw CSV
// files, get back the run report and optionally the cleaned records.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/shopclean/internal/config"
	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/metrics"
	"github.com/JonMunkholm/shopclean/internal/web/middleware"
)

// Server is the HTTP server for the cleaning API.
type Server struct {
	cfg      *config.Config
	metrics  *metrics.Registry
	router   *chi.Mux
	server   *http.Server
	runs     *core.RunLimiter
	limiters []*rateLimiter
}

// NewServer creates a Server. reg may be nil, in which case runs are not
// counted and /metrics is not mounted.
func NewServer(cfg *config.Config, reg *metrics.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		metrics: reg,
		router:  chi.NewRouter(),
		runs:    core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.QueueTimeout),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.APIKeys, s.respondError))

		r.Get("/tables", s.handleListTables)
		r.Get("/template/{tableKey}", s.handleDownloadTemplate)

		clean := http.HandlerFunc(s.handleClean)
		if s.cfg.Rate.Enabled && s.cfg.Rate.CleanLimit > 0 {
			r.With(s.newLimiter(s.cfg.Rate.CleanLimit).middleware).Post("/clean", clean)
		} else {
			r.Post("/clean", clean)
		}
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	c := s.cfg.Server
	s.server = &http.Server{
		Addr:         c.Addr(),
		Handler:      s.router,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}

	slog.Info("server listening", "addr", c.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// WaitForRuns blocks until in-flight cleaning runs finish or ctx ends.
func (s *Server) WaitForRuns(ctx context.Context) error {
	return s.runs.WaitForDrain(ctx)
}

// RunStatus reports run slot occupancy.
func (s *Server) RunStatus() core.RunLimiterStatus {
	return s.runs.Status()
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	l := newRateLimiter(perMinute, rateWindow, s.respondError)
	s.limiters = append(s.limiters, l)
	return l
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
