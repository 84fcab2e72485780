// Package httpserver binds the registry, discovery, replication, and
// management wire protocol to the core packages over a chi router.
package httpserver

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server dependencies. Domain handlers are mounted on
// Router after calling NewServer.
type Server struct {
	Router  *chi.Mux
	Logger  *slog.Logger
	Metrics *prometheus.Registry

	startedAt time.Time
	ready     atomic.Bool
}

// NewServer creates an HTTP server with middleware and health/metrics
// endpoints. The server starts not-ready; call SetReady once the node has
// completed its startup peer sync (or immediately when clustering is off).
func NewServer(corsAllowedOrigins []string, logger *slog.Logger, metricsReg *prometheus.Registry) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	// Global middleware
	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)

	// Prometheus metrics
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	return s
}

// SetReady marks the node ready to serve discovery traffic.
func (s *Server) SetReady() {
	s.ready.Store(true)
}

// Ready reports whether the startup peer sync has completed.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness. A node is not ready until its initial
// sync-full-data against at least one peer has completed; registrations are
// accepted during that window but discovery is refused.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.Ready() {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "initial peer sync not complete")
		return
	}
	Respond(w, http.StatusOK, map[string]string{
		"status": "ready",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}
