// Package api exposes the toolkit's status over a small HTTP REST surface.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/netdiag/internal/monitor"
	"github.com/hugo-lorenzo-mato/netdiag/internal/recovery"
	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
)

// Server serves the read-only status API.
type Server struct {
	router chi.Router

	snapshotter *diagnostics.Snapshotter
	monitor     *monitor.Monitor
	engine      *recovery.Engine
	procs       core.ProcessLister

	outputDir  string
	configName string

	allowedOrigins []string
	logger         *slog.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins sets the CORS origin allowlist.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithReports enables the latest-report endpoint.
func WithReports(outputDir, configName string) ServerOption {
	return func(s *Server) {
		s.outputDir = outputDir
		s.configName = configName
	}
}

// NewServer creates the status API server. Any collaborator may be nil; its
// endpoints then answer 503.
func NewServer(snapshotter *diagnostics.Snapshotter, mon *monitor.Monitor, engine *recovery.Engine, procs core.ProcessLister, opts ...ServerOption) *Server {
	s := &Server{
		snapshotter:    snapshotter,
		monitor:        mon,
		engine:         engine,
		procs:          procs,
		allowedOrigins: []string{"*"},
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/processes", s.handleProcesses)
		r.Route("/monitor", func(r chi.Router) {
			r.Get("/status", s.handleMonitorStatus)
		})
		r.Route("/recovery", func(r chi.Router) {
			r.Get("/status", s.handleRecoveryStatus)
			r.Get("/attempts", s.handleRecoveryAttempts)
		})
		r.Get("/report/latest", s.handleLatestReport)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe starts the HTTP server with graceful shutdown tied to ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting status API server", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.snapshotter == nil {
		respondError(w, http.StatusServiceUnavailable, "snapshotter not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.snapshotter.Status())
}

func (s *Server) handleProcesses(w http.ResponseWriter, _ *http.Request) {
	if s.procs == nil {
		respondError(w, http.StatusServiceUnavailable, "supervisor not configured")
		return
	}
	procs := s.procs.ListActive()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(procs),
		"processes": procs,
	})
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, _ *http.Request) {
	if s.monitor == nil {
		respondError(w, http.StatusServiceUnavailable, "monitor not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleRecoveryStatus(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "recovery engine not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleRecoveryAttempts(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "recovery engine not configured")
		return
	}
	attempts := s.engine.Attempts()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(attempts),
		"attempts": attempts,
	})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, _ *http.Request) {
	if s.outputDir == "" {
		respondError(w, http.StatusServiceUnavailable, "reports not configured")
		return
	}
	rep, err := report.ReadLatest(s.outputDir, s.configName)
	if err != nil {
		respondError(w, http.StatusNotFound, "no report available")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
