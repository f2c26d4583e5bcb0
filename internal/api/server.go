// Package api exposes the content pipeline over a JSON REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
	"github.com/hugo-lorenzo-mato/content-agency/internal/metrics"
	"github.com/hugo-lorenzo-mato/content-agency/internal/service/workflow"
)

// DefaultQualityThreshold is the score at or above which content is
// reported as meeting the quality bar.
const DefaultQualityThreshold = 60.0

// Server provides the HTTP endpoints for content projects.
type Server struct {
	router      chi.Router
	store       core.StateStore
	runner      *workflow.Runner
	checkpoints *workflow.CheckpointManager
	metrics     *metrics.Metrics
	host        *diagnostics.Collector
	validate    *validator.Validate
	logger      *logging.Logger

	version          string
	qualityThreshold float64
	corsOrigins      []string
	configCheck      func() error
	now              func() time.Time
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves /metrics and records request metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithDiagnostics adds a host snapshot to the health report.
func WithDiagnostics(c *diagnostics.Collector) ServerOption {
	return func(s *Server) { s.host = c }
}

// WithVersion sets the version reported by / and /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// WithQualityThreshold sets the score reported as the quality bar.
func WithQualityThreshold(t float64) ServerOption {
	return func(s *Server) { s.qualityThreshold = t }
}

// WithCORSOrigins restricts CORS to origins. Empty allows any origin.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithConfigCheck reports the result of check as config_valid on /health.
func WithConfigCheck(check func() error) ServerOption {
	return func(s *Server) { s.configCheck = check }
}

// NewServer creates a new API server.
func NewServer(store core.StateStore, runner *workflow.Runner, checkpoints *workflow.CheckpointManager, opts ...ServerOption) *Server {
	s := &Server{
		store:            store,
		runner:           runner,
		checkpoints:      checkpoints,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		logger:           logging.NewNop(),
		version:          "dev",
		qualityThreshold: DefaultQualityThreshold,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validate.RegisterTagNameFunc(jsonFieldName)

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.loggingMiddleware)

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	if s.metrics.Enabled() {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Get("/active", s.handleActiveProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteProject)
				r.Get("/status", s.handleProjectStatus)
				r.Get("/content", s.handleProjectContent)
				r.Get("/state", s.handleProjectState)
				r.Post("/feedback", s.handleFeedback)

				r.Route("/checkpoints", func(r chi.Router) {
					r.Get("/", s.handleListCheckpoints)
					r.Post("/", s.handleSaveCheckpoint)
					r.Post("/{checkpointID}/restore", s.handleRestoreCheckpoint)
				})
			})
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests and records them by route pattern.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			elapsed := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			s.metrics.ObserveHTTP(r.Method, route, ww.Status(), elapsed)
			s.logger.Debug("http request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"duration", elapsed,
				"bytes", ww.BytesWritten(),
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

// ListenAndServe serves until ctx is canceled, then drains connections
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
