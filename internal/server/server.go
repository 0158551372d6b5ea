// Package server provides the HTTP server and routing for fundlens.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"fundlens/internal/config"
	"fundlens/internal/database"
	"fundlens/internal/masterlist"
	"fundlens/internal/metrics"
	"fundlens/internal/overview"
)

// Config holds everything the server needs.
type Config struct {
	Log            zerolog.Logger
	Config         *config.Config
	CacheDB        *database.DB
	Builder        *masterlist.Builder
	MasterStore    *masterlist.Store
	MetricsBuilder *metrics.ArtifactBuilder
	ProgressHub    *metrics.ProgressHub
	Overview       *overview.Service
}

// Server is the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	cacheDB        *database.DB
	builder        *masterlist.Builder
	masterStore    *masterlist.Store
	metricsBuilder *metrics.ArtifactBuilder
	hub            *metrics.ProgressHub
	overview       *overview.Service
	systemHandlers *SystemHandlers
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		cacheDB:        cfg.CacheDB,
		builder:        cfg.Builder,
		masterStore:    cfg.MasterStore,
		metricsBuilder: cfg.MetricsBuilder,
		hub:            cfg.ProgressHub,
		overview:       cfg.Overview,
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.CacheDB)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// rebuild endpoints run full pipeline sweeps, hence the long write timeout
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/masterlist", s.handleGetMasterlist)
		r.Post("/masterlist/rebuild", s.handleRebuildMasterlist)

		r.Get("/parents", s.handleListParents)
		r.Get("/parents/search", s.handleSearchParents)
		r.Get("/parents/{key}/overview", s.handleParentOverview)

		r.Get("/metrics/parents", s.handleParentMetrics)
		r.Get("/metrics/schemes", s.handleSchemeMetrics)
		r.Post("/metrics/rebuild", s.handleRebuildMetrics)
		r.Get("/batch/progress", s.handleProgressStream)

		r.Get("/system/health", s.systemHandlers.HandleSystemHealth)
	})
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs each request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
