// Package server provides the HTTP API for chartdex.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/config"
	"github.com/tuforums/chartdex/internal/indexer"
	"github.com/tuforums/chartdex/internal/search"
)

// ReloadFunc rebuilds the indices from the data dumps.
type ReloadFunc func(ctx context.Context) (indexer.Stats, error)

// Counts reports the current document totals, for the status endpoint.
type Counts interface {
	CountLevels(ctx context.Context) (uint64, error)
	CountPasses(ctx context.Context) (uint64, error)
}

// Server is the HTTP server for the chartdex API.
type Server struct {
	levels  *search.LevelEngine
	passes  *search.PassEngine
	counts  Counts
	reload  ReloadFunc
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics
	server  *http.Server
}

// NewServer creates a server with the given dependencies. reload may be nil;
// the reindex endpoint then responds 501.
func NewServer(
	levels *search.LevelEngine,
	passes *search.PassEngine,
	counts Counts,
	reload ReloadFunc,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		levels:  levels,
		passes:  passes,
		counts:  counts,
		reload:  reload,
		config:  cfg,
		logger:  logger,
		metrics: newMetrics(),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/v1/levels", s.handleSearchLevels)
	r.Get("/api/v1/passes", s.handleSearchPasses)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
