// Package server provides the HTTP API for Ruiji.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/collection"
	"github.com/tsukihi/ruiji/internal/config"
	"github.com/tsukihi/ruiji/internal/ingest"
)

// Server is the HTTP server for the Ruiji API.
type Server struct {
	handler  *collection.Handler
	ingestor *ingest.Ingestor
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. ingestor may be
// nil; the source endpoints then report not implemented.
func NewServer(
	handler *collection.Handler,
	ingestor *ingest.Ingestor,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		handler:  handler,
		ingestor: ingestor,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/records", s.handleInsert)
	r.Put("/api/v1/collection", s.handleEnsure)
	r.Delete("/api/v1/collection", s.handleDrop)
	r.Delete("/api/v1/sources", s.handleRemoveSource)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
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
