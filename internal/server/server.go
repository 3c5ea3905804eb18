// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/ingest"
	"github.com/kotaehq/kotae/internal/rag"
	"github.com/kotaehq/kotae/internal/storage"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	engine   *rag.Engine
	ingestor *ingest.Ingestor
	meta     *storage.MetaStore
	cache    *index.Cache
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *rag.Engine,
	ingestor *ingest.Ingestor,
	meta *storage.MetaStore,
	cache *index.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		meta:     meta,
		cache:    cache,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	limiter := newIPRateLimiter(
		s.config.Server.RateLimitRequests,
		time.Duration(s.config.Server.RateLimitWindowSeconds)*time.Second,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/chat", s.handleChat)
		r.Post("/ingest", s.handleIngest)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
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
