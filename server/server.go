// Package server exposes the threading engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/oonrumail/threading/config"
	"github.com/oonrumail/threading/envelope"
	"github.com/oonrumail/threading/thread"
)

// EnvelopeSource loads message envelopes for threading. Implemented by
// repository.Repository.
type EnvelopeSource interface {
	GetFolderEnvelopes(ctx context.Context, folderID string, limit int) ([]*envelope.Envelope, error)
	GetFolderModSeq(ctx context.Context, folderID string) (uint64, error)
}

// ForestCache stores rendered forests. Implemented by cache.Cache.
type ForestCache interface {
	Get(ctx context.Context, folderID, algorithm string, compact bool, modseq uint64) ([]byte, error)
	Set(ctx context.Context, folderID, algorithm string, compact bool, modseq uint64, payload []byte)
}

// Server serves thread requests
type Server struct {
	config   *config.Config
	source   EnvelopeSource
	cache    ForestCache // nil when caching is disabled
	threader *thread.Threader[uint32]
	logger   *zap.Logger
	httpSrv  *http.Server
}

// NewServer creates a threading server
func NewServer(cfg *config.Config, source EnvelopeSource, forestCache ForestCache, logger *zap.Logger) *Server {
	return &Server{
		config:   cfg,
		source:   source,
		cache:    forestCache,
		threader: thread.New[uint32](logger, nil),
		logger:   logger,
	}
}

// Router returns the HTTP router
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
	}))
	r.Use(httprate.LimitByIP(s.config.Server.RateLimit, time.Minute))

	r.Get("/health", s.healthCheck)
	r.Get("/ready", s.readyCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/folders/{folderID}/threads", s.handleGetThreads)
	})

	return r
}

// Start begins serving requests and blocks until the listener fails or
// Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Info("Starting threading server", zap.String("address", addr))

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
