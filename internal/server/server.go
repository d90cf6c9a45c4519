// Package server provides the HTTP API for wadai.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/config"
	"github.com/hyperjump/wadai/internal/ingest"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
)

// Ingester stores a note and assigns it to a topic.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.IngestRequest) (*models.Input, error)
}

// TopicSearcher ranks topics for a free-text query.
type TopicSearcher interface {
	Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*keyword.Result, error)
}

// InboxLister reports the watched inbox directories.
type InboxLister interface {
	Directories() []string
}

// Server is the HTTP server for the wadai API.
type Server struct {
	ingester Ingester
	storage  storage.Storage
	search   TopicSearcher
	inbox    InboxLister
	gatherer prometheus.Gatherer
	config   *config.Config
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithTopicSearch enables the q parameter of the topic listing.
func WithTopicSearch(s TopicSearcher) Option {
	return func(srv *Server) { srv.search = s }
}

// WithInbox reports the watched inbox directories in status.
func WithInbox(in InboxLister) Option {
	return func(srv *Server) { srv.inbox = in }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(srv *Server) { srv.gatherer = g }
}

// NewServer creates a server with the given dependencies.
func NewServer(ingester Ingester, store storage.Storage, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingester: ingester,
		storage:  store,
		config:   cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Post("/ingest", s.handleIngest)
	r.Get("/topics", s.handleListTopics)
	r.Get("/topics/{id}", s.handleGetTopic)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Get("/topics", s.handleListTopics)
		r.Get("/topics/{id}", s.handleGetTopic)
		r.Get("/inputs", s.handleListInputs)
		r.Get("/inputs/{id}", s.handleGetInput)
		r.Get("/status", s.handleStatus)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("Starting server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
