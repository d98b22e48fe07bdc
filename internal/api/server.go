package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/source"
	"github.com/dgallion1/docnav/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RebuildFunc regenerates the served structure document before a refetch.
type RebuildFunc func(ctx context.Context) error

// Server is the HTTP API server for docnav.
type Server struct {
	router  chi.Router
	store   *store.Store
	doc     *source.Document
	rebuild RebuildFunc
	gather  prometheus.Gatherer
	log     *slog.Logger
	cfg     config.Config
}

// Option configures a Server.
type Option func(*Server)

// WithRebuild runs fn before every POST /api/structure/refetch.
func WithRebuild(fn RebuildFunc) Option {
	return func(s *Server) { s.rebuild = fn }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gather = g }
}

// NewServer creates and configures the HTTP server. doc may be nil when
// this instance only consumes a remote structure document.
func NewServer(st *store.Store, doc *source.Document, log *slog.Logger, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store: st,
		doc:   doc,
		log:   log,
		cfg:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get(store.DefaultStructurePath, s.handleRawStructure)
	if s.gather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/structure", s.handleStructure)
		r.Get("/structure/files", s.handleFiles)
		r.Get("/structure/node", s.handleNode)
		r.Get("/structure/select", s.handleSelect)
		r.Get("/structure/events", s.handleEvents)
		r.Get("/breadcrumb", s.handleBreadcrumb)
		r.Get("/pager", s.handlePager)

		r.Group(func(r chi.Router) {
			if s.cfg.APIKey != "" {
				r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
			}
			r.Post("/structure/refetch", s.handleRefetch)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
