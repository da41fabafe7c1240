// Package api is the HTTP surface of the cleaner: synchronous batch
// cleaning, asynchronous jobs, artifact download and remote status.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docscrub/internal/archive"
	"github.com/dgallion1/docscrub/internal/config"
	"github.com/dgallion1/docscrub/internal/httpx"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/pipeline"
	"github.com/dgallion1/docscrub/internal/remote"
)

// RemoteStatus reports on the remote chunking service.
type RemoteStatus interface {
	Probe(ctx context.Context) bool
	SupportedFormats(ctx context.Context) ([]string, error)
	Stats() remote.StatsSnapshot
}

// Server is the HTTP API server for docscrub.
type Server struct {
	router  chi.Router
	orch    *pipeline.Orchestrator
	queue   *pipeline.Queue
	store   archive.Store
	remote  RemoteStatus
	metrics *metrics.Metrics
	log     *slog.Logger
	cfg     config.Config
}

// Deps are the collaborators a Server routes to. Remote may be nil when no
// chunking service is configured.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Queue        *pipeline.Queue
	Store        archive.Store
	Remote       RemoteStatus
	Metrics      *metrics.Metrics
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orch:    deps.Orchestrator,
		queue:   deps.Queue,
		store:   deps.Store,
		remote:  deps.Remote,
		metrics: deps.Metrics,
		log:     log.With("component", "api"),
		cfg:     cfg,
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
	r.Use(httpx.RequestLogger(s.log, s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(httpx.AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/clean", s.handleClean)
		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/artifacts/{name}", s.handleArtifact)
		r.Get("/api/remote/status", s.handleRemoteStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.queue.QueueDepth(),
	})
}
