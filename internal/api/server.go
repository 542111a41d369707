package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/pagedeco/internal/config"
	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for pagedeco.
type Server struct {
	router  chi.Router
	manager *pipeline.Manager
	metrics *metrics.Recorder
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(m *pipeline.Manager, rec *metrics.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		manager: m,
		metrics: rec,
		log:     log,
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
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/pages/*", s.handlePage)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.PagedecoAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.PagedecoAPIKey, s.log))
		}

		r.Post("/api/decorate", s.handleDecorate)

		r.Get("/api/sessions/{sessionID}", s.handleRenderSession)
		r.Get("/api/sessions/{sessionID}/state", s.handleSessionState)
		r.Post("/api/sessions/{sessionID}/navigate", s.handleNavigate)
		r.Delete("/api/sessions/{sessionID}", s.handleCloseSession)

		r.Get("/api/stats/phases", s.handlePhaseStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
