package api

import (
	"log/slog"
	"net/http"

	"docforge/internal/agent"
	"docforge/internal/config"
	"docforge/internal/gaps"
	"docforge/internal/llm"
	"docforge/internal/pages"
	"docforge/internal/pipeline"
	"docforge/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docforge.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	agent        *agent.Agent
	cache        *gaps.Cache
	store        store.Store
	primary      llm.Client
	pages        *pages.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. pagesClient may be
// nil when no content-source credentials are configured.
func NewServer(orch *pipeline.Orchestrator, ag *agent.Agent, cache *gaps.Cache, st store.Store, primary llm.Client, pagesClient *pages.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		agent:        ag,
		cache:        cache,
		store:        st,
		primary:      primary,
		pages:        pagesClient,
		log:          log,
		cfg:          cfg,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocforgeAPIKey, s.log))

		r.Get("/api/departments", s.handleListDepartments)
		r.Get("/api/document-types", s.handleListDocumentTypes)
		r.Get("/api/questions", s.handleListQuestions)

		r.Post("/api/gap-questions", s.handleGapQuestions)
		r.Post("/api/save-questions", s.handleSaveQuestions)

		r.Post("/api/generate", s.handleGenerate)
		r.Get("/api/generate/{jobID}", s.handleGenerateStatus)
		r.Post("/api/generate-section", s.handleGenerateSection)

		r.Get("/api/pages", s.handleListPages)
		r.Post("/api/publish", s.handlePublish)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
