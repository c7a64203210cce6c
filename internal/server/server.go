package server

import (
	"log/slog"
	"net/http"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/handlers"
	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
	pageHandler *handlers.PageHandler
}

func NewServer(analytics *services.Analytics, logger *slog.Logger) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
		pageHandler: handlers.NewPageHandler(analytics, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.pageHandler.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/facets", s.apiHandlers.HandleFacets)
	s.mux.HandleFunc("GET /api/pipelines", s.apiHandlers.HandlePipelines)
	s.mux.HandleFunc("GET /api/pipelines/{name}", s.apiHandlers.HandlePipeline)
	s.mux.HandleFunc("GET /api/customers", s.apiHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /api/records", s.apiHandlers.HandleRecords)

	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
	s.mux.HandleFunc("GET /sse/tabs/{tab}", s.sseHandlers.HandleTab)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
