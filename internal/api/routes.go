// Package api provides HTTP handlers and routing for the planner service.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP handlers and dependencies.
type Server struct {
	router   *mux.Router
	handlers *Handlers
	limiter  *RateLimiter
}

// NewServer creates a new API server with the given handlers. A nil
// limiter disables rate limiting.
func NewServer(h *Handlers, limiter *RateLimiter) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: h,
		limiter:  limiter,
	}
	s.setupRoutes()
	return s
}

// Router returns the configured router wrapped in tracing for use with
// http.Server.
func (s *Server) Router() http.Handler {
	return TracingMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("/health", s.handlers.Health).Methods("GET")
	s.router.HandleFunc("/healthz", s.handlers.Health).Methods("GET")
	s.router.HandleFunc("/ready", s.handlers.Ready).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Catalog and editor helpers
	api.HandleFunc("/tasks", s.handlers.ListTasks).Methods("GET")
	api.HandleFunc("/handles/normalize", s.handlers.NormalizeHandles).Methods("POST")
	api.HandleFunc("/graph/can-connect", s.handlers.CanConnect).Methods("POST")
	api.HandleFunc("/plans/compile", s.handlers.CompilePlan).Methods("POST")
	api.HandleFunc("/editor/ws", s.handlers.EditorWS).Methods("GET")

	// Version management
	api.HandleFunc("/workflows/{wid}/versions", s.handlers.CreateVersion).Methods("POST")
	api.HandleFunc("/workflows/{wid}/versions", s.handlers.ListVersions).Methods("GET")
	api.HandleFunc("/workflows/{wid}/versions/{vid}", s.handlers.GetVersion).Methods("GET")
	api.HandleFunc("/workflows/{wid}/versions/{vid}/activate", s.handlers.ActivateVersion).Methods("POST")
	api.HandleFunc("/workflows/{wid}/versions/{vid}/publish", s.handlers.PublishVersion).Methods("POST")

	// Version history
	api.HandleFunc("/workflows/{wid}/timeline", s.handlers.Timeline).Methods("GET")
	api.HandleFunc("/workflows/{wid}/diff", s.handlers.Diff).Methods("GET")

	// CORS preflight; the middleware writes the response.
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	// Apply middleware
	s.router.Use(s.handlers.CORSMiddleware)
	s.router.Use(s.handlers.LoggingMiddleware)
	s.router.Use(s.handlers.RecoveryMiddleware)
	if s.limiter != nil {
		s.router.Use(s.limiter.Handler)
	}
}
