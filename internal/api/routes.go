package api

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"nomnomhub/internal/app"
)

// maxRequestBytes bounds request bodies; requests carry names and paths only
const maxRequestBytes = 1 << 20

// Server holds dependencies for API handlers
type Server struct {
	App      *app.Context
	Logger   *log.Logger
	Registry *RouteRegistry
}

// NewServer creates a server for the given application state
func NewServer(appCtx *app.Context, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{App: appCtx, Logger: logger}
}

// Handler builds the router with every route and middleware registered
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	RegisterRoutes(r, s)
	return r
}

// RegisterRoutes sets up all API routes on r
func RegisterRoutes(r *mux.Router, s *Server) {
	s.Registry = s.SetupRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Outermost first
	r.Use(s.panicRecoveryMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(requestSizeLimitMiddleware(maxRequestBytes))
}
