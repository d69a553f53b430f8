package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteMetadata describes a registered route
type RouteMetadata struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
	// Mutating routes write to disk or the project registry
	Mutating bool             `json:"mutating"`
	Handler  http.HandlerFunc `json:"-"`
}

// RouteRegistry manages route metadata and registration
type RouteRegistry struct {
	prefix string
	router *mux.Router
	routes []RouteMetadata
}

// NewRouteRegistry creates a registry that mounts routes on router below prefix
func NewRouteRegistry(router *mux.Router, prefix string) *RouteRegistry {
	return &RouteRegistry{
		prefix: prefix,
		router: router.PathPrefix(prefix).Subrouter(),
	}
}

// RegisterRoute records a route and mounts its handler
func (rr *RouteRegistry) RegisterRoute(path, method string, handler http.HandlerFunc, description string) {
	rr.routes = append(rr.routes, RouteMetadata{
		Path:        rr.prefix + path,
		Method:      method,
		Description: description,
		Mutating:    method != http.MethodGet,
		Handler:     handler,
	})
	rr.router.HandleFunc(path, handler).Methods(method)
}

// GetRouteMetadata retrieves metadata for a specific route
func (rr *RouteRegistry) GetRouteMetadata(path, method string) (RouteMetadata, bool) {
	for _, route := range rr.routes {
		if route.Path == path && route.Method == method {
			return route, true
		}
	}
	return RouteMetadata{}, false
}

// GetAllRoutes returns all registered routes in registration order
func (rr *RouteRegistry) GetAllRoutes() []RouteMetadata {
	return rr.routes
}

// SetupRoutes configures all routes with their metadata
func (s *Server) SetupRoutes(router *mux.Router) *RouteRegistry {
	registry := NewRouteRegistry(router, "/api/v1")

	registry.RegisterRoute("/health", http.MethodGet, s.healthHandler, "API health check")
	registry.RegisterRoute("/routes", http.MethodGet, s.routesHandler, "List API routes")

	registry.RegisterRoute("/editors", http.MethodGet, s.listEditorsHandler, "List installed editors")
	registry.RegisterRoute("/editors/{version}/templates", http.MethodGet, s.listTemplatesHandler, "List templates for an editor")
	registry.RegisterRoute("/editors/{version}/packages", http.MethodGet, s.defaultPackagesHandler, "List an editor's default packages")

	registry.RegisterRoute("/templates/inspect", http.MethodPost, s.inspectTemplateHandler, "Inspect a template archive")
	registry.RegisterRoute("/templates", http.MethodPost, s.createTemplateHandler, "Pack a new user template")

	registry.RegisterRoute("/projects", http.MethodGet, s.listProjectsHandler, "List registered projects")
	registry.RegisterRoute("/projects", http.MethodPost, s.createProjectHandler, "Generate and register a project")

	return registry
}
