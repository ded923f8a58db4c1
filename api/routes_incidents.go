package api

import (
	"net/http"

	"watchpost/api/routegroups"
	"watchpost/core/rbac"

	"github.com/go-chi/chi/v5"
)

func (s *Server) guards() routegroups.Guards {
	return routegroups.Guards{
		WithSession:         s.withSession,
		WithOptionalSession: s.withOptionalSession,
		RequirePermission:   func(p string) func(http.HandlerFunc) http.HandlerFunc { return s.requirePermission(rbac.Permission(p)) },
	}
}

func (s *Server) registerAuthRoutes(apiRouter chi.Router, h routeHandlers) {
	routegroups.RegisterAuth(apiRouter, s.guards(), s.rateLimitMiddleware, h.auth, h.incidents)
}

func (s *Server) registerIncidentsRoutes(apiRouter chi.Router, h routeHandlers) {
	routegroups.RegisterIncidents(apiRouter, s.guards(), h.incidents)
}
