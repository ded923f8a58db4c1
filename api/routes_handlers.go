package api

import "watchpost/api/handlers"

type routeHandlers struct {
	auth      *handlers.AuthHandler
	incidents *handlers.IncidentsHandler
	health    *handlers.HealthHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.sessions, s.logger),
		incidents: handlers.NewIncidentsHandler(s.incidents, s.logger),
		health:    handlers.NewHealthHandler(s.db),
	}
}
