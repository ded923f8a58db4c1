package routegroups

import (
	"net/http"

	"watchpost/api/handlers"

	"github.com/go-chi/chi/v5"
)

func RegisterAuth(apiRouter chi.Router, g Guards, rateLimit func(http.HandlerFunc) http.HandlerFunc, auth *handlers.AuthHandler, inc *handlers.IncidentsHandler) {
	apiRouter.Route("/auth", func(authRouter chi.Router) {
		authRouter.MethodFunc("POST", "/login", rateLimit(auth.Login))
		authRouter.MethodFunc("POST", "/logout", g.Session(auth.Logout))
		authRouter.MethodFunc("GET", "/me", g.Session(auth.Me))
	})
	apiRouter.MethodFunc("GET", "/users", g.SessionPerm("users.view", inc.ListUsers))
}

func RegisterIncidents(apiRouter chi.Router, g Guards, inc *handlers.IncidentsHandler) {
	apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
		incidentsRouter.MethodFunc("POST", "/", g.Optional(inc.Submit))
		incidentsRouter.MethodFunc("GET", "/", g.Optional(inc.List))
		incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}", g.Optional(inc.Get))
		incidentsRouter.MethodFunc("PATCH", "/{id:[0-9]+}/assign", g.SessionPerm("incidents.assign", inc.Assign))
		incidentsRouter.MethodFunc("PATCH", "/{id:[0-9]+}/resolve", g.Session(inc.Resolve))
	})
	apiRouter.MethodFunc("GET", "/my-assigned-incidents", g.SessionPerm("incidents.assigned.view", inc.ListAssigned))
	apiRouter.MethodFunc("GET", "/resolved-incidents", g.Optional(inc.ListResolved))
	apiRouter.MethodFunc("GET", "/incident-archive", g.SessionPerm("archive.export", inc.ExportArchive))
}
