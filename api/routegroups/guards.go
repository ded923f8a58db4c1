package routegroups

import "net/http"

type Guards struct {
	WithSession         func(http.HandlerFunc) http.HandlerFunc
	WithOptionalSession func(http.HandlerFunc) http.HandlerFunc
	RequirePermission   func(string) func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) Session(h http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(h)
}

func (g Guards) SessionPerm(perm string, h http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(g.RequirePermission(perm)(h))
}

// Optional resolves a caller identity when a token is sent and falls back to
// the public caller otherwise.
func (g Guards) Optional(h http.HandlerFunc) http.HandlerFunc {
	return g.WithOptionalSession(h)
}
