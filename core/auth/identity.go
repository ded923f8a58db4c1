package auth

import (
	"context"
	"errors"

	"watchpost/core/rbac"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const IdentityContextKey contextKey = "watchpost.identity"

// Identity is the verified caller. The zero value is the anonymous public caller.
type Identity struct {
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	SessionID string `json:"-"`
}

func Public() Identity {
	return Identity{Role: rbac.RolePublic}
}

func (i Identity) Authenticated() bool {
	return i.Username != "" && i.Role != "" && i.Role != rbac.RolePublic
}

func (i Identity) Roles() []string {
	if i.Role == "" {
		return []string{rbac.RolePublic}
	}
	return []string{i.Role}
}

func (i Identity) IsAdmin() bool    { return i.Role == rbac.RoleAdmin }
func (i Identity) IsResolver() bool { return i.Role == rbac.RoleResolver }

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Public()
	}
	if v, ok := ctx.Value(IdentityContextKey).(Identity); ok {
		return v
	}
	return Public()
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
