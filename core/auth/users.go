package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"watchpost/core/rbac"
	"watchpost/core/store"
)

var ErrUserExists = errors.New("user already exists")

// CreateUser registers an admin or resolver account. Public is implicit and
// never stored.
func CreateUser(ctx context.Context, users store.UsersStore, username, password, role, pepper string) (*store.User, error) {
	username = strings.TrimSpace(username)
	role = strings.ToLower(strings.TrimSpace(role))
	if username == "" {
		return nil, errors.New("username required")
	}
	if role != rbac.RoleAdmin && role != rbac.RoleResolver {
		return nil, fmt.Errorf("unsupported role %q", role)
	}
	hash, err := HashPassword(password, pepper)
	if err != nil {
		return nil, err
	}
	u := &store.User{Username: username, PasswordHash: hash, Role: role}
	if _, err := users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}
