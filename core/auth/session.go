package auth

import (
	"context"
	"fmt"
	"strings"

	"watchpost/config"
	"watchpost/core/rbac"
	"watchpost/core/store"
	"watchpost/core/utils"

	"github.com/gofrs/uuid/v5"
)

type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// SessionManager issues and verifies opaque bearer tokens backed by the sessions table.
type SessionManager struct {
	store  store.SessionStore
	users  store.UsersStore
	cfg    *config.AppConfig
	clock  utils.Clock
	logger *utils.Logger
}

func NewSessionManager(sessions store.SessionStore, users store.UsersStore, cfg *config.AppConfig, clock utils.Clock, logger *utils.Logger) *SessionManager {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &SessionManager{store: sessions, users: users, cfg: cfg, clock: clock, logger: logger}
}

func (m *SessionManager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password, m.pepper()) {
		if m.logger != nil {
			m.logger.Printf("AUTH login failed user=%s", username)
		}
		return nil, ErrInvalidCredentials
	}
	return m.Create(ctx, user)
}

func (m *SessionManager) Create(ctx context.Context, user *store.User) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	rec := &store.SessionRecord{
		ID:        id.String(),
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Session{Token: rec.ID, Identity: Identity{Username: rec.Username, Role: rec.Role, SessionID: rec.ID}}, nil
}

// Verify resolves a bearer token to the caller identity.
func (m *SessionManager) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	if _, err := uuid.FromString(token); err != nil {
		return Identity{}, ErrUnauthenticated
	}
	rec, err := m.store.GetSession(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if rec == nil || rec.Revoked || !m.clock.Now().Before(rec.ExpiresAt) {
		return Identity{}, ErrUnauthenticated
	}
	// The role comes from the account, not the session row, so a role change
	// or a removed account takes effect on the next request.
	user, err := m.users.FindByUsername(ctx, rec.Username)
	if err != nil {
		return Identity{}, err
	}
	if user == nil {
		return Identity{}, ErrUnauthenticated
	}
	role := strings.ToLower(strings.TrimSpace(user.Role))
	if role != rbac.RoleAdmin && role != rbac.RoleResolver {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{Username: user.Username, Role: role, SessionID: rec.ID}, nil
}

func (m *SessionManager) Logout(ctx context.Context, token string) error {
	return m.store.RevokeSession(ctx, token)
}

func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.clock.Now())
}

func (m *SessionManager) pepper() string {
	if m.cfg == nil {
		return ""
	}
	return m.cfg.Pepper
}
