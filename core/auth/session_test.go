package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"watchpost/config"
	"watchpost/core/store"
	"watchpost/core/utils"
)

func setupAuthEnv(t *testing.T) (*SessionManager, store.UsersStore, *utils.ManualClock, *config.AppConfig) {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBURL:      "file:" + filepath.Join(t.TempDir(), "auth.db"),
		Pepper:     "pepper",
		SessionTTL: time.Hour,
	}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	users := store.NewUsersStore(db)
	clock := utils.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	sm := NewSessionManager(store.NewSessionsStore(db), users, cfg, clock, nil)
	return sm, users, clock, cfg
}

func TestLoginAndVerify(t *testing.T) {
	sm, users, _, cfg := setupAuthEnv(t)
	ctx := context.Background()
	if _, err := CreateUser(ctx, users, "bob", "s3cret", "resolver", cfg.Pepper); err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := sm.Login(ctx, "bob", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := sm.Verify(ctx, sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Username != "bob" || id.Role != "resolver" || !id.Authenticated() {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	sm, users, _, cfg := setupAuthEnv(t)
	ctx := context.Background()
	if _, err := CreateUser(ctx, users, "root", "admin123", "admin", cfg.Pepper); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := sm.Login(ctx, "root", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := sm.Login(ctx, "nobody", "admin123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestVerifyRejectsExpiredAndRevoked(t *testing.T) {
	sm, users, clock, cfg := setupAuthEnv(t)
	ctx := context.Background()
	if _, err := CreateUser(ctx, users, "root", "admin123", "admin", cfg.Pepper); err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := sm.Login(ctx, "root", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := sm.Verify(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	clock.Advance(-2 * time.Hour)
	if err := sm.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := sm.Verify(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if _, err := sm.Verify(ctx, "not-a-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected garbage token to fail, got %v", err)
	}
}

type accountOverride struct {
	store.UsersStore
	role    string
	removed bool
}

func (a *accountOverride) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	if a.removed {
		return nil, nil
	}
	u, err := a.UsersStore.FindByUsername(ctx, username)
	if u != nil && a.role != "" {
		u.Role = a.role
	}
	return u, err
}

func TestVerifyFollowsCurrentAccountRole(t *testing.T) {
	sm, users, clock, cfg := setupAuthEnv(t)
	ctx := context.Background()
	if _, err := CreateUser(ctx, users, "bob", "s3cret", "admin", cfg.Pepper); err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := sm.Login(ctx, "bob", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	override := &accountOverride{UsersStore: users, role: "resolver"}
	demoted := NewSessionManager(sm.store, override, cfg, clock, nil)
	id, err := demoted.Verify(ctx, sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Role != "resolver" || id.IsAdmin() {
		t.Fatalf("expected demoted role, got %+v", id)
	}
	override.removed = true
	if _, err := demoted.Verify(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected removed account to fail, got %v", err)
	}
}

func TestCreateUserRejectsPublicRoleAndDuplicates(t *testing.T) {
	_, users, _, cfg := setupAuthEnv(t)
	ctx := context.Background()
	if _, err := CreateUser(ctx, users, "anon", "x", "public", cfg.Pepper); err == nil {
		t.Fatalf("public role must not be stored")
	}
	if _, err := CreateUser(ctx, users, "bob", "x", "resolver", cfg.Pepper); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateUser(ctx, users, "bob", "y", "resolver", cfg.Pepper); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestIdentityFromContextDefaultsToPublic(t *testing.T) {
	id := FromContext(context.Background())
	if id.Authenticated() || id.Role != "public" {
		t.Fatalf("expected public identity, got %+v", id)
	}
	ctx := WithIdentity(context.Background(), Identity{Username: "root", Role: "admin"})
	if !FromContext(ctx).IsAdmin() {
		t.Fatalf("identity not carried by context")
	}
}
