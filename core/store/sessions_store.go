package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SessionRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

type SessionStore interface {
	SaveSession(ctx context.Context, sess *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db       *sql.DB
	postgres bool
}

func NewSessionsStore(db *sql.DB) SessionStore {
	return &sessionsStore{db: db, postgres: isPostgresDB(db)}
}

func (s *sessionsStore) SaveSession(ctx context.Context, sess *SessionRecord) error {
	_, err := s.db.ExecContext(ctx, rebind(s.postgres, `
		INSERT INTO sessions(id, username, role, created_at, expires_at, revoked) VALUES(?,?,?,?,?,?)`),
		sess.ID, sess.Username, sess.Role, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(), sess.Revoked)
	return err
}

func (s *sessionsStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.postgres, `
		SELECT id, username, role, created_at, expires_at, revoked FROM sessions WHERE id=?`), id)
	var sr SessionRecord
	if err := row.Scan(&sr.ID, &sr.Username, &sr.Role, &sr.CreatedAt, &sr.ExpiresAt, &sr.Revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sr.CreatedAt = sr.CreatedAt.UTC()
	sr.ExpiresAt = sr.ExpiresAt.UTC()
	return &sr, nil
}

func (s *sessionsStore) RevokeSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, rebind(s.postgres, `UPDATE sessions SET revoked=? WHERE id=?`), true, id)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, rebind(s.postgres, `DELETE FROM sessions WHERE expires_at < ? OR revoked=?`), now.UTC(), true)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
