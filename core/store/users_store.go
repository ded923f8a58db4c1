package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, username, hash string) error
}

type usersStore struct {
	db       *sql.DB
	postgres bool
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db, postgres: isPostgresDB(db)}
}

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Username = strings.TrimSpace(user.Username)
	user.Role = strings.ToLower(strings.TrimSpace(user.Role))
	row := s.db.QueryRowContext(ctx, rebind(s.postgres, `
		INSERT INTO users(username, password_hash, role, created_at) VALUES(?,?,?,?) RETURNING id`),
		user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return user.ID, nil
}

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.postgres, `
		SELECT id, username, password_hash, role, created_at FROM users WHERE username=?`), strings.TrimSpace(username))
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *usersStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, password_hash, role, created_at FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *usersStore) UpdatePassword(ctx context.Context, username, hash string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.postgres, `UPDATE users SET password_hash=? WHERE username=?`), hash, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
