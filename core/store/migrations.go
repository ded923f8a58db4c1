package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"watchpost/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP NOT NULL,
		revoked INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		assigned_to TEXT,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 1,
		CHECK ((resolved = 1 AND resolved_at IS NOT NULL) OR (resolved = 0 AND resolved_at IS NULL))
	);`,
	`CREATE TABLE IF NOT EXISTS incident_archive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP NOT NULL,
		resolved_by TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_resolved ON incidents(resolved, resolved_at);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_assigned ON incidents(assigned_to);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);`,
}

func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if !isPostgresDB(db) {
		return applySQLiteMigrations(ctx, db, logger)
	}
	return applyGooseMigrations(ctx, db, logger)
}

func applySQLiteMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if logger != nil {
		logger.Printf("applying sqlite migrations")
	}
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	if logger != nil {
		logger.Printf("sqlite migrations applied")
	}
	return nil
}

func applyGooseMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(postgresMigrations)
	defer goose.SetBaseFS(nil)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

type gooseLogger struct {
	l *utils.Logger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.l.Errorf(format, v...) }
func (g gooseLogger) Printf(format string, v ...interface{}) { g.l.Printf(format, v...) }
