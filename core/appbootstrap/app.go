package appbootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"watchpost/api"
	"watchpost/config"
	"watchpost/core/auth"
	"watchpost/core/incidents"
	"watchpost/core/store"
	"watchpost/core/utils"
)

// OpenDatabase connects and brings the schema up to date.
func OpenDatabase(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Serve runs the HTTP API and the retention sweeper until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) error {
	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	rt, err := composeRuntime(cfg, db, nil, logger)
	if err != nil {
		return err
	}
	srv := api.NewServer(cfg, rt.serverDeps, logger, rt.workers...)
	return srv.Run(ctx)
}

// SweepOnce runs a single retention pass outside the server.
func SweepOnce(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (incidents.SweepResult, error) {
	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return incidents.SweepResult{}, err
	}
	defer db.Close()
	rt, err := composeRuntime(cfg, db, nil, logger)
	if err != nil {
		return incidents.SweepResult{}, err
	}
	return rt.sweeper.RunOnce(ctx)
}

// CreateUser seeds an admin or resolver account.
func CreateUser(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger, username, password, role string) (*store.User, error) {
	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return auth.CreateUser(ctx, store.NewUsersStore(db), username, password, role, cfg.Pepper)
}
