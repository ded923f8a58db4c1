package appbootstrap

import (
	"database/sql"

	"watchpost/api"
	"watchpost/config"
	"watchpost/core/auth"
	"watchpost/core/geocode"
	"watchpost/core/incidents"
	"watchpost/core/rbac"
	"watchpost/core/store"
	"watchpost/core/utils"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	sessions   *auth.SessionManager
	sweeper    *incidents.Sweeper
	users      store.UsersStore
	workers    []api.BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *sql.DB, clock utils.Clock, logger *utils.Logger) (*runtimeComposition, error) {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	users := store.NewUsersStore(db)
	sessionsStore := store.NewSessionsStore(db)
	incidentsStore := store.NewIncidentsStore(db)
	archiveStore := store.NewArchiveStore(db)

	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	if err != nil {
		return nil, err
	}
	sessions := auth.NewSessionManager(sessionsStore, users, cfg, clock, logger)
	sweeper := incidents.NewSweeper(cfg.Retention, incidentsStore, sessions, clock, logger.With("component", "retention"))
	engine := incidents.NewEngine(incidentsStore, users, policy, clock, logger.With("component", "lifecycle"))
	query := incidents.NewQuery(incidentsStore, users, sweeper, clock, incidents.QueryOptions{
		RetentionTTL: cfg.EffectiveRetentionTTL(),
		RadiusKm:     cfg.EffectiveRadiusKm(),
		LazySweep:    cfg.Retention.LazyOnRead,
	})
	svc := incidents.NewService(incidents.Deps{
		Incidents: incidentsStore,
		Archive:   archiveStore,
		Users:     users,
		Geocoder:  geocode.New(cfg.Geocoder),
		Policy:    policy,
		Clock:     clock,
		Logger:    logger,
		Engine:    engine,
		Query:     query,
	})

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			DB:        db,
			Sessions:  sessions,
			Incidents: svc,
			Policy:    policy,
		},
		sessions: sessions,
		sweeper:  sweeper,
		users:    users,
		workers:  []api.BackgroundWorker{sweeper},
	}, nil
}
