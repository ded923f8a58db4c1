package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"watchpost/config"
	"watchpost/core/auth"
	"watchpost/core/incidents"
	"watchpost/core/rbac"
	"watchpost/core/utils"

	"github.com/go-chi/chi/v5"
)

// BackgroundWorker is anything started with the server and stopped on shutdown.
type BackgroundWorker interface {
	StartWithContext(ctx context.Context) error
	StopWithContext(ctx context.Context) error
}

type ServerDeps struct {
	DB        *sql.DB
	Sessions  *auth.SessionManager
	Incidents *incidents.Service
	Policy    *rbac.Policy
}

type Server struct {
	cfg          *config.AppConfig
	logger       *utils.Logger
	router       chi.Router
	db           *sql.DB
	sessions     *auth.SessionManager
	incidents    *incidents.Service
	policy       *rbac.Policy
	loginLimiter *requestLimiter
	workers      []BackgroundWorker
}

const shutdownTimeout = 10 * time.Second

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger, workers ...BackgroundWorker) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		db:           deps.DB,
		sessions:     deps.Sessions,
		incidents:    deps.Incidents,
		policy:       deps.Policy,
		loginLimiter: newLimiter(5, time.Minute),
		workers:      workers,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.jsonMiddleware)

	h := s.newRouteHandlers()
	r.MethodFunc(http.MethodGet, "/healthz", h.health.Health)
	r.Route("/api", func(apiRouter chi.Router) {
		s.registerAuthRoutes(apiRouter, h)
		s.registerIncidentsRoutes(apiRouter, h)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// Run serves until ctx is cancelled, then drains requests and stops workers.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, w := range s.workers {
		if err := w.StartWithContext(ctx); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("http shutdown: %v", err)
	}
	for _, w := range s.workers {
		if err := w.StopWithContext(shutdownCtx); err != nil {
			s.logger.Errorf("worker stop: %v", err)
		}
	}
	return serveErr
}
