package incidents

import (
	"context"
	"sync"
	"time"

	"watchpost/config"
	"watchpost/core/store"
	"watchpost/core/utils"

	"github.com/robfig/cron/v3"
)

// Eligible reports whether an incident resolved at resolvedAt may be deleted.
func Eligible(resolvedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(resolvedAt) >= ttl
}

// RemainingTTL is max(0, ttl - (now - resolvedAt)). It is never stored.
func RemainingTTL(resolvedAt, now time.Time, ttl time.Duration) time.Duration {
	left := ttl - now.Sub(resolvedAt)
	if left < 0 {
		return 0
	}
	return left
}

// SessionPurger drops expired login sessions alongside each retention pass.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type SweepResult struct {
	Deleted         int   `json:"deleted"`
	SessionsPurged  int64 `json:"sessions_purged"`
	CandidatesFound int   `json:"candidates_found"`
}

// Sweeper permanently deletes resolved incidents once their TTL has passed.
type Sweeper struct {
	cfg      config.RetentionConfig
	store    store.IncidentsStore
	sessions SessionPurger
	clock    utils.Clock
	logger   *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	runMu   sync.Mutex
}

func NewSweeper(cfg config.RetentionConfig, is store.IncidentsStore, sessions SessionPurger, clock utils.Clock, logger *utils.Logger) *Sweeper {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Sweeper{cfg: cfg, store: is, sessions: sessions, clock: clock, logger: logger}
}

func (s *Sweeper) TTL() time.Duration {
	if s.cfg.TTL <= 0 {
		return config.DefaultRetentionTTL
	}
	return s.cfg.TTL
}

func (s *Sweeper) StartWithContext(ctx context.Context) error {
	if s == nil || s.store == nil || !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "@every 20s"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil && s.logger != nil {
			s.logger.Errorf("retention sweep: %v", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	return nil
}

func (s *Sweeper) StopWithContext(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()
	if !wasRunning || c == nil {
		return nil
	}
	done := c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single pass at the clock's current time. Passes are
// serialized; each delete re-checks eligibility against the stored record.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s == nil || s.store == nil {
		return res, nil
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	now := s.clock.Now()
	ttl := s.TTL()
	resolved, err := s.store.ListResolved(ctx)
	if err != nil {
		return res, err
	}
	cutoff := now.Add(-ttl)
	for i := range resolved {
		inc := resolved[i]
		if inc.ResolvedAt == nil || !Eligible(*inc.ResolvedAt, now, ttl) {
			continue
		}
		res.CandidatesFound++
		deleted, err := s.store.DeleteIfExpired(ctx, inc.ID, cutoff)
		if err != nil {
			return res, err
		}
		if deleted {
			res.Deleted++
		}
	}
	if s.sessions != nil {
		n, err := s.sessions.PurgeExpired(ctx)
		if err != nil {
			return res, err
		}
		res.SessionsPurged = n
	}
	if res.Deleted > 0 && s.logger != nil {
		s.logger.Printf("retention sweep deleted=%d", res.Deleted)
	}
	return res, nil
}
