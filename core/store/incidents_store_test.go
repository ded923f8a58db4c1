package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"watchpost/config"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: "sqlite", DBURL: "file:" + filepath.Join(t.TempDir(), "store.db")}
	db, err := NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func pothole() *Incident {
	return &Incident{Title: "Pothole", Description: "Large pothole", Location: "Main St", Lat: 12.97, Lng: 77.59}
}

func TestCreateAndGetIncident(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	inc := pothole()
	id, err := s.CreateIncident(ctx, inc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetIncident(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Title != "Pothole" || got.Lat != 12.97 || got.Resolved || got.AssignedTo != nil || got.ResolvedAt != nil {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	missing, err := s.GetIncident(ctx, id+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing id, got %v %v", missing, err)
	}
}

func TestUpdateIncidentRejectsStaleVersion(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	inc := pothole()
	if _, err := s.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create: %v", err)
	}
	bob := "bob"
	first := *inc
	first.AssignedTo = &bob
	if err := s.UpdateIncident(ctx, &first, 1); err != nil {
		t.Fatalf("first update: %v", err)
	}
	alice := "alice"
	second := *inc
	second.AssignedTo = &alice
	if err := s.UpdateIncident(ctx, &second, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, _ := s.GetIncident(ctx, inc.ID)
	if got.Assignee() != "bob" || got.Version != 2 {
		t.Fatalf("unexpected state after conflict: %+v", got)
	}
}

func TestResolveIncidentAppendsArchive(t *testing.T) {
	db := newTestDB(t)
	s := NewIncidentsStore(db)
	archive := NewArchiveStore(db)
	ctx := context.Background()
	inc := pothole()
	bob := "bob"
	inc.AssignedTo = &bob
	if _, err := s.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	inc.ResolvedAt = &at
	if err := s.ResolveIncident(ctx, inc, inc.Version); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := s.GetIncident(ctx, inc.ID)
	if !got.Resolved || got.ResolvedAt == nil || !got.ResolvedAt.Equal(at) {
		t.Fatalf("unexpected resolved state: %+v", got)
	}
	entries, err := archive.ListArchive(ctx)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(entries) != 1 || entries[0].ResolvedBy != "bob" || entries[0].IncidentID != inc.ID {
		t.Fatalf("unexpected archive: %+v", entries)
	}
	if err := s.ResolveIncident(ctx, got, got.Version); !errors.Is(err, ErrConflict) {
		t.Fatalf("second resolve should conflict, got %v", err)
	}
	entries, _ = archive.ListArchive(ctx)
	if len(entries) != 1 {
		t.Fatalf("failed resolve must not append archive rows, got %d", len(entries))
	}
}

func TestListIncidentsFilters(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	bob := "bob"
	a := pothole()
	b := pothole()
	b.AssignedTo = &bob
	c := pothole()
	for _, inc := range []*Incident{a, b, c} {
		if _, err := s.CreateIncident(ctx, inc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.ResolveIncident(ctx, c, c.Version); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	open, _ := s.ListOpen(ctx)
	if len(open) != 2 {
		t.Fatalf("expected 2 open, got %d", len(open))
	}
	resolved, _ := s.ListResolved(ctx)
	if len(resolved) != 1 || resolved[0].ID != c.ID {
		t.Fatalf("unexpected resolved list: %+v", resolved)
	}
	unassigned, _ := s.ListIncidents(ctx, IncidentFilter{UnassignedOnly: true})
	if len(unassigned) != 1 || unassigned[0].ID != a.ID {
		t.Fatalf("unexpected unassigned list: %+v", unassigned)
	}
	mine, _ := s.ListIncidents(ctx, IncidentFilter{AssignedTo: "bob"})
	if len(mine) != 1 || mine[0].ID != b.ID {
		t.Fatalf("unexpected assigned list: %+v", mine)
	}
}

func TestSaveIncidentUpserts(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	inc := pothole()
	if err := s.SaveIncident(ctx, inc); err != nil {
		t.Fatalf("save new: %v", err)
	}
	inc.Title = "Deep pothole"
	if err := s.SaveIncident(ctx, inc); err != nil {
		t.Fatalf("save existing: %v", err)
	}
	if err := s.SaveIncident(ctx, inc); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, _ := s.GetIncident(ctx, inc.ID)
	if got.Title != "Deep pothole" {
		t.Fatalf("title not saved: %q", got.Title)
	}
	if got.Version != inc.Version || got.Version != 3 {
		t.Fatalf("expected version 3, got stored=%d local=%d", got.Version, inc.Version)
	}
}

func TestSaveIncidentCannotReopenResolved(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	inc := pothole()
	if _, err := s.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.ResolveIncident(ctx, inc, inc.Version); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	reopen := *inc
	reopen.Resolved = false
	reopen.ResolvedAt = nil
	if err := s.SaveIncident(ctx, &reopen); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict when reopening, got %v", err)
	}
	got, _ := s.GetIncident(ctx, inc.ID)
	if !got.Resolved || got.ResolvedAt == nil || got.Version != inc.Version {
		t.Fatalf("resolved record changed: %+v", got)
	}
	inc.Title = "Pothole (filled)"
	if err := s.SaveIncident(ctx, inc); err != nil {
		t.Fatalf("saving a resolved record as resolved: %v", err)
	}
}

func TestDeleteIfExpired(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	open := pothole()
	done := pothole()
	for _, inc := range []*Incident{open, done} {
		if _, err := s.CreateIncident(ctx, inc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	resolvedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	done.ResolvedAt = &resolvedAt
	if err := s.ResolveIncident(ctx, done, done.Version); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok, err := s.DeleteIfExpired(ctx, open.ID, resolvedAt.Add(48*time.Hour)); err != nil || ok {
		t.Fatalf("open incident must not be deleted: %v %v", ok, err)
	}
	if ok, err := s.DeleteIfExpired(ctx, done.ID, resolvedAt.Add(-time.Minute)); err != nil || ok {
		t.Fatalf("incident before cutoff must not be deleted: %v %v", ok, err)
	}
	if ok, err := s.DeleteIfExpired(ctx, done.ID, resolvedAt); err != nil || !ok {
		t.Fatalf("expected delete at cutoff: %v %v", ok, err)
	}
	if got, _ := s.GetIncident(ctx, done.ID); got != nil {
		t.Fatalf("incident still present after delete")
	}
	if ok, err := s.DeleteIfExpired(ctx, done.ID, resolvedAt); err != nil || ok {
		t.Fatalf("second delete should be a no-op: %v %v", ok, err)
	}
}

func TestDeleteIncident(t *testing.T) {
	s := NewIncidentsStore(newTestDB(t))
	ctx := context.Background()
	inc := pothole()
	if _, err := s.CreateIncident(ctx, inc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteIncident(ctx, inc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteIncident(ctx, inc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	sessions := NewSessionsStore(db)
	ctx := context.Background()
	if _, err := users.Create(ctx, &User{Username: "bob", PasswordHash: "h", Role: "Resolver"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Create(ctx, &User{Username: "bob", PasswordHash: "h", Role: "resolver"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}
	u, err := users.FindByUsername(ctx, "bob")
	if err != nil || u == nil || u.Role != "resolver" {
		t.Fatalf("find user: %+v %v", u, err)
	}
	now := time.Now().UTC()
	if err := sessions.SaveSession(ctx, &SessionRecord{ID: "s1", Username: "bob", Role: "resolver", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	sr, err := sessions.GetSession(ctx, "s1")
	if err != nil || sr == nil || sr.Username != "bob" || sr.Revoked {
		t.Fatalf("get session: %+v %v", sr, err)
	}
	if err := sessions.RevokeSession(ctx, "s1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	sr, _ = sessions.GetSession(ctx, "s1")
	if !sr.Revoked {
		t.Fatalf("session not revoked")
	}
	n, err := sessions.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("delete expired: %d %v", n, err)
	}
}
