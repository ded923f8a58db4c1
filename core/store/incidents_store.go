package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

type Incident struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	CreatedAt   time.Time  `json:"created_at"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Version     int        `json:"version"`
}

func (i *Incident) Assignee() string {
	if i == nil || i.AssignedTo == nil {
		return ""
	}
	return *i.AssignedTo
}

type IncidentFilter struct {
	Resolved       bool
	AssignedTo     string
	UnassignedOnly bool
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListOpen(ctx context.Context) ([]Incident, error)
	ListResolved(ctx context.Context) ([]Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	SaveIncident(ctx context.Context, incident *Incident) error
	UpdateIncident(ctx context.Context, incident *Incident, expectedVersion int) error
	ResolveIncident(ctx context.Context, incident *Incident, expectedVersion int) error
	DeleteIncident(ctx context.Context, id int64) error
	DeleteIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error)
}

type incidentsStore struct {
	db       *sql.DB
	postgres bool
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db, postgres: isPostgresDB(db)}
}

const incidentColumns = `id, title, description, location, lat, lng, created_at, assigned_to, resolved, resolved_at, version`

func (s *incidentsStore) q(query string) string {
	return rebind(s.postgres, query)
}

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident) (int64, error) {
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now().UTC()
	}
	incident.Version = 1
	row := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO incidents(title, description, location, lat, lng, created_at, assigned_to, resolved, resolved_at, version)
		VALUES(?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		incident.Title, incident.Description, incident.Location, incident.Lat, incident.Lng, incident.CreatedAt.UTC(),
		nullableString(incident.AssignedTo), incident.Resolved, nullableTime(incident.ResolvedAt), incident.Version)
	if err := row.Scan(&incident.ID); err != nil {
		return 0, err
	}
	return incident.ID, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id)
	return scanIncident(row)
}

func (s *incidentsStore) ListOpen(ctx context.Context) ([]Incident, error) {
	return s.ListIncidents(ctx, IncidentFilter{Resolved: false})
}

func (s *incidentsStore) ListResolved(ctx context.Context) ([]Incident, error) {
	return s.ListIncidents(ctx, IncidentFilter{Resolved: true})
}

// ListIncidents reads with one statement, so the result is a single snapshot.
func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	clauses := []string{"resolved=?"}
	args := []any{filter.Resolved}
	if filter.UnassignedOnly {
		clauses = append(clauses, "assigned_to IS NULL")
	} else if strings.TrimSpace(filter.AssignedTo) != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, strings.TrimSpace(filter.AssignedTo))
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *inc)
	}
	return res, rows.Err()
}

// SaveIncident is a last-write-wins upsert keyed by id. A resolved record
// cannot be reopened through it; such a write returns ErrConflict.
func (s *incidentsStore) SaveIncident(ctx context.Context, incident *Incident) error {
	if incident.ID <= 0 {
		_, err := s.CreateIncident(ctx, incident)
		return err
	}
	row := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO incidents(id, title, description, location, lat, lng, created_at, assigned_to, resolved, resolved_at, version)
		VALUES(?,?,?,?,?,?,?,?,?,?,1)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description, location=excluded.location,
			lat=excluded.lat, lng=excluded.lng, assigned_to=excluded.assigned_to, resolved=excluded.resolved,
			resolved_at=excluded.resolved_at, version=incidents.version+1
		WHERE incidents.resolved=? OR excluded.resolved=?
		RETURNING version`),
		incident.ID, incident.Title, incident.Description, incident.Location, incident.Lat, incident.Lng, incident.CreatedAt.UTC(),
		nullableString(incident.AssignedTo), incident.Resolved, nullableTime(incident.ResolvedAt), false, true)
	if err := row.Scan(&incident.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateIncident writes the mutable lifecycle fields only if the stored
// version still matches expectedVersion and the record is not resolved.
func (s *incidentsStore) UpdateIncident(ctx context.Context, incident *Incident, expectedVersion int) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE incidents SET assigned_to=?, version=version+1
		WHERE id=? AND version=? AND resolved=?`),
		nullableString(incident.AssignedTo), incident.ID, expectedVersion, false)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	incident.Version = expectedVersion + 1
	return nil
}

// ResolveIncident flips the record to resolved and appends the archive row in
// one transaction.
func (s *incidentsStore) ResolveIncident(ctx context.Context, incident *Incident, expectedVersion int) error {
	if incident.ResolvedAt == nil {
		now := time.Now().UTC()
		incident.ResolvedAt = &now
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE incidents SET resolved=?, resolved_at=?, version=version+1
		WHERE id=? AND version=? AND resolved=?`),
		true, incident.ResolvedAt.UTC(), incident.ID, expectedVersion, false)
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO incident_archive(incident_id, title, description, location, lat, lng, created_at, resolved_at, resolved_by)
		VALUES(?,?,?,?,?,?,?,?,?)`),
		incident.ID, incident.Title, incident.Description, incident.Location, incident.Lat, incident.Lng,
		incident.CreatedAt.UTC(), incident.ResolvedAt.UTC(), incident.Assignee()); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	incident.Resolved = true
	incident.Version = expectedVersion + 1
	return nil
}

// DeleteIncident removes a record unconditionally. Retention goes through
// DeleteIfExpired, which re-checks eligibility in the same transaction.
func (s *incidentsStore) DeleteIncident(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM incidents WHERE id=?`), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIfExpired re-reads the record inside a transaction and deletes it only
// when it is still resolved at or before cutoff and unchanged since the read.
func (s *incidentsStore) DeleteIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	inc, err := scanIncident(tx.QueryRowContext(ctx, s.q(`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id))
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if inc == nil || !inc.Resolved || inc.ResolvedAt == nil || inc.ResolvedAt.After(cutoff) {
		tx.Rollback()
		return false, nil
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM incidents WHERE id=? AND version=? AND resolved=?`), id, inc.Version, true)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*Incident, error) {
	var inc Incident
	var assigned sql.NullString
	var resolvedAt sql.NullTime
	if err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.Location, &inc.Lat, &inc.Lng, &inc.CreatedAt, &assigned, &inc.Resolved, &resolvedAt, &inc.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inc.CreatedAt = inc.CreatedAt.UTC()
	if assigned.Valid {
		v := assigned.String
		inc.AssignedTo = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		inc.ResolvedAt = &t
	}
	return &inc, nil
}
