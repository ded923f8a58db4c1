package store

import (
	"context"
	"database/sql"
	"time"
)

// ArchiveEntry is the snapshot of an incident taken at resolution time. Entries
// outlive the incident rows removed by retention.
type ArchiveEntry struct {
	ID          int64     `json:"id"`
	IncidentID  int64     `json:"incident_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedAt   time.Time `json:"created_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
	ResolvedBy  string    `json:"resolved_by"`
}

type ArchiveStore interface {
	ListArchive(ctx context.Context) ([]ArchiveEntry, error)
}

type archiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) ArchiveStore {
	return &archiveStore{db: db}
}

func (s *archiveStore) ListArchive(ctx context.Context) ([]ArchiveEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, title, description, location, lat, lng, created_at, resolved_at, resolved_by
		FROM incident_archive ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ArchiveEntry
	for rows.Next() {
		var e ArchiveEntry
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.Title, &e.Description, &e.Location, &e.Lat, &e.Lng, &e.CreatedAt, &e.ResolvedAt, &e.ResolvedBy); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		e.ResolvedAt = e.ResolvedAt.UTC()
		res = append(res, e)
	}
	return res, rows.Err()
}
