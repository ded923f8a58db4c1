package incidents

import (
	"time"

	"watchpost/core/store"
)

// View is the caller-facing shape of an incident. Which optional fields are
// populated depends on who is looking.
type View struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	CreatedAt        time.Time  `json:"created_at"`
	Status           string     `json:"status"`
	Resolved         bool       `json:"resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
	AssignedUsername string     `json:"assigned_username,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ExpiresInSeconds *int64     `json:"expires_in_seconds,omitempty"`
	DistanceKm       *float64   `json:"distance_km,omitempty"`
}

func baseView(inc *store.Incident) View {
	v := View{
		ID:          inc.ID,
		Title:       inc.Title,
		Description: inc.Description,
		Location:    inc.Location,
		Lat:         inc.Lat,
		Lng:         inc.Lng,
		CreatedAt:   inc.CreatedAt,
		Resolved:    inc.Resolved,
		Status:      "open",
	}
	if inc.Resolved {
		v.Status = string(StateResolved)
		if inc.ResolvedAt != nil {
			t := *inc.ResolvedAt
			v.ResolvedAt = &t
		}
	}
	return v
}

// PublicView hides who an incident is assigned to.
func PublicView(inc *store.Incident) View {
	return baseView(inc)
}

// StaffView exposes the assignee. known reports whether the username still
// maps to an account; unknown names keep assigned_to but not assigned_username.
func StaffView(inc *store.Incident, known func(string) bool) View {
	v := baseView(inc)
	v.Status = string(StateOf(inc))
	if inc.AssignedTo != nil {
		name := *inc.AssignedTo
		v.AssignedTo = &name
		if known == nil || known(name) {
			v.AssignedUsername = name
		}
	}
	return v
}

// ResolvedView reports who resolved the incident and how long it has left
// before retention removes it.
func ResolvedView(inc *store.Incident, now time.Time, ttl time.Duration) View {
	v := baseView(inc)
	v.ResolvedBy = inc.Assignee()
	if inc.ResolvedAt != nil {
		secs := int64(RemainingTTL(*inc.ResolvedAt, now, ttl) / time.Second)
		v.ExpiresInSeconds = &secs
	}
	return v
}
