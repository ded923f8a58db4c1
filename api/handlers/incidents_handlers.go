package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"watchpost/core/auth"
	"watchpost/core/geo"
	"watchpost/core/incidents"
	"watchpost/core/store"
	"watchpost/core/utils"
)

type IncidentsHandler struct {
	svc    *incidents.Service
	logger *utils.Logger
}

func NewIncidentsHandler(svc *incidents.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{svc: svc, logger: logger}
}

func (h *IncidentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req incidents.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "bad request")
		return
	}
	inc, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, incidents.PublicView(inc))
}

// List serves the admin list to admins and the public list to everyone else.
// Query params: q, lat, lng, nearby, unassigned.
func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := incidents.ListParams{
		Search:         strings.TrimSpace(q.Get("q")),
		NearbyOnly:     parseBool(q.Get("nearby")),
		UnassignedOnly: parseBool(q.Get("unassigned")),
	}
	if rawLat, rawLng := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng")); rawLat != "" || rawLng != "" {
		lat, errLat := strconv.ParseFloat(rawLat, 64)
		lng, errLng := strconv.ParseFloat(rawLng, 64)
		p := geo.Point{Lat: lat, Lng: lng}
		if errLat != nil || errLng != nil || !p.Valid() {
			writeServiceError(w, h.logger, &incidents.ValidationError{Fields: map[string]string{"lat": "lat", "lng": "lng"}})
			return
		}
		params.Viewer = &p
	}
	items, err := h.svc.List(r.Context(), auth.FromContext(r.Context()), params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIncidentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation", "bad id")
		return
	}
	view, err := h.svc.Get(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Assign expects {"username": "bob"}. An explicit null unassigns.
func (h *IncidentsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIncidentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation", "bad id")
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "bad request")
		return
	}
	raw, present := body["username"]
	if !present {
		writeServiceError(w, h.logger, &incidents.ValidationError{Fields: map[string]string{"username": "required"}})
		return
	}
	var username *string
	if err := json.Unmarshal(raw, &username); err != nil {
		writeServiceError(w, h.logger, &incidents.ValidationError{Fields: map[string]string{"username": "string_or_null"}})
		return
	}
	actor := auth.FromContext(r.Context())
	inc, err := h.svc.Assign(r.Context(), actor, id, username)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, incidents.StaffView(inc, nil))
}

func (h *IncidentsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIncidentID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation", "bad id")
		return
	}
	inc, err := h.svc.Resolve(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, incidents.StaffView(inc, nil))
}

func (h *IncidentsHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAssigned(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *IncidentsHandler) ListResolved(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListResolved(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *IncidentsHandler) ExportArchive(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ExportResolvedArchive(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	filename := "resolved_incidents_" + time.Now().UTC().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *IncidentsHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if role := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))); role != "" {
		filtered := make([]store.User, 0, len(users))
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
