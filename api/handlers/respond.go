package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"watchpost/core/incidents"
	"watchpost/core/utils"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Code: code, Message: message}})
}

// writeServiceError maps incident error kinds to HTTP statuses. Anything
// unrecognised is logged and reported as a plain 500.
func writeServiceError(w http.ResponseWriter, logger *utils.Logger, err error) {
	var verr *incidents.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": errorBody{Code: "validation", Message: "invalid input", Fields: verr.Fields}})
	case errors.Is(err, incidents.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", "invalid input")
	case errors.Is(err, incidents.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "unauthorized")
	case errors.Is(err, incidents.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, incidents.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, incidents.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "illegal_transition", "incident is already resolved")
	case errors.Is(err, incidents.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "incident changed concurrently, try again")
	case errors.Is(err, incidents.ErrGeocodeFailed):
		writeError(w, http.StatusBadGateway, "geocode_failed", "could not resolve location")
	default:
		logger.Errorf("handler error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "server error")
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
