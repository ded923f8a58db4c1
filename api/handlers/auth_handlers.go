package handlers

import (
	"errors"
	"net/http"
	"strings"

	"watchpost/core/auth"
	"watchpost/core/utils"
)

type AuthHandler struct {
	sessions *auth.SessionManager
	logger   *utils.Logger
}

func NewAuthHandler(sm *auth.SessionManager, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{sessions: sm, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := decodeJSON(w, r, &cred); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "bad request")
		return
	}
	cred.Username = strings.TrimSpace(cred.Username)
	sess, err := h.sessions.Login(r.Context(), cred.Username, cred.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.logger.Errorf("auth login failed for %s: %v", cred.Username, err)
		writeError(w, http.StatusInternalServerError, "internal", "server error")
		return
	}
	h.logger.Printf("AUTH login user=%s role=%s", sess.Identity.Username, sess.Identity.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    sess.Token,
		"username": sess.Identity.Username,
		"role":     sess.Identity.Role,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), id.SessionID); err != nil {
		h.logger.Errorf("auth logout %s: %v", id.Username, err)
		writeError(w, http.StatusInternalServerError, "internal", "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
}
