package http

import (
	"errors"
	"net/http"

	"github.com/vozcidada/gateway/internal/push"
)

// RegisterPushToken associa o token FCM do dispositivo ao titular da sessão.
func (h *Handler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	err := h.push.Register(r.Context(), currentSession(r).AccessToken(), payload.Token)
	if errors.Is(err, push.ErrEmptyToken) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
