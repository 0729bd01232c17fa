package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vozcidada/gateway/internal/staff"
)

func adminOf(r *http.Request) staff.Admin {
	sess := currentSession(r)
	return staff.Admin{Token: sess.AccessToken(), Roles: sess.Snapshot().Roles}
}

func (h *Handler) ListFuncionarios(w http.ResponseWriter, r *http.Request) {
	q := pageQuery(r)
	page, err := h.staff.List(r.Context(), adminOf(r), q.Page, q.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// CreateFuncionario cadastra credencial e perfil de um novo membro da equipe.
func (h *Handler) CreateFuncionario(w http.ResponseWriter, r *http.Request) {
	var form staff.CreateForm
	if !decodeJSON(w, r, &form) {
		return
	}
	f, err := h.staff.Create(r.Context(), adminOf(r), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) DeleteFuncionario(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}
	if err := h.staff.Delete(r.Context(), adminOf(r), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
