package http

import (
	"net/http"
	"strconv"

	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/session"
	"github.com/vozcidada/gateway/internal/storage"
)

// pageView é o modelo de tela entregue depois que o guard libera a rota.
type pageView struct {
	Page    string      `json:"page"`
	Session sessionView `json:"session"`
	Data    any         `json:"data,omitempty"`
}

func writePage(w http.ResponseWriter, r *http.Request, name string, data any) {
	WriteJSON(w, http.StatusOK, pageView{Page: name, Session: viewOf(currentSession(r).Snapshot()), Data: data})
}

// Page serve telas sem dados próprios.
func (h *Handler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{}
		switch name {
		case "redefinir-senha", "conta":
			data["canChangePassword"] = !currentSession(r).Snapshot().OAuth
		case "signup-oauth", "signup-owner":
			data["profilePictureUrl"] = currentSession(r).Snapshot().ProfilePictureURL
		}
		writePage(w, r, name, data)
	}
}

// DashboardPage lista os chamados do cidadão ou da secretaria do agente.
func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.chamados.List(r.Context(), actorOf(currentSession(r)), pageQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, r, "dashboard", map[string]any{"chamados": page})
}

func (h *Handler) OpenChamadoPage(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, "abrir-chamado", map[string]any{
		"maxPhotoBytes": storage.MaxImageSize,
		"photoTypes":    storage.AcceptedTypes,
	})
}

// AdminDashboardPage reúne contagem por secretaria, a primeira página de chamados
// e as avaliações recentes.
func (h *Handler) AdminDashboardPage(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(currentSession(r))
	counts, err := h.chamados.CountBySecretaria(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page, err := h.chamados.List(r.Context(), actor, pageQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ratings, err := h.chamados.Ratings(r.Context(), actor, chamado.PageQuery{Size: recentRatings})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, r, "admin-dashboard", map[string]any{
		"contagem":    counts,
		"chamados":    page,
		"avaliacoes":  ratings,
		"secretarias": chamado.Secretarias,
	})
}

const recentRatings = 5

func actorOf(sess *session.Session) chamado.Actor {
	snap := sess.Snapshot()
	return chamado.Actor{
		Token:   sess.AccessToken(),
		Roles:   snap.Roles,
		Citizen: snap.Citizen,
		Staff:   snap.Staff,
	}
}

func pageQuery(r *http.Request) chamado.PageQuery {
	q := chamado.PageQuery{}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		q.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		q.Size = v
	}
	return q
}
