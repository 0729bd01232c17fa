package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/backend"
	httpmiddleware "github.com/vozcidada/gateway/internal/http/middleware"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/session"
)

const maxJSONBody = 1 << 20

// sessionView é a sessão exposta ao frontend.
type sessionView struct {
	State             string               `json:"state"`
	Loading           bool                 `json:"loading"`
	IsAuthenticated   bool                 `json:"isAuthenticated"`
	Subject           string               `json:"subject,omitempty"`
	Roles             []string             `json:"roles"`
	AuthStatus        string               `json:"authStatus,omitempty"`
	Usuario           *backend.Usuario     `json:"usuario,omitempty"`
	Funcionario       *backend.Funcionario `json:"funcionario,omitempty"`
	IsGoogleUser      bool                 `json:"isGoogleUser"`
	ProfilePictureURL string               `json:"profilePictureUrl,omitempty"`
	OAuth             bool                 `json:"oauth"`
}

func viewOf(snap session.Snapshot) sessionView {
	return sessionView{
		State:             snap.State.String(),
		Loading:           snap.Loading(),
		IsAuthenticated:   snap.IsAuthenticated(),
		Subject:           snap.Subject,
		Roles:             snap.Roles.Slice(),
		AuthStatus:        string(snap.AuthStatus),
		Usuario:           snap.Citizen,
		Funcionario:       snap.Staff,
		IsGoogleUser:      snap.IsGoogleUser,
		ProfilePictureURL: snap.ProfilePictureURL,
		OAuth:             snap.OAuth,
	}
}

type outcomeView struct {
	session.Outcome
	Session sessionView `json:"session"`
}

func currentSession(r *http.Request) *session.Session {
	return httpmiddleware.GetSession(r.Context())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return false
	}
	return true
}

func writeOutcome(w http.ResponseWriter, sess *session.Session, outcome session.Outcome) {
	WriteJSON(w, http.StatusOK, outcomeView{Outcome: outcome, Session: viewOf(sess.Snapshot())})
}

// GetSession devolve o estado atual da sessão.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, viewOf(currentSession(r).Snapshot()))
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var form session.SignInForm
	if !decodeJSON(w, r, &form) {
		return
	}
	sess := currentSession(r)
	outcome, err := sess.SignIn(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, sess, outcome)
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var form session.SignUpForm
	if !decodeJSON(w, r, &form) {
		return
	}
	sess := currentSession(r)
	outcome, err := sess.SignUp(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, sess, outcome)
}

// OAuthSignIn recebe o access token obtido pelo frontend no Google.
func (h *Handler) OAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "accessToken obrigatório", nil)
		return
	}
	sess := currentSession(r)
	outcome, err := sess.OAuthSignIn(r.Context(), payload.AccessToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, sess, outcome)
}

// OAuthStart inicia o fluxo por código quando o client secret está configurado.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	consent, err := h.google.AuthCodeURL(r.Context(), httpmiddleware.GetClientID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, consent, http.StatusFound)
}

// OAuthCallback conclui o fluxo por código e leva o navegador ao destino da sessão.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		log.Warn().Str("reason", reason).Msg("consentimento google recusado")
		http.Redirect(w, r, signInWithError("oauth_denied"), http.StatusFound)
		return
	}

	token, err := h.google.Exchange(r.Context(), httpmiddleware.GetClientID(r.Context()), q.Get("state"), q.Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("falha na troca do código google")
		if errors.Is(err, oauth.ErrNotConfigured) {
			writeServiceError(w, err)
			return
		}
		http.Redirect(w, r, signInWithError("oauth_state"), http.StatusFound)
		return
	}

	outcome, err := currentSession(r).OAuthSignIn(r.Context(), token.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("login google falhou")
		http.Redirect(w, r, signInWithError("oauth_login"), http.StatusFound)
		return
	}
	http.Redirect(w, r, outcome.Redirect, http.StatusFound)
}

func signInWithError(code string) string {
	return session.PathSignIn + "?" + url.Values{"error": {code}}.Encode()
}

func (h *Handler) OAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var form session.ProfileForm
	if !decodeJSON(w, r, &form) {
		return
	}
	sess := currentSession(r)
	outcome, err := sess.OAuthSignUp(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, sess, outcome)
}

func (h *Handler) OwnerSignUp(w http.ResponseWriter, r *http.Request) {
	var form session.OwnerForm
	if !decodeJSON(w, r, &form) {
		return
	}
	sess := currentSession(r)
	outcome, err := sess.OwnerSignUp(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOutcome(w, sess, outcome)
}

// SignOut nunca falha; repetir a chamada é inofensivo.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	writeOutcome(w, sess, sess.SignOut(r.Context()))
}

func (h *Handler) UpdateCep(w http.ResponseWriter, r *http.Request) {
	var form session.UpdateCepForm
	if !decodeJSON(w, r, &form) {
		return
	}
	u, err := currentSession(r).UpdateCep(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	var form session.UpdateInfoForm
	if !decodeJSON(w, r, &form) {
		return
	}
	u, err := currentSession(r).UpdateInfo(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var form session.ChangePasswordForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if err := currentSession(r).ChangePassword(r.Context(), form); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}
