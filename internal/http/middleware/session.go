package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/session"
)

type contextKey string

const (
	ContextKeySession  contextKey = "session"
	ContextKeyClientID contextKey = "client_id"

	// ClientCookieName identifica o navegador para as preferências duráveis.
	ClientCookieName = "vozcidada.client"
	clientCookieTTL  = 365 * 24 * time.Hour
)

// Session abre a sessão da requisição a partir dos cookies e a injeta no contexto.
func Session(provider *session.Provider, flags *prefs.Store, opts auth.CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ensureClientID(w, r, opts)
			jar := auth.NewCookieJar(w, r, opts)
			sess := provider.Open(r.Context(), jar, flags.Bind(clientID))

			snap := sess.Snapshot()
			annotate(r.Context(), snap.Subject, snap.State.String())

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			ctx = context.WithValue(ctx, ContextKeyClientID, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ensureClientID(w http.ResponseWriter, r *http.Request, opts auth.CookieOptions) string {
	if c, err := r.Cookie(ClientCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  time.Now().Add(clientCookieTTL),
		MaxAge:   int(clientCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
	return id
}

// GetSession recupera a sessão do contexto.
func GetSession(ctx context.Context) *session.Session {
	val, _ := ctx.Value(ContextKeySession).(*session.Session)
	return val
}

// GetClientID recupera o identificador do navegador.
func GetClientID(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyClientID).(string)
	return val
}

// GetSubject recupera o subject autenticado, vazio para anônimos.
func GetSubject(ctx context.Context) string {
	sess := GetSession(ctx)
	if sess == nil {
		return ""
	}
	snap := sess.Snapshot()
	if !snap.IsAuthenticated() {
		return ""
	}
	return snap.Subject
}

// RequireComplete exige cadastro concluído nas rotas de API.
func RequireComplete(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "AUTH", "sessão ausente")
			return
		}
		snap := sess.Snapshot()
		switch {
		case !snap.IsAuthenticated():
			writeError(w, http.StatusUnauthorized, "AUTH", "autenticação necessária")
			return
		case snap.State != session.Complete:
			writeError(w, http.StatusUnauthorized, "AUTH", "cadastro incompleto")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole garante o papel informado; ROLE_OWNER cobre ROLE_ADMIN.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil || !sess.Snapshot().Roles.Satisfies(role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
