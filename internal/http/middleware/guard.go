package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/vozcidada/gateway/internal/guard"
	"github.com/vozcidada/gateway/internal/session"
)

// Decider escolhe o que fazer com uma tela a partir da sessão.
type Decider func(snap session.Snapshot, r *http.Request) guard.Decision

// PublicPage protege /signin e /signup.
func PublicPage(snap session.Snapshot, _ *http.Request) guard.Decision {
	return guard.Public(snap)
}

// CompletionPage protege /signup/oauth e /signup/owner.
func CompletionPage(snap session.Snapshot, r *http.Request) guard.Decision {
	return guard.Completion(snap, r.URL.Path)
}

// PrivatePage protege telas autenticadas; role vazio aceita qualquer papel comum.
func PrivatePage(role string) Decider {
	return func(snap session.Snapshot, _ *http.Request) guard.Decision {
		return guard.Private(snap, role)
	}
}

// Guard aplica a decisão: Wait responde 204 sem corpo e Redirect responde 302.
func Guard(decide Decider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil {
				writeError(w, http.StatusInternalServerError, "INTERNAL", "sessão indisponível")
				return
			}
			decision := decide(sess.Snapshot(), r)
			switch decision.Kind {
			case guard.Wait:
				w.WriteHeader(http.StatusNoContent)
			case guard.Redirect:
				writeRedirect(w, decision.Location)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeRedirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  map[string]string{"redirect": location},
		"error": nil,
	})
}
