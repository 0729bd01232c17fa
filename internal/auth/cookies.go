package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookieName   = "vozcidada.accessToken"
	RefreshCookieName  = "vozcidada.refreshToken"
	AuthTypeCookieName = "vozcidada.authType"

	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 24 * time.Hour
	AuthTypeTTL     = time.Hour

	// AuthTypeOAuth marca sessões abertas via Google (esconde troca de senha).
	AuthTypeOAuth = "OAuth"
)

// ErrEmptyToken é retornado quando um dos tokens do par está vazio.
var ErrEmptyToken = errors.New("par de tokens incompleto")

// Pair é o par de credenciais emitido pelo backend. Os dois são sempre trocados juntos.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CookieOptions define atributos comuns aos cookies de sessão.
type CookieOptions struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// CookieJar guarda o par de tokens em cookies durante uma requisição.
type CookieJar struct {
	w      http.ResponseWriter
	opts   CookieOptions
	values map[string]string
}

// NewCookieJar carrega os cookies de sessão presentes na requisição.
func NewCookieJar(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieJar {
	jar := &CookieJar{w: w, opts: opts, values: make(map[string]string, 3)}
	for _, name := range []string{AccessCookieName, RefreshCookieName, AuthTypeCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			jar.values[name] = c.Value
		}
	}
	return jar
}

// Tokens devolve o par atual; ok é falso sem token de acesso.
func (j *CookieJar) Tokens() (Pair, bool) {
	pair := Pair{AccessToken: j.values[AccessCookieName], RefreshToken: j.values[RefreshCookieName]}
	return pair, pair.AccessToken != ""
}

// Persist substitui os dois cookies do par de uma vez.
// Nada é escrito quando qualquer um dos dois é inválido.
func (j *CookieJar) Persist(pair Pair) error {
	if strings.TrimSpace(pair.AccessToken) == "" || strings.TrimSpace(pair.RefreshToken) == "" {
		return ErrEmptyToken
	}

	access := j.cookie(AccessCookieName, pair.AccessToken, AccessTokenTTL)
	refresh := j.cookie(RefreshCookieName, pair.RefreshToken, RefreshTokenTTL)
	if err := access.Valid(); err != nil {
		return fmt.Errorf("cookie de acesso: %w", err)
	}
	if err := refresh.Valid(); err != nil {
		return fmt.Errorf("cookie de refresh: %w", err)
	}

	j.destroy(AccessCookieName, RefreshCookieName)

	http.SetCookie(j.w, access)
	http.SetCookie(j.w, refresh)
	j.values[AccessCookieName] = pair.AccessToken
	j.values[RefreshCookieName] = pair.RefreshToken
	return nil
}

// SetAuthType registra o método de autenticação da sessão.
func (j *CookieJar) SetAuthType(kind string) {
	j.destroy(AuthTypeCookieName)
	http.SetCookie(j.w, j.cookie(AuthTypeCookieName, kind, AuthTypeTTL))
	j.values[AuthTypeCookieName] = kind
}

// AuthType devolve o método registrado ou vazio.
func (j *CookieJar) AuthType() string {
	return j.values[AuthTypeCookieName]
}

// Clear expira todos os cookies de sessão.
func (j *CookieJar) Clear() {
	names := []string{AccessCookieName, RefreshCookieName, AuthTypeCookieName}
	j.destroy(names...)
	for _, name := range names {
		c := j.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(j.w, c)
	}
}

func (j *CookieJar) cookie(name, value string, ttl time.Duration) *http.Cookie {
	sameSite := j.opts.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.opts.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   j.opts.Secure,
		SameSite: sameSite,
	}
}

// destroy descarta valores anteriores, inclusive Set-Cookie ainda não enviados.
func (j *CookieJar) destroy(names ...string) {
	header := j.w.Header()
	pending := header.Values("Set-Cookie")
	kept := pending[:0:0]
	for _, line := range pending {
		drop := false
		for _, name := range names {
			if strings.HasPrefix(line, name+"=") {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		header.Del("Set-Cookie")
	} else {
		header["Set-Cookie"] = kept
	}
	for _, name := range names {
		delete(j.values, name)
	}
}
