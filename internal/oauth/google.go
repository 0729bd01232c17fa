package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	stateTTL           = 5 * time.Minute
	statePrefix        = "oauth:state:"
)

var (
	// ErrNotConfigured indica que o fluxo por código não possui client id/secret.
	ErrNotConfigured = errors.New("oauth: google não configurado")
	// ErrInvalidState indica state ausente, expirado ou já consumido.
	ErrInvalidState = errors.New("oauth: state inválido")
	// ErrNoEmail indica perfil Google sem email.
	ErrNoEmail = errors.New("oauth: perfil sem email")
)

// Profile é o subconjunto do userinfo usado pelo gateway.
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Config reúne as credenciais do cliente OAuth do Google.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
	// Endpoint substitui google.Endpoint, útil em testes.
	Endpoint oauth2.Endpoint
}

// Google resolve perfis e conduz o fluxo authorization code.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	states      redisCommander
}

func NewGoogle(cfg Config, states redisCommander) *Google {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfo := strings.TrimSpace(cfg.UserInfoURL)
	if userInfo == "" {
		userInfo = defaultUserInfoURL
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfo,
		states:      states,
	}
}

// CodeFlowEnabled informa se AuthCodeURL/Exchange podem ser usados.
func (g *Google) CodeFlowEnabled() bool {
	return g.oauth.ClientID != "" && g.oauth.ClientSecret != "" && g.oauth.RedirectURL != "" && g.states != nil
}

// Profile consulta o userinfo com o access token emitido pelo Google.
func (g *Google) Profile(ctx context.Context, accessToken string) (Profile, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Profile{}, errors.New("oauth: access token vazio")
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("oauth: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("oauth: userinfo status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("oauth: userinfo inválido: %w", err)
	}
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Email == "" {
		return Profile{}, ErrNoEmail
	}
	return profile, nil
}

// AuthCodeURL gera a URL de consentimento com state de uso único, preso ao
// navegador identificado por clientID.
func (g *Google) AuthCodeURL(ctx context.Context, clientID string) (string, error) {
	if !g.CodeFlowEnabled() {
		return "", ErrNotConfigured
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", ErrInvalidState
	}
	state := uuid.NewString()
	if err := g.states.Set(ctx, stateKey(clientID, state), "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("oauth: salvar state: %w", err)
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange consome o state e troca o código por um token do Google. O state
// só vale para o mesmo clientID que iniciou o fluxo.
func (g *Google) Exchange(ctx context.Context, clientID, state, code string) (*oauth2.Token, error) {
	if !g.CodeFlowEnabled() {
		return nil, ErrNotConfigured
	}
	clientID = strings.TrimSpace(clientID)
	state = strings.TrimSpace(state)
	if clientID == "" || state == "" {
		return nil, ErrInvalidState
	}
	removed, err := g.states.Del(ctx, stateKey(clientID, state)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("oauth: consumir state: %w", err)
	}
	if removed == 0 {
		return nil, ErrInvalidState
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth: código ausente")
	}
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: troca de código: %w", err)
	}
	return token, nil
}

func stateKey(clientID, state string) string {
	return statePrefix + clientID + ":" + state
}
