package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port               int
	BackendURL         string
	BackendTimeout     time.Duration
	RedisURL           string
	ViaCEPURL          string
	CEPCacheTTL        time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleUserInfoURL  string
	AllowOrigins       []string
	CookieDomain       string
	FlagsTTL           time.Duration
	UploadsEnabled     bool
	RateLimitPublic    RateLimitConfig
	RateLimitAuth      RateLimitConfig
	AlertWebhookURL    string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(getEnv("BACKEND_URL", "")), "/")
	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL obrigatório")
	}
	if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("BACKEND_URL inválido")
	}

	if cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.ViaCEPURL = strings.TrimSpace(getEnv("VIACEP_URL", "https://viacep.com.br/ws"))
	if cfg.CEPCacheTTL, err = parseDurationEnv("CEP_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.GoogleClientID = strings.TrimSpace(getEnv("GOOGLE_CLIENT_ID", ""))
	cfg.GoogleClientSecret = strings.TrimSpace(getEnv("GOOGLE_CLIENT_SECRET", ""))
	cfg.GoogleRedirectURL = strings.TrimSpace(getEnv("GOOGLE_REDIRECT_URL", ""))
	cfg.GoogleUserInfoURL = strings.TrimSpace(getEnv("GOOGLE_USERINFO_URL", ""))
	if cfg.GoogleClientSecret != "" && (cfg.GoogleClientID == "" || cfg.GoogleRedirectURL == "") {
		return nil, errors.New("GOOGLE_CLIENT_ID e GOOGLE_REDIRECT_URL obrigatórios com GOOGLE_CLIENT_SECRET")
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.CookieDomain = strings.TrimSpace(getEnv("COOKIE_DOMAIN", ""))
	if cfg.FlagsTTL, err = parseDurationEnv("FLAGS_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.UploadsEnabled, err = strconv.ParseBool(getEnv("UPLOADS_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("UPLOADS_ENABLED inválido")
	}

	if cfg.RateLimitPublic, err = parseRateLimitEnv("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimitEnv("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	cfg.AlertWebhookURL = strings.TrimSpace(getEnv("ALERT_WEBHOOK_URL", ""))
	if cfg.AlertWebhookURL != "" {
		if u, err := url.Parse(cfg.AlertWebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.New("ALERT_WEBHOOK_URL inválido")
		}
	}

	return cfg, nil
}

// DevCookies indica origem local; cookies saem sem Secure e com SameSite=Lax.
func (c *Config) DevCookies() bool {
	for _, origin := range c.AllowOrigins {
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

// parseRateLimitEnv aceita "rps:burst", por exemplo "10:20".
func parseRateLimitEnv(key string, def RateLimitConfig) (RateLimitConfig, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	rpsStr, burstStr, ok := strings.Cut(val, ":")
	if !ok {
		return RateLimitConfig{}, errors.New(key + " deve seguir o formato rps:burst")
	}
	rps, err := strconv.ParseFloat(strings.TrimSpace(rpsStr), 64)
	if err != nil || rps <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	burst, err := strconv.Atoi(strings.TrimSpace(burstStr))
	if err != nil || burst <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	return RateLimitConfig{RequestsPerSecond: rps, Burst: burst}, nil
}
