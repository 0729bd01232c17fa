package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL  = "https://viacep.com.br/ws"
	defaultCacheTTL = 24 * time.Hour
	cachePrefix     = "cep:"
)

var (
	// ErrInvalid indica CEP que não possui 8 dígitos.
	ErrInvalid = errors.New("cep: formato inválido")
	// ErrNotFound indica CEP inexistente na base dos Correios.
	ErrNotFound = errors.New("cep: não encontrado")
	// ErrTimeout indica que o ViaCEP não respondeu dentro do prazo.
	ErrTimeout = errors.New("cep: tempo limite excedido")
	// ErrUnavailable indica falha de rede ou resposta inesperada do ViaCEP.
	ErrUnavailable = errors.New("cep: serviço indisponível")
)

// Address é o endereço resolvido para um CEP.
type Address struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
}

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Client consulta o ViaCEP com cache em Redis.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      redisCommander
	ttl        time.Duration
}

// Config descreve endpoint e cache do cliente.
type Config struct {
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// New cria o cliente. cache pode ser nil.
func New(cfg Config, cache redisCommander) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		cache:      cache,
		ttl:        ttl,
	}
}

// Normalize remove a máscara e valida os 8 dígitos.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", ErrInvalid
		}
	}
	if b.Len() != 8 {
		return "", ErrInvalid
	}
	return b.String(), nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Lookup resolve o endereço de um CEP.
func (c *Client) Lookup(ctx context.Context, raw string) (Address, error) {
	digits, err := Normalize(raw)
	if err != nil {
		return Address{}, err
	}

	if addr, ok := c.cached(ctx, digits); ok {
		return addr, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, digits), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Address{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return Address{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Address{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Address
		Erro any `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Address{}, fmt.Errorf("%w: resposta inválida: %w", ErrUnavailable, err)
	}
	if isErro(payload.Erro) {
		return Address{}, ErrNotFound
	}

	addr := payload.Address
	addr.CEP = digits
	c.store(ctx, digits, addr)
	return addr, nil
}

// ViaCEP responde {"erro": true} e, em versões antigas, {"erro": "true"}.
func isErro(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

func (c *Client) cached(ctx context.Context, digits string) (Address, bool) {
	if c.cache == nil {
		return Address{}, false
	}
	raw, err := c.cache.Get(ctx, cachePrefix+digits).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("cep", digits).Msg("falha ao ler cache de cep")
		}
		return Address{}, false
	}
	var addr Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return Address{}, false
	}
	return addr, true
}

func (c *Client) store(ctx context.Context, digits string, addr Address) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(addr)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cachePrefix+digits, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("cep", digits).Msg("falha ao gravar cache de cep")
	}
}
