package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultTimeout  = 5 * time.Second
	maxErrorPayload = 64 << 10
)

// Client encapsula chamadas REST ao backend Voz Cidadã.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
}

// Config descreve o endereço e limites do cliente.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// OnStateChange recebe transições do circuit breaker.
	OnStateChange func(name string, from, to gobreaker.State)
}

// New cria um cliente com timeout e circuit breaker.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: url base obrigatória")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("backend: url base inválida: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err)
		},
		OnStateChange: cfg.OnStateChange,
	})

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		breaker:    breaker,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// call monta a requisição JSON e decodifica a resposta em out.
func (c *Client) call(ctx context.Context, method, path, token string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	return c.do(req, func(resp *http.Response) error {
		return decodeBody(resp.Body, out)
	})
}

// do executa a requisição dentro do circuit breaker. handle só é chamado para status < 400.
func (c *Client) do(req *http.Request, handle func(*http.Response) error) error {
	_, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, classifyTransport(req, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, readAPIError(req, resp)
		}
		if handle == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		return nil, handle(resp)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s %s", ErrUnavailable, req.Method, req.URL.Path)
	}
	return err
}

func classifyTransport(req *http.Request, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s", ErrTimeout, req.Method, req.URL.Path)
	}
	return fmt.Errorf("backend %s %s: %w", req.Method, req.URL.Path, err)
}

func readAPIError(req *http.Request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
	apiErr := &APIError{
		Method: req.Method,
		Path:   req.URL.Path,
		Status: resp.StatusCode,
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// decodeBody aceita respostas vazias e texto puro quando out é *string.
func decodeBody(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if s, ok := out.(*string); ok {
		if len(raw) > 0 && raw[0] == '"' {
			return json.Unmarshal(raw, s)
		}
		*s = string(raw)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: resposta inválida: %w", err)
	}
	return nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
