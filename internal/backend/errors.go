package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized corresponde a 401 do backend.
	ErrUnauthorized = errors.New("backend: não autenticado")
	// ErrForbidden corresponde a 403.
	ErrForbidden = errors.New("backend: acesso negado")
	// ErrNotFound corresponde a 404.
	ErrNotFound = errors.New("backend: registro não encontrado")
	// ErrConflict corresponde a 409.
	ErrConflict = errors.New("backend: registro já existe")
	// ErrTimeout indica que a chamada excedeu o tempo limite do cliente.
	ErrTimeout = errors.New("backend: tempo limite excedido")
	// ErrUnavailable indica circuito aberto após falhas consecutivas.
	ErrUnavailable = errors.New("backend: indisponível")
)

// APIError descreve resposta de erro do backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Is permite errors.Is(err, ErrNotFound) e afins.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// IsClientError informa erros 4xx, que não contam como falha do backend.
func IsClientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500
	}
	return false
}

// IsAuthError agrupa 401 e 403.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
