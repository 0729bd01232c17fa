package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken indica que o payload do token não pôde ser lido.
	ErrMalformedToken = errors.New("token malformado")
	// ErrExpiredToken indica token com exp no passado.
	ErrExpiredToken = errors.New("token expirado")
)

// AuthStatus distingue cadastro incompleto (SIGNIN) de cadastro concluído (SIGNUP).
type AuthStatus string

const (
	AuthStatusNone   AuthStatus = ""
	AuthStatusSignIn AuthStatus = "SIGNIN"
	AuthStatusSignUp AuthStatus = "SIGNUP"
)

// Claims representa as informações presentes no token de acesso emitido pelo backend.
type Claims struct {
	TokenType  string     `json:"token_type"`
	AuthStatus AuthStatus `json:"auth_status"`
	Roles      []string   `json:"roles"`
	jwt.RegisteredClaims
}

// RoleSet devolve os papéis do token como conjunto.
func (c *Claims) RoleSet() RoleSet {
	return NewRoleSet(c.Roles...)
}

// Decode lê as claims sem verificar a assinatura.
//
// A verificação é responsabilidade do backend, que revalida o token em toda
// chamada protegida. O resultado serve apenas para decidir navegação.
func Decode(token string, now time.Time) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}

	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMalformedToken
	}

	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}

	claims.AuthStatus = AuthStatus(strings.ToUpper(strings.TrimSpace(string(claims.AuthStatus))))
	return claims, nil
}
