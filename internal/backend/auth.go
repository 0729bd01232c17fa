package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/vozcidada/gateway/internal/auth"
)

var errEmptyPair = errors.New("backend: resposta sem tokens")

// Login autentica credenciais e devolve o par de tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (auth.Pair, error) {
	return c.pair(ctx, http.MethodPost, "/auth/login", "", creds)
}

// Register cria a credencial de um cidadão.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.call(ctx, http.MethodPost, "/auth/register", "", reg, nil)
}

// RegisterAdmin cria credencial de funcionário; exige token de administrador.
func (c *Client) RegisterAdmin(ctx context.Context, token string, creds Credentials) error {
	return c.call(ctx, http.MethodPost, "/auth/register/admin", token, creds, nil)
}

// GoogleLogin troca o email verificado pelo Google por um par de tokens.
func (c *Client) GoogleLogin(ctx context.Context, email string) (auth.Pair, error) {
	return c.pair(ctx, http.MethodPost, "/auth/oauth/google", "", map[string]string{"email": email})
}

// ChangePassword altera a senha do titular do token.
func (c *Client) ChangePassword(ctx context.Context, token string, change PasswordChange) error {
	return c.call(ctx, http.MethodPatch, "/auth/changePassword", token, change, nil)
}

// UpdateAuthStatus marca o cadastro como concluído e devolve o novo par.
func (c *Client) UpdateAuthStatus(ctx context.Context, token string) (auth.Pair, error) {
	return c.pair(ctx, http.MethodPatch, "/auth/updateAuthStatus", token, nil)
}

func (c *Client) pair(ctx context.Context, method, path, token string, body any) (auth.Pair, error) {
	var pair auth.Pair
	if err := c.call(ctx, method, path, token, body, &pair); err != nil {
		return auth.Pair{}, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return auth.Pair{}, errEmptyPair
	}
	return pair, nil
}
