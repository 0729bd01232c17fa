package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UsuarioByAuth busca o perfil de cidadão pelo subject do token.
func (c *Client) UsuarioByAuth(ctx context.Context, token, subject string) (*Usuario, error) {
	var out Usuario
	if err := c.call(ctx, http.MethodGet, "/api/usuario/auth/"+url.PathEscape(subject), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Usuario busca um cidadão pelo id.
func (c *Client) Usuario(ctx context.Context, token string, id int64) (*Usuario, error) {
	var out Usuario
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/usuario/%d", id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUsuario cria o perfil do cidadão autenticado.
func (c *Client) CreateUsuario(ctx context.Context, token string, u Usuario) (*Usuario, error) {
	out := u
	if err := c.call(ctx, http.MethodPost, "/api/usuario", token, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUsuario substitui o perfil do cidadão e devolve a versão persistida.
func (c *Client) UpdateUsuario(ctx context.Context, token string, u Usuario) (*Usuario, error) {
	out := u
	if err := c.call(ctx, http.MethodPut, "/api/usuario", token, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FuncionarioByAuth busca o perfil de funcionário pelo subject do token.
func (c *Client) FuncionarioByAuth(ctx context.Context, token, subject string) (*Funcionario, error) {
	var out Funcionario
	if err := c.call(ctx, http.MethodGet, "/api/funcionario/auth/"+url.PathEscape(subject), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Funcionarios(ctx context.Context, token string, p PageRequest) (*Page[Funcionario], error) {
	var raw halPage
	if err := c.call(ctx, http.MethodGet, withQuery("/api/funcionario", p.values()), token, nil, &raw); err != nil {
		return nil, err
	}
	return decodePage[Funcionario](raw)
}

func (c *Client) CreateFuncionario(ctx context.Context, token string, f Funcionario) (*Funcionario, error) {
	out := f
	if err := c.call(ctx, http.MethodPost, "/api/funcionario", token, f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFuncionario(ctx context.Context, token string, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/funcionario/%d", id), token, nil, nil)
}
