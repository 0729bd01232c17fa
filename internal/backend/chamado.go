package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Chamados lista todos os chamados (visão administrativa).
func (c *Client) Chamados(ctx context.Context, token string, p PageRequest) (*Page[Chamado], error) {
	return c.chamadoPage(ctx, token, withQuery("/api/chamado", p.values()))
}

// ChamadosByUsuario lista os chamados abertos por um cidadão.
func (c *Client) ChamadosByUsuario(ctx context.Context, token string, usuarioID int64, p PageRequest) (*Page[Chamado], error) {
	return c.chamadoPage(ctx, token, withQuery(fmt.Sprintf("/api/chamado/user/%d", usuarioID), p.values()))
}

// ChamadosBySecretaria lista os chamados atribuídos a uma secretaria.
func (c *Client) ChamadosBySecretaria(ctx context.Context, token, secretaria string, p PageRequest) (*Page[Chamado], error) {
	return c.chamadoPage(ctx, token, withQuery("/api/chamado/secretaria/"+url.PathEscape(secretaria), p.values()))
}

func (c *Client) chamadoPage(ctx context.Context, token, path string) (*Page[Chamado], error) {
	var raw halPage
	if err := c.call(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}
	return decodePage[Chamado](raw)
}

// CountChamadosBySecretaria devolve o total de chamados de uma secretaria.
func (c *Client) CountChamadosBySecretaria(ctx context.Context, token, secretaria string) (int64, error) {
	var raw string
	if err := c.call(ctx, http.MethodGet, "/api/chamado/count/"+url.PathEscape(secretaria), token, nil, &raw); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("backend: contagem inválida %q: %w", raw, err)
	}
	return n, nil
}

func (c *Client) Chamado(ctx context.Context, token string, id int64) (*Chamado, error) {
	var out Chamado
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/chamado/%d", id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateChamado(ctx context.Context, token string, ch Chamado) (*Chamado, error) {
	out := ch
	if err := c.call(ctx, http.MethodPost, "/api/chamado", token, ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateChamado(ctx context.Context, token string, ch Chamado) (*Chamado, error) {
	out := ch
	if err := c.call(ctx, http.MethodPut, "/api/chamado", token, ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChamado(ctx context.Context, token string, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/chamado/%d", id), token, nil, nil)
}

// CreateHistorico anexa uma entrada à trilha do chamado.
func (c *Client) CreateHistorico(ctx context.Context, token string, h Historico) (*Historico, error) {
	out := h
	if err := c.call(ctx, http.MethodPost, "/api/historico", token, h, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAvaliacao registra a avaliação de um chamado concluído.
func (c *Client) CreateAvaliacao(ctx context.Context, token string, a Avaliacao) (*Avaliacao, error) {
	out := a
	if err := c.call(ctx, http.MethodPost, "/api/avaliacao", token, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Avaliacoes(ctx context.Context, token string, p PageRequest) (*Page[Avaliacao], error) {
	var raw halPage
	if err := c.call(ctx, http.MethodGet, withQuery("/api/avaliacao", p.values()), token, nil, &raw); err != nil {
		return nil, err
	}
	return decodePage[Avaliacao](raw)
}
