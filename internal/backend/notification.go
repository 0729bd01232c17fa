package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// SetNotificationToken associa o token FCM do navegador ao titular do token.
func (c *Client) SetNotificationToken(ctx context.Context, token, fcmToken string) error {
	fcmToken = strings.TrimSpace(fcmToken)
	if fcmToken == "" {
		return errors.New("backend: token de notificação vazio")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notification/setToken", strings.NewReader(fcmToken))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, nil)
}

// SendToUser dispara uma notificação push para um usuário.
func (c *Client) SendToUser(ctx context.Context, token string, n Notification) error {
	return c.call(ctx, http.MethodPost, "/notification/sendToUser", token, n, nil)
}
