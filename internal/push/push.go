package push

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/backend"
)

var ErrEmptyToken = errors.New("push: token do dispositivo vazio")

// Message é uma notificação para um usuário.
type Message struct {
	Title      string
	Text       string
	AuthUserID int64
}

// Notifier envia notificações push.
type Notifier interface {
	Notify(ctx context.Context, token string, msg Message) error
}

type api interface {
	SetNotificationToken(ctx context.Context, token, fcmToken string) error
	SendToUser(ctx context.Context, token string, n backend.Notification) error
}

// BackendNotifier usa /notification/sendToUser.
type BackendNotifier struct {
	api api
}

func NewBackendNotifier(a api) *BackendNotifier {
	return &BackendNotifier{api: a}
}

func (n *BackendNotifier) Notify(ctx context.Context, token string, msg Message) error {
	if msg.AuthUserID == 0 {
		return errors.New("push: destinatário ausente")
	}
	return n.api.SendToUser(ctx, token, backend.Notification{
		Title:      msg.Title,
		Message:    msg.Text,
		AuthUserID: msg.AuthUserID,
	})
}

// NoopNotifier apenas registra a mensagem em log.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, token string, msg Message) error {
	log.Debug().Int64("auth_user_id", msg.AuthUserID).Str("title", msg.Title).Msg("notificação descartada")
	return nil
}

// Registrar associa o token FCM do navegador ao usuário autenticado.
type Registrar struct {
	api api
}

func NewRegistrar(a api) *Registrar {
	return &Registrar{api: a}
}

func (r *Registrar) Register(ctx context.Context, token, fcmToken string) error {
	fcmToken = strings.TrimSpace(fcmToken)
	if fcmToken == "" {
		return ErrEmptyToken
	}
	return r.api.SetNotificationToken(ctx, token, fcmToken)
}
