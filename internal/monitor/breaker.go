package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const notifyTimeout = 10 * time.Second

// BreakerWatcher registra transições do circuit breaker e alerta quando o
// backend fica indisponível ou se recupera.
type BreakerWatcher struct {
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
	// send é trocado nos testes para execução síncrona.
	send func(func())
}

func NewBreakerWatcher(notifier Notifier, logger zerolog.Logger) *BreakerWatcher {
	return &BreakerWatcher{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		send:     func(fn func()) { go fn() },
	}
}

// OnStateChange segue a assinatura de gobreaker.Settings.
func (w *BreakerWatcher) OnStateChange(name string, from, to gobreaker.State) {
	event := w.logger.Info()
	if to == gobreaker.StateOpen {
		event = w.logger.Warn()
	}
	event.Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("monitor: circuit breaker mudou de estado")

	msg, ok := alertFor(name, from, to, w.now())
	if !ok || w.notifier == nil {
		return
	}
	w.send(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := w.notifier.Notify(ctx, msg); err != nil {
			w.logger.Error().Err(err).Str("breaker", name).Msg("monitor: falha ao enviar alerta")
		}
	})
}

// alertFor ignora a sondagem half-open; só abertura e recuperação geram alerta.
func alertFor(name string, from, to gobreaker.State, at time.Time) (AlertMessage, bool) {
	stamp := at.UTC().Format(time.RFC3339)
	switch {
	case to == gobreaker.StateOpen:
		return AlertMessage{
			Title:    "Backend indisponível",
			Text:     fmt.Sprintf("circuit breaker %q abriu em %s (estado anterior: %s)", name, stamp, from),
			Severity: SeverityCritical,
		}, true
	case to == gobreaker.StateClosed && from == gobreaker.StateHalfOpen:
		return AlertMessage{
			Title:    "Backend recuperado",
			Text:     fmt.Sprintf("circuit breaker %q fechou em %s", name, stamp),
			Severity: SeverityInfo,
		}, true
	}
	return AlertMessage{}, false
}
