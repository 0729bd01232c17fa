package chamado

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/push"
	"github.com/vozcidada/gateway/internal/storage"
	"github.com/vozcidada/gateway/internal/util"
)

type api interface {
	Chamados(ctx context.Context, token string, p backend.PageRequest) (*backend.Page[backend.Chamado], error)
	ChamadosByUsuario(ctx context.Context, token string, usuarioID int64, p backend.PageRequest) (*backend.Page[backend.Chamado], error)
	ChamadosBySecretaria(ctx context.Context, token, secretaria string, p backend.PageRequest) (*backend.Page[backend.Chamado], error)
	CountChamadosBySecretaria(ctx context.Context, token, secretaria string) (int64, error)
	Chamado(ctx context.Context, token string, id int64) (*backend.Chamado, error)
	CreateChamado(ctx context.Context, token string, ch backend.Chamado) (*backend.Chamado, error)
	UpdateChamado(ctx context.Context, token string, ch backend.Chamado) (*backend.Chamado, error)
	DeleteChamado(ctx context.Context, token string, id int64) error
	CreateHistorico(ctx context.Context, token string, h backend.Historico) (*backend.Historico, error)
	CreateAvaliacao(ctx context.Context, token string, a backend.Avaliacao) (*backend.Avaliacao, error)
	Avaliacoes(ctx context.Context, token string, p backend.PageRequest) (*backend.Page[backend.Avaliacao], error)
	GetImage(ctx context.Context, token, filename string) (*backend.Image, error)
	Usuario(ctx context.Context, token string, id int64) (*backend.Usuario, error)
}

// Service reúne regras de negócio dos chamados.
type Service struct {
	api      api
	uploader storage.Uploader
	notifier push.Notifier
	now      func() time.Time
}

// NewService cria uma nova instância do serviço.
func NewService(a api, uploader storage.Uploader, notifier push.Notifier) *Service {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	if notifier == nil {
		notifier = push.NoopNotifier{}
	}
	return &Service{api: a, uploader: uploader, notifier: notifier, now: time.Now}
}

// Open abre um chamado PENDENTE em nome do cidadão.
func (s *Service) Open(ctx context.Context, actor Actor, input OpenInput) (*backend.Chamado, error) {
	if !actor.isCitizen() {
		return nil, ErrForbidden
	}
	input.Titulo = strings.TrimSpace(input.Titulo)
	input.Descricao = strings.TrimSpace(input.Descricao)
	if err := util.Validate(input); err != nil {
		return nil, err
	}

	var fotoAntes *string
	if input.Photo != nil {
		url, err := s.upload(ctx, actor, input.Photo)
		if err != nil {
			return nil, err
		}
		fotoAntes = &url
	}

	return s.api.CreateChamado(ctx, actor.Token, backend.Chamado{
		UsuarioID:    actor.Citizen.ID,
		AuthUserID:   actor.Citizen.AuthUserID,
		Titulo:       input.Titulo,
		Descricao:    input.Descricao,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Status:       StatusPendente,
		DataAbertura: util.BackendTimestamp(s.now()),
		FotoAntesURL: fotoAntes,
	})
}

// List devolve os chamados visíveis ao ator: próprios, da secretaria ou todos.
func (s *Service) List(ctx context.Context, actor Actor, q PageQuery) (*backend.Page[backend.Chamado], error) {
	req := q.request()
	switch {
	case actor.isElevated():
		return s.api.Chamados(ctx, actor.Token, req)
	case actor.isAgent():
		if actor.Staff.Secretaria == "" {
			return nil, ErrNoSecretaria
		}
		return s.api.ChamadosBySecretaria(ctx, actor.Token, actor.Staff.Secretaria, req)
	case actor.isCitizen():
		return s.api.ChamadosByUsuario(ctx, actor.Token, actor.Citizen.ID, req)
	}
	return nil, ErrForbidden
}

// Get recupera um chamado respeitando a visibilidade do ator.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*backend.Chamado, error) {
	ch, err := s.api.Chamado(ctx, actor.Token, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canSee(actor, ch) {
		return nil, ErrForbidden
	}
	return ch, nil
}

func canSee(actor Actor, ch *backend.Chamado) bool {
	switch {
	case actor.isElevated():
		return true
	case actor.isAgent():
		return actor.Staff.Secretaria != "" && strings.EqualFold(ch.Secretaria, actor.Staff.Secretaria)
	case actor.isCitizen():
		return ch.UsuarioID == actor.Citizen.ID
	}
	return false
}

// ChangeStatus altera o status, registra histórico e avisa o cidadão.
// Transições são validadas pelo backend.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id int64, input StatusInput) (*backend.Chamado, error) {
	if !actor.isAgent() && !actor.isElevated() {
		return nil, ErrForbidden
	}
	input.Status = NormalizeStatus(input.Status)
	input.Observacao = strings.TrimSpace(input.Observacao)
	if err := util.Validate(input); err != nil {
		return nil, err
	}
	if !IsValidStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	ch, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Photo != nil {
		url, err := s.upload(ctx, actor, input.Photo)
		if err != nil {
			return nil, err
		}
		ch.FotoDepoisURL = &url
	}

	previous := ch.Status
	ch.Status = input.Status
	updated, err := s.api.UpdateChamado(ctx, actor.Token, *ch)
	if err != nil {
		return nil, fmt.Errorf("atualizar chamado: %w", err)
	}

	funcionarioID := actor.Staff.ID
	_, err = s.api.CreateHistorico(ctx, actor.Token, backend.Historico{
		ChamadoID:       ch.ID,
		FuncionarioID:   &funcionarioID,
		DataModificacao: util.BackendTimestamp(s.now()),
		StatusAnterior:  previous,
		StatusNovo:      input.Status,
		Observacao:      input.Observacao,
	})
	if err != nil {
		return nil, fmt.Errorf("registrar histórico: %w", err)
	}

	s.notifyStatus(ctx, actor, ch, input.Status)
	return updated, nil
}

// notifyStatus é best effort: falhas só aparecem no log.
func (s *Service) notifyStatus(ctx context.Context, actor Actor, ch *backend.Chamado, status string) {
	recipient := ch.AuthUserID
	if recipient == 0 && ch.UsuarioID != 0 {
		u, err := s.api.Usuario(ctx, actor.Token, ch.UsuarioID)
		if err != nil {
			log.Warn().Err(err).Int64("chamado_id", ch.ID).Msg("destinatário da notificação não encontrado")
			return
		}
		recipient = u.AuthUserID
	}
	if recipient == 0 {
		return
	}
	msg := push.Message{
		Title:      "Chamado atualizado",
		Text:       fmt.Sprintf("Seu chamado \"%s\" agora está %s.", ch.Titulo, strings.ToLower(status)),
		AuthUserID: recipient,
	}
	if err := s.notifier.Notify(ctx, actor.Token, msg); err != nil {
		log.Warn().Err(err).Int64("chamado_id", ch.ID).Msg("falha ao enviar notificação")
	}
}

// Reassign muda a secretaria responsável.
func (s *Service) Reassign(ctx context.Context, actor Actor, id int64, input ReassignInput) (*backend.Chamado, error) {
	if !actor.isElevated() {
		return nil, ErrForbidden
	}
	secretaria := NormalizeSecretaria(input.Secretaria)
	if !IsValidSecretaria(secretaria) {
		return nil, ErrInvalidSecretaria
	}
	ch, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ch.Secretaria = secretaria
	return s.api.UpdateChamado(ctx, actor.Token, *ch)
}

// Rate registra a avaliação do dono de um chamado concluído, uma única vez.
func (s *Service) Rate(ctx context.Context, actor Actor, id int64, input RateInput) (*backend.Avaliacao, error) {
	if !actor.isCitizen() {
		return nil, ErrForbidden
	}
	if err := util.Validate(input); err != nil {
		return nil, err
	}
	ch, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if NormalizeStatus(ch.Status) != StatusConcluido {
		return nil, ErrNotConcluded
	}
	if ch.Avaliacao != nil {
		return nil, ErrAlreadyRated
	}

	var comentario *string
	if c := strings.TrimSpace(input.Comentario); c != "" {
		comentario = &c
	}
	out, err := s.api.CreateAvaliacao(ctx, actor.Token, backend.Avaliacao{
		ChamadoID:     ch.ID,
		UsuarioID:     actor.Citizen.ID,
		Estrelas:      input.Estrelas,
		Comentario:    comentario,
		DataAvaliacao: util.BackendTimestamp(s.now()),
	})
	if errors.Is(err, backend.ErrConflict) {
		return nil, ErrAlreadyRated
	}
	return out, err
}

// Delete remove um chamado (somente administradores).
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	if !actor.isElevated() {
		return ErrForbidden
	}
	err := s.api.DeleteChamado(ctx, actor.Token, id)
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// CountBySecretaria alimenta o painel administrativo.
func (s *Service) CountBySecretaria(ctx context.Context, actor Actor) (map[string]int64, error) {
	if !actor.isElevated() {
		return nil, ErrForbidden
	}
	counts := make(map[string]int64, len(Secretarias))
	for _, secretaria := range Secretarias {
		n, err := s.api.CountChamadosBySecretaria(ctx, actor.Token, secretaria)
		if err != nil {
			return nil, fmt.Errorf("contar %s: %w", secretaria, err)
		}
		counts[secretaria] = n
	}
	return counts, nil
}

// Ratings lista as avaliações mais recentes para o painel administrativo.
func (s *Service) Ratings(ctx context.Context, actor Actor, q PageQuery) (*backend.Page[backend.Avaliacao], error) {
	if !actor.isElevated() {
		return nil, ErrForbidden
	}
	req := q.request()
	req.Sort = "dataAvaliacao,desc"
	return s.api.Avaliacoes(ctx, actor.Token, req)
}

// Image repassa uma foto armazenada no backend.
func (s *Service) Image(ctx context.Context, actor Actor, filename string) (*backend.Image, error) {
	if actor.Roles.Empty() {
		return nil, ErrForbidden
	}
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" || strings.Contains(filename, "..") {
		return nil, ErrNotFound
	}
	img, err := s.api.GetImage(ctx, actor.Token, filename)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	return img, err
}

func (s *Service) upload(ctx context.Context, actor Actor, photo *Photo) (string, error) {
	res, err := s.uploader.Upload(ctx, storage.UploadInput{
		Token:    actor.Token,
		Filename: photo.Filename,
		Body:     photo.Body,
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}
