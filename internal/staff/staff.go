package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/util"
)

var (
	ErrForbidden         = errors.New("apenas administradores gerenciam funcionários")
	ErrEmailInUse        = errors.New("email já cadastrado")
	ErrInvalidSecretaria = errors.New("secretaria inválida")
	ErrNotFound          = errors.New("funcionário não encontrado")
)

type api interface {
	RegisterAdmin(ctx context.Context, token string, creds backend.Credentials) error
	Login(ctx context.Context, creds backend.Credentials) (auth.Pair, error)
	Funcionarios(ctx context.Context, token string, p backend.PageRequest) (*backend.Page[backend.Funcionario], error)
	CreateFuncionario(ctx context.Context, token string, f backend.Funcionario) (*backend.Funcionario, error)
	DeleteFuncionario(ctx context.Context, token string, id int64) error
}

// Admin é quem gerencia a equipe; precisa de ROLE_ADMIN ou ROLE_OWNER.
type Admin struct {
	Token string
	Roles auth.RoleSet
}

// CreateForm cadastra credencial e perfil de um novo funcionário.
type CreateForm struct {
	Email      string `json:"email" validate:"required,email"`
	Senha      string `json:"senha" validate:"required,min=6"`
	CPF        string `json:"cpf" validate:"required,cpf"`
	Cargo      string `json:"cargo" validate:"notblank,min=5"`
	Secretaria string `json:"secretaria" validate:"required"`
}

func (f *CreateForm) normalize() {
	f.Email = strings.TrimSpace(strings.ToLower(f.Email))
	f.Cargo = strings.TrimSpace(f.Cargo)
	f.Secretaria = chamado.NormalizeSecretaria(f.Secretaria)
}

type Service struct {
	api api
	now func() time.Time
}

func NewService(a api) *Service {
	return &Service{api: a, now: time.Now}
}

// List pagina os funcionários cadastrados.
func (s *Service) List(ctx context.Context, admin Admin, page, size int) (*backend.Page[backend.Funcionario], error) {
	if !admin.Roles.IsElevated() {
		return nil, ErrForbidden
	}
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	return s.api.Funcionarios(ctx, admin.Token, backend.PageRequest{Page: page, Size: size, Sort: "id,desc"})
}

// Create registra a credencial, entra com ela para descobrir o subject e cria o perfil.
func (s *Service) Create(ctx context.Context, admin Admin, form CreateForm) (*backend.Funcionario, error) {
	if !admin.Roles.IsElevated() {
		return nil, ErrForbidden
	}
	form.normalize()
	if err := util.Validate(form); err != nil {
		return nil, err
	}
	if !chamado.IsValidSecretaria(form.Secretaria) {
		return nil, ErrInvalidSecretaria
	}

	creds := backend.Credentials{Login: form.Email, Password: form.Senha}
	if err := s.api.RegisterAdmin(ctx, admin.Token, creds); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("registrar credencial: %w", err)
	}

	pair, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("entrar como novo funcionário: %w", err)
	}
	claims, err := auth.Decode(pair.AccessToken, s.now())
	if err != nil {
		return nil, fmt.Errorf("token do novo funcionário: %w", err)
	}

	f, err := s.api.CreateFuncionario(ctx, admin.Token, backend.Funcionario{
		AuthID:       claims.Subject,
		CPF:          util.Digits(form.CPF),
		Cargo:        form.Cargo,
		Secretaria:   form.Secretaria,
		DataCadastro: util.BackendTimestamp(s.now()),
	})
	if err != nil {
		log.Error().Err(err).Str("auth_id", claims.Subject).Msg("credencial criada sem perfil de funcionário")
		return nil, fmt.Errorf("criar perfil: %w", err)
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, admin Admin, id int64) error {
	if !admin.Roles.IsElevated() {
		return ErrForbidden
	}
	err := s.api.DeleteFuncionario(ctx, admin.Token, id)
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
