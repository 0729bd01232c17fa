package chamado

import (
	"errors"
	"strings"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
)

var (
	ErrNotFound          = errors.New("chamado não encontrado")
	ErrForbidden         = errors.New("acesso ao chamado negado")
	ErrInvalidStatus     = errors.New("status inválido")
	ErrInvalidSecretaria = errors.New("secretaria inválida")
	ErrNotConcluded      = errors.New("só chamados concluídos podem ser avaliados")
	ErrAlreadyRated      = errors.New("chamado já avaliado")
	ErrNoSecretaria      = errors.New("funcionário sem secretaria")
)

const (
	StatusPendente    = "PENDENTE"
	StatusEmAndamento = "EM ANDAMENTO"
	StatusConcluido   = "CONCLUÍDO"

	SecretariaObras     = "OBRAS"
	SecretariaUrbanismo = "URBANISMO"

	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	validStatuses = map[string]struct{}{
		StatusPendente:    {},
		StatusEmAndamento: {},
		StatusConcluido:   {},
	}
	validSecretarias = map[string]struct{}{
		SecretariaObras:     {},
		SecretariaUrbanismo: {},
	}
)

// Secretarias lista as secretarias atendidas.
var Secretarias = []string{SecretariaObras, SecretariaUrbanismo}

// Actor identifica quem executa a operação.
type Actor struct {
	Token   string
	Roles   auth.RoleSet
	Citizen *backend.Usuario
	Staff   *backend.Funcionario
}

func (a Actor) isCitizen() bool { return a.Citizen != nil && !a.Roles.IsStaff() }
func (a Actor) isAgent() bool   { return a.Staff != nil && a.Roles.IsStaff() && !a.Roles.IsElevated() }
func (a Actor) isElevated() bool { return a.Staff != nil && a.Roles.IsElevated() }

// Photo é um arquivo recebido em formulário multipart.
type Photo struct {
	Filename string
	Body     []byte
}

// OpenInput encapsula a abertura de chamado pelo cidadão.
type OpenInput struct {
	Titulo    string   `json:"titulo" validate:"notblank,max=120"`
	Descricao string   `json:"descricao" validate:"notblank,max=2000"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Photo     *Photo   `json:"-"`
}

// StatusInput encapsula a mudança de status por um funcionário.
type StatusInput struct {
	Status     string `json:"statusNovo" validate:"notblank"`
	Observacao string `json:"observacao" validate:"notblank,max=1000"`
	Photo      *Photo `json:"-"`
}

type ReassignInput struct {
	Secretaria string `json:"secretaria" validate:"required"`
}

type RateInput struct {
	Estrelas   int    `json:"estrelas" validate:"gte=1,lte=5"`
	Comentario string `json:"comentario" validate:"max=1000"`
}

// PageQuery controla paginação das listagens.
type PageQuery struct {
	Page int
	Size int
}

func (q PageQuery) request() backend.PageRequest {
	if q.Page < 0 {
		q.Page = 0
	}
	switch {
	case q.Size <= 0:
		q.Size = defaultPageSize
	case q.Size > maxPageSize:
		q.Size = maxPageSize
	}
	return backend.PageRequest{Page: q.Page, Size: q.Size, Sort: "id,desc"}
}

// NormalizeStatus aceita variações sem acento ou com sublinhado.
func NormalizeStatus(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	status = strings.ReplaceAll(status, "_", " ")
	if status == "CONCLUIDO" {
		return StatusConcluido
	}
	return status
}

func IsValidStatus(status string) bool {
	_, ok := validStatuses[NormalizeStatus(status)]
	return ok
}

func NormalizeSecretaria(secretaria string) string {
	return strings.ToUpper(strings.TrimSpace(secretaria))
}

func IsValidSecretaria(secretaria string) bool {
	_, ok := validSecretarias[NormalizeSecretaria(secretaria)]
	return ok
}
