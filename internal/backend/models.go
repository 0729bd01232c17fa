package backend

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Usuario é o perfil do cidadão em /api/usuario.
type Usuario struct {
	ID             int64  `json:"id,omitempty"`
	AuthUserID     int64  `json:"authUserId,omitempty"`
	Nome           string `json:"nome"`
	CPF            string `json:"cpf"`
	DataNascimento string `json:"dataNascimento"`
	DataCadastro   string `json:"dataCadastro,omitempty"`
	CEP            string `json:"cep"`
	Rua            string `json:"rua"`
	Bairro         string `json:"bairro"`
	Cidade         string `json:"cidade"`
	UF             string `json:"uf"`
	Email          string `json:"email,omitempty"`
}

// Funcionario é o perfil de agentes, administradores e owners.
type Funcionario struct {
	ID           int64  `json:"id,omitempty"`
	AuthID       string `json:"authId,omitempty"`
	CPF          string `json:"cpf"`
	Cargo        string `json:"cargo"`
	Secretaria   string `json:"secretaria,omitempty"`
	DataCadastro string `json:"dataCadastro,omitempty"`
}

// Chamado é o ticket aberto pelo cidadão.
type Chamado struct {
	ID            int64       `json:"id,omitempty"`
	UsuarioID     int64       `json:"usuarioId,omitempty"`
	AuthUserID    int64       `json:"authUserId,omitempty"`
	Titulo        string      `json:"titulo"`
	Descricao     string      `json:"descricao"`
	Secretaria    string      `json:"secretaria,omitempty"`
	DataAbertura  string      `json:"dataAbertura,omitempty"`
	Status        string      `json:"status"`
	Latitude      *float64    `json:"latitude"`
	Longitude     *float64    `json:"longitude"`
	FotoAntesURL  *string     `json:"fotoAntesUrl"`
	FotoDepoisURL *string     `json:"fotoDepoisUrl"`
	Avaliacao     *Avaliacao  `json:"avaliacao,omitempty"`
	Historicos    []Historico `json:"historicos"`
}

// Historico é uma entrada imutável da trilha de status do chamado.
type Historico struct {
	ID              int64  `json:"id,omitempty"`
	ChamadoID       int64  `json:"chamadoId"`
	FuncionarioID   *int64 `json:"funcionarioId,omitempty"`
	DataModificacao string `json:"dataModificacao"`
	StatusAnterior  string `json:"statusAnterior"`
	StatusNovo      string `json:"statusNovo"`
	Observacao      string `json:"observacao"`
}

// Avaliacao é a nota dada pelo cidadão a um chamado concluído.
type Avaliacao struct {
	ID            int64   `json:"id,omitempty"`
	ChamadoID     int64   `json:"chamadoId"`
	UsuarioID     int64   `json:"usuarioId,omitempty"`
	Estrelas      int     `json:"estrelas"`
	Comentario    *string `json:"comentario,omitempty"`
	DataAvaliacao string  `json:"dataAvaliacao"`
}

// Notification é a mensagem push enviada a um usuário.
type Notification struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	AuthUserID int64  `json:"authUserId"`
}

// Credentials alimenta /auth/login e /auth/register/admin.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Registration alimenta /auth/register.
type Registration struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// PasswordChange alimenta /auth/changePassword.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// PageRequest traduz paginação para os parâmetros page/size/sort.
type PageRequest struct {
	Page int
	Size int
	Sort string
}

func (p PageRequest) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

// Page é uma página de resultados.
type Page[T any] struct {
	Items         []T   `json:"items"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// halPage espelha o envelope _embedded/page usado pelo backend.
type halPage struct {
	Embedded map[string]json.RawMessage `json:"_embedded"`
	Page     struct {
		Size          int   `json:"size"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int   `json:"totalPages"`
		Number        int   `json:"number"`
	} `json:"page"`
}

func decodePage[T any](raw halPage) (*Page[T], error) {
	page := &Page[T]{
		Items:         []T{},
		Number:        raw.Page.Number,
		Size:          raw.Page.Size,
		TotalElements: raw.Page.TotalElements,
		TotalPages:    raw.Page.TotalPages,
	}
	for _, list := range raw.Embedded {
		if err := json.Unmarshal(list, &page.Items); err != nil {
			return nil, err
		}
		break
	}
	if page.TotalElements == 0 && len(page.Items) > 0 {
		page.TotalElements = int64(len(page.Items))
		page.TotalPages = 1
	}
	return page, nil
}
