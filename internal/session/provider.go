package session

import (
	"context"
	"time"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/prefs"
)

// Backend é o subconjunto da API usado pelas operações de sessão.
type Backend interface {
	Login(ctx context.Context, creds backend.Credentials) (auth.Pair, error)
	Register(ctx context.Context, reg backend.Registration) error
	GoogleLogin(ctx context.Context, email string) (auth.Pair, error)
	ChangePassword(ctx context.Context, token string, change backend.PasswordChange) error
	UpdateAuthStatus(ctx context.Context, token string) (auth.Pair, error)
	UsuarioByAuth(ctx context.Context, token, subject string) (*backend.Usuario, error)
	CreateUsuario(ctx context.Context, token string, u backend.Usuario) (*backend.Usuario, error)
	UpdateUsuario(ctx context.Context, token string, u backend.Usuario) (*backend.Usuario, error)
	FuncionarioByAuth(ctx context.Context, token, subject string) (*backend.Funcionario, error)
	CreateFuncionario(ctx context.Context, token string, f backend.Funcionario) (*backend.Funcionario, error)
}

type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (cep.Address, error)
}

type GoogleProfiles interface {
	Profile(ctx context.Context, accessToken string) (oauth.Profile, error)
}

// TokenStore guarda o par de credenciais; implementado por auth.CookieJar.
type TokenStore interface {
	Tokens() (auth.Pair, bool)
	Persist(pair auth.Pair) error
	SetAuthType(kind string)
	AuthType() string
	Clear()
}

// FlagStore guarda as preferências duráveis do navegador; implementado por prefs.Bound.
type FlagStore interface {
	Load(ctx context.Context) (prefs.Flags, error)
	Save(ctx context.Context, flags prefs.Flags) error
	Clear(ctx context.Context) error
}

// Provider reúne as dependências compartilhadas por todas as sessões.
type Provider struct {
	backend Backend
	address AddressLookup
	google  GoogleProfiles
	now     func() time.Time
}

func NewProvider(b Backend, address AddressLookup, google GoogleProfiles) *Provider {
	return &Provider{
		backend: b,
		address: address,
		google:  google,
		now:     time.Now,
	}
}

// Open cria a sessão da requisição e executa o bootstrap a partir dos cookies.
func (p *Provider) Open(ctx context.Context, tokens TokenStore, flags FlagStore) *Session {
	s := &Session{
		provider: p,
		tokens:   tokens,
		flags:    flags,
		state:    Bootstrapping,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootstrap(ctx)
	return s
}
