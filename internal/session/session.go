package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/util"
)

// Outcome é o resultado de uma operação: destino de navegação e se falta cadastro.
type Outcome struct {
	Redirect          string `json:"redirect"`
	NeedsRegistration bool   `json:"needsRegistration"`
}

// Session é o único escritor do estado de sessão. Operações são serializadas.
type Session struct {
	mu       sync.Mutex
	provider *Provider
	tokens   TokenStore
	flags    FlagStore

	state      State
	subject    string
	roles      auth.RoleSet
	authStatus auth.AuthStatus
	citizen    *backend.Usuario
	staff      *backend.Funcionario
	prefs      prefs.Flags
	authType   string
}

// Snapshot devolve uma cópia do estado atual.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:             s.state,
		Subject:           s.subject,
		Roles:             s.roles,
		AuthStatus:        s.authStatus,
		IsGoogleUser:      s.prefs.IsGoogleUser,
		ProfilePictureURL: s.prefs.ProfilePictureURL,
		OAuth:             s.authType == auth.AuthTypeOAuth,
	}
	if s.citizen != nil {
		c := *s.citizen
		snap.Citizen = &c
	}
	if s.staff != nil {
		f := *s.staff
		snap.Staff = &f
	}
	return snap
}

// AccessToken devolve o token atual para chamadas autenticadas ao backend.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, _ := s.tokens.Tokens()
	return pair.AccessToken
}

func (s *Session) bootstrap(ctx context.Context) {
	if flags, err := s.flags.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("falha ao carregar preferências do navegador")
	} else {
		s.prefs = flags
	}
	s.authType = s.tokens.AuthType()

	pair, ok := s.tokens.Tokens()
	if !ok {
		s.reset()
		return
	}
	claims, err := auth.Decode(pair.AccessToken, s.provider.now())
	if err != nil {
		log.Debug().Err(err).Msg("token de acesso ignorado")
		s.reset()
		return
	}
	if !s.adopt(claims) {
		s.reset()
		return
	}
	if s.authStatus == auth.AuthStatusSignIn {
		s.state = Incomplete
		return
	}
	if err := s.loadProfile(ctx, pair.AccessToken); err != nil {
		log.Warn().Err(err).Str("subject", s.subject).Msg("perfil não encontrado no bootstrap")
		s.reset()
		return
	}
	s.state = Complete
}

// adopt copia as claims para a sessão. Tokens sem papéis não autenticam.
func (s *Session) adopt(claims *auth.Claims) bool {
	roles := claims.RoleSet()
	if roles.Empty() {
		return false
	}
	s.subject = claims.Subject
	s.roles = roles
	s.authStatus = claims.AuthStatus
	s.citizen = nil
	s.staff = nil
	return true
}

// reset leva a sessão a Anonymous sem tocar em cookies.
func (s *Session) reset() {
	s.state = Anonymous
	s.subject = ""
	s.roles = auth.RoleSet{}
	s.authStatus = auth.AuthStatusNone
	s.citizen = nil
	s.staff = nil
}

// loadProfile busca o perfil conforme o papel: funcionário ou cidadão.
func (s *Session) loadProfile(ctx context.Context, token string) error {
	b := s.provider.backend
	if s.roles.IsStaff() {
		f, err := b.FuncionarioByAuth(ctx, token, s.subject)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProfileFetch, err)
		}
		s.staff = f
		return nil
	}
	u, err := b.UsuarioByAuth(ctx, token, s.subject)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	s.citizen = u
	return nil
}

// establish persiste o par, decodifica e adota as novas claims.
func (s *Session) establish(pair auth.Pair) error {
	claims, err := auth.Decode(pair.AccessToken, s.provider.now())
	if err != nil {
		return err
	}
	if claims.RoleSet().Empty() {
		return fmt.Errorf("%w: token sem papéis", auth.ErrMalformedToken)
	}
	if err := s.tokens.Persist(pair); err != nil {
		return err
	}
	s.adopt(claims)
	return nil
}

// complete carrega o perfil e marca a sessão como Complete.
func (s *Session) complete(ctx context.Context) (Outcome, error) {
	pair, _ := s.tokens.Tokens()
	if err := s.loadProfile(ctx, pair.AccessToken); err != nil {
		s.reset()
		return Outcome{}, err
	}
	s.state = Complete
	return Outcome{Redirect: LandingPath(s.roles)}, nil
}

func (s *Session) saveFlags(ctx context.Context) {
	if err := s.flags.Save(ctx, s.prefs); err != nil {
		log.Warn().Err(err).Msg("falha ao salvar preferências do navegador")
	}
}

func (s *Session) lookupAddress(ctx context.Context, raw string) (cep.Address, error) {
	addr, err := s.provider.address.Lookup(ctx, raw)
	if err != nil {
		log.Warn().Err(err).Str("cep", util.Digits(raw)).Msg("cep não resolvido")
		// ErrAddressLookup cobre apenas CEP inválido ou inexistente.
		if errors.Is(err, cep.ErrNotFound) || errors.Is(err, cep.ErrInvalid) {
			return cep.Address{}, fmt.Errorf("%w: %w", ErrAddressLookup, err)
		}
		return cep.Address{}, err
	}
	return addr, nil
}

func credentialsError(err error) error {
	if backend.IsAuthError(err) {
		return ErrInvalidCredentials
	}
	return err
}

// SignIn autentica com login e senha.
func (s *Session) SignIn(ctx context.Context, form SignInForm) (Outcome, error) {
	form.normalize()
	if err := util.Validate(form); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.provider.backend.Login(ctx, backend.Credentials{Login: form.Login, Password: form.Password})
	if err != nil {
		log.Warn().Err(err).Str("login", form.Login).Msg("falha no login")
		return Outcome{}, credentialsError(err)
	}
	if err := s.establish(pair); err != nil {
		return Outcome{}, err
	}
	if s.authStatus == auth.AuthStatusSignIn {
		s.state = Incomplete
		return Outcome{Redirect: CompletionPath(s.roles)}, nil
	}
	return s.complete(ctx)
}

// SignUp cadastra um cidadão. O CEP é resolvido antes de qualquer criação de conta.
//
// Quando a credencial já existe (409) a operação entra com a senha informada e
// retoma na criação do perfil, desde que ele ainda não exista.
func (s *Session) SignUp(ctx context.Context, form SignUpForm) (Outcome, error) {
	form.normalize()
	if err := util.Validate(form); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addr, err := s.lookupAddress(ctx, form.CEP)
	if err != nil {
		return Outcome{}, err
	}

	b := s.provider.backend
	resuming := false
	err = b.Register(ctx, backend.Registration{Login: form.Email, Password: form.Password, Role: "USER"})
	switch {
	case errors.Is(err, backend.ErrConflict):
		resuming = true
	case err != nil:
		return Outcome{}, err
	}

	pair, err := b.Login(ctx, backend.Credentials{Login: form.Email, Password: form.Password})
	if err != nil {
		if resuming && backend.IsAuthError(err) {
			return Outcome{}, ErrAccountExists
		}
		return Outcome{}, err
	}

	if resuming {
		claims, err := auth.Decode(pair.AccessToken, s.provider.now())
		if err != nil {
			return Outcome{}, err
		}
		if claims.RoleSet().IsStaff() {
			return Outcome{}, ErrAccountExists
		}
		_, err = b.UsuarioByAuth(ctx, pair.AccessToken, claims.Subject)
		if err == nil {
			return Outcome{}, ErrAccountExists
		}
		if !errors.Is(err, backend.ErrNotFound) {
			return Outcome{}, err
		}
		log.Info().Str("login", form.Email).Msg("retomando cadastro sem perfil")
	}

	if err := s.establish(pair); err != nil {
		return Outcome{}, err
	}
	if _, err := b.CreateUsuario(ctx, pair.AccessToken, citizenFrom(form.Name, form.BirthDate, form.CPF, addr, s.provider.now)); err != nil {
		s.reset()
		return Outcome{}, fmt.Errorf("criar perfil: %w", err)
	}
	return s.complete(ctx)
}

// OAuthSignIn entra com o access token do Google.
func (s *Session) OAuthSignIn(ctx context.Context, googleAccessToken string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.provider.google.Profile(ctx, googleAccessToken)
	if err != nil {
		return Outcome{}, err
	}
	s.prefs.IsGoogleUser = true
	s.prefs.ProfilePictureURL = profile.Picture
	s.saveFlags(ctx)

	pair, err := s.provider.backend.GoogleLogin(ctx, profile.Email)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.establish(pair); err != nil {
		return Outcome{}, err
	}
	s.tokens.SetAuthType(auth.AuthTypeOAuth)
	s.authType = auth.AuthTypeOAuth

	if s.authStatus == auth.AuthStatusSignIn {
		s.state = Incomplete
		return Outcome{Redirect: CompletionPath(s.roles), NeedsRegistration: true}, nil
	}
	return s.complete(ctx)
}

// OAuthSignUp conclui o cadastro de uma sessão Incomplete criando o perfil de cidadão.
func (s *Session) OAuthSignUp(ctx context.Context, form ProfileForm) (Outcome, error) {
	form.normalize()
	if err := util.Validate(form); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Incomplete {
		return Outcome{}, ErrNotIncomplete
	}
	addr, err := s.lookupAddress(ctx, form.CEP)
	if err != nil {
		return Outcome{}, err
	}

	b := s.provider.backend
	pair, _ := s.tokens.Tokens()
	if _, err := b.CreateUsuario(ctx, pair.AccessToken, citizenFrom(form.Name, form.BirthDate, form.CPF, addr, s.provider.now)); err != nil {
		return Outcome{}, fmt.Errorf("criar perfil: %w", err)
	}
	citizen, err := b.UsuarioByAuth(ctx, pair.AccessToken, s.subject)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	s.prefs.IsGoogleUser = true
	s.saveFlags(ctx)

	next, err := b.UpdateAuthStatus(ctx, pair.AccessToken)
	if err != nil {
		return Outcome{}, fmt.Errorf("atualizar status de cadastro: %w", err)
	}
	if err := s.establish(next); err != nil {
		return Outcome{}, err
	}
	s.tokens.SetAuthType(auth.AuthTypeOAuth)
	s.authType = auth.AuthTypeOAuth
	s.citizen = citizen
	s.state = Complete
	return Outcome{Redirect: PathDashboard}, nil
}

// OwnerSignUp conclui o cadastro do proprietário criando o perfil de funcionário.
func (s *Session) OwnerSignUp(ctx context.Context, form OwnerForm) (Outcome, error) {
	form.normalize()
	if err := util.Validate(form); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Incomplete {
		return Outcome{}, ErrNotIncomplete
	}
	if !s.roles.Has(auth.RoleOwner) {
		return Outcome{}, ErrNotOwner
	}

	b := s.provider.backend
	pair, _ := s.tokens.Tokens()
	_, err := b.CreateFuncionario(ctx, pair.AccessToken, backend.Funcionario{
		AuthID:       s.subject,
		CPF:          util.Digits(form.CPF),
		Cargo:        form.Cargo,
		DataCadastro: util.BackendTimestamp(s.provider.now()),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("criar perfil de funcionário: %w", err)
	}

	next, err := b.UpdateAuthStatus(ctx, pair.AccessToken)
	if err != nil {
		return Outcome{}, fmt.Errorf("atualizar status de cadastro: %w", err)
	}
	if err := s.establish(next); err != nil {
		return Outcome{}, err
	}
	if err := s.loadProfile(ctx, next.AccessToken); err != nil {
		s.reset()
		return Outcome{}, err
	}
	s.state = Complete
	return Outcome{Redirect: PathAdminDashboard}, nil
}

// UpdateCep troca o CEP e reconstrói o endereço pelo serviço de CEP.
func (s *Session) UpdateCep(ctx context.Context, form UpdateCepForm) (*backend.Usuario, error) {
	if err := util.Validate(form); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.citizen == nil {
		return nil, ErrNoCitizenProfile
	}
	addr, err := s.lookupAddress(ctx, form.CEP)
	if err != nil {
		return nil, err
	}
	next := *s.citizen
	applyAddress(&next, addr)
	return s.replaceCitizen(ctx, next)
}

// UpdateInfo altera nome e nascimento, revalidando o endereço do CEP atual.
func (s *Session) UpdateInfo(ctx context.Context, form UpdateInfoForm) (*backend.Usuario, error) {
	form.normalize()
	if err := util.Validate(form); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.citizen == nil {
		return nil, ErrNoCitizenProfile
	}
	next := *s.citizen
	if next.CEP != "" {
		addr, err := s.lookupAddress(ctx, next.CEP)
		if err != nil {
			return nil, err
		}
		applyAddress(&next, addr)
	}
	if form.Name != "" {
		next.Nome = form.Name
	}
	if form.BirthDate != "" {
		next.DataNascimento = form.BirthDate
	}
	return s.replaceCitizen(ctx, next)
}

// replaceCitizen envia o perfil e adota integralmente a resposta do backend.
func (s *Session) replaceCitizen(ctx context.Context, next backend.Usuario) (*backend.Usuario, error) {
	pair, _ := s.tokens.Tokens()
	saved, err := s.provider.backend.UpdateUsuario(ctx, pair.AccessToken, next)
	if err != nil {
		return nil, fmt.Errorf("atualizar perfil: %w", err)
	}
	s.citizen = saved
	out := *saved
	return &out, nil
}

// ChangePassword repassa a troca de senha; qualquer falha vira ErrPasswordChange.
func (s *Session) ChangePassword(ctx context.Context, form ChangePasswordForm) error {
	if err := util.Validate(form); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Complete {
		return ErrNotAuthenticated
	}
	pair, _ := s.tokens.Tokens()
	err := s.provider.backend.ChangePassword(ctx, pair.AccessToken, backend.PasswordChange{
		CurrentPassword: form.CurrentPassword,
		NewPassword:     form.NewPassword,
	})
	if err != nil {
		log.Warn().Err(err).Str("subject", s.subject).Msg("falha na troca de senha")
		return ErrPasswordChange
	}
	return nil
}

// SignOut limpa cookies, preferências e estado. Não faz chamadas de rede ao backend.
func (s *Session) SignOut(ctx context.Context) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens.Clear()
	if err := s.flags.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("falha ao limpar preferências do navegador")
	}
	s.prefs = prefs.Flags{}
	s.authType = ""
	s.reset()
	return Outcome{Redirect: PathSignIn}
}

func citizenFrom(name, birthDate, cpf string, addr cep.Address, now func() time.Time) backend.Usuario {
	u := backend.Usuario{
		Nome:           name,
		DataNascimento: birthDate,
		CPF:            util.Digits(cpf),
		DataCadastro:   util.BackendTimestamp(now()),
	}
	applyAddress(&u, addr)
	return u
}

func applyAddress(u *backend.Usuario, addr cep.Address) {
	u.CEP = addr.CEP
	u.Rua = addr.Logradouro
	u.Bairro = addr.Bairro
	u.Cidade = addr.Localidade
	u.UF = addr.UF
}
