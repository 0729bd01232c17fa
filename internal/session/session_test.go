package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/util"
)

func mint(t *testing.T, subject string, status auth.AuthStatus, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		TokenType:  "ACCESS",
		AuthStatus: status,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "vozcidada",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("teste"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func pairFor(t *testing.T, subject string, status auth.AuthStatus, roles ...string) auth.Pair {
	return auth.Pair{AccessToken: mint(t, subject, status, roles...), RefreshToken: "refresh-" + subject}
}

type account struct {
	password string
	pair     auth.Pair
}

type fakeBackend struct {
	accounts     map[string]*account
	google       map[string]auth.Pair
	usuarios     map[string]*backend.Usuario
	funcionarios map[string]*backend.Funcionario
	nextPair     auth.Pair
	statusPair   auth.Pair

	changePasswordErr error

	registerCalls     int
	loginCalls        int
	usuarioCalls      int
	createUsuario     []backend.Usuario
	createFuncionario []backend.Funcionario
	updateStatusCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts:     map[string]*account{},
		google:       map[string]auth.Pair{},
		usuarios:     map[string]*backend.Usuario{},
		funcionarios: map[string]*backend.Funcionario{},
	}
}

func subjectOf(token string) string {
	claims, err := auth.Decode(token, time.Now())
	if err != nil {
		return ""
	}
	return claims.Subject
}

func (f *fakeBackend) Login(ctx context.Context, creds backend.Credentials) (auth.Pair, error) {
	f.loginCalls++
	acc, ok := f.accounts[creds.Login]
	if !ok || acc.password != creds.Password {
		return auth.Pair{}, &backend.APIError{Status: http.StatusUnauthorized}
	}
	return acc.pair, nil
}

func (f *fakeBackend) Register(ctx context.Context, reg backend.Registration) error {
	f.registerCalls++
	if _, ok := f.accounts[reg.Login]; ok {
		return &backend.APIError{Status: http.StatusConflict}
	}
	f.accounts[reg.Login] = &account{password: reg.Password, pair: f.nextPair}
	return nil
}

func (f *fakeBackend) GoogleLogin(ctx context.Context, email string) (auth.Pair, error) {
	pair, ok := f.google[email]
	if !ok {
		return auth.Pair{}, &backend.APIError{Status: http.StatusInternalServerError}
	}
	return pair, nil
}

func (f *fakeBackend) ChangePassword(ctx context.Context, token string, change backend.PasswordChange) error {
	return f.changePasswordErr
}

func (f *fakeBackend) UpdateAuthStatus(ctx context.Context, token string) (auth.Pair, error) {
	f.updateStatusCalls++
	return f.statusPair, nil
}

func (f *fakeBackend) UsuarioByAuth(ctx context.Context, token, subject string) (*backend.Usuario, error) {
	f.usuarioCalls++
	u, ok := f.usuarios[subject]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound}
	}
	out := *u
	return &out, nil
}

func (f *fakeBackend) CreateUsuario(ctx context.Context, token string, u backend.Usuario) (*backend.Usuario, error) {
	f.createUsuario = append(f.createUsuario, u)
	u.ID = int64(len(f.createUsuario))
	f.usuarios[subjectOf(token)] = &u
	return &u, nil
}

func (f *fakeBackend) UpdateUsuario(ctx context.Context, token string, u backend.Usuario) (*backend.Usuario, error) {
	u.Nome = strings.ToUpper(u.Nome)
	f.usuarios[subjectOf(token)] = &u
	return &u, nil
}

func (f *fakeBackend) FuncionarioByAuth(ctx context.Context, token, subject string) (*backend.Funcionario, error) {
	fn, ok := f.funcionarios[subject]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound}
	}
	out := *fn
	return &out, nil
}

func (f *fakeBackend) CreateFuncionario(ctx context.Context, token string, fn backend.Funcionario) (*backend.Funcionario, error) {
	f.createFuncionario = append(f.createFuncionario, fn)
	fn.ID = int64(len(f.createFuncionario))
	f.funcionarios[fn.AuthID] = &fn
	return &fn, nil
}

type fakeAddress struct {
	known map[string]cep.Address
	calls int
	fail  error
}

func (f *fakeAddress) Lookup(ctx context.Context, raw string) (cep.Address, error) {
	f.calls++
	if f.fail != nil {
		return cep.Address{}, f.fail
	}
	digits, err := cep.Normalize(raw)
	if err != nil {
		return cep.Address{}, err
	}
	addr, ok := f.known[digits]
	if !ok {
		return cep.Address{}, cep.ErrNotFound
	}
	return addr, nil
}

type fakeGoogle map[string]oauth.Profile

func (f fakeGoogle) Profile(ctx context.Context, accessToken string) (oauth.Profile, error) {
	p, ok := f[accessToken]
	if !ok {
		return oauth.Profile{}, errors.New("token google inválido")
	}
	return p, nil
}

type memFlags struct {
	flags   prefs.Flags
	cleared int
}

func (m *memFlags) Load(ctx context.Context) (prefs.Flags, error) { return m.flags, nil }
func (m *memFlags) Save(ctx context.Context, flags prefs.Flags) error {
	m.flags = flags
	return nil
}
func (m *memFlags) Clear(ctx context.Context) error {
	m.flags = prefs.Flags{}
	m.cleared++
	return nil
}

type harness struct {
	backend  *fakeBackend
	address  *fakeAddress
	google   fakeGoogle
	flags    *memFlags
	recorder *httptest.ResponseRecorder
	jar      *auth.CookieJar
	provider *Provider
}

var se = cep.Address{CEP: "01001000", Logradouro: "Praça da Sé", Bairro: "Sé", Localidade: "São Paulo", UF: "SP"}

func newHarness(t *testing.T, accessToken string) *harness {
	t.Helper()
	h := &harness{
		backend:  newFakeBackend(),
		address:  &fakeAddress{known: map[string]cep.Address{"01001000": se}},
		google:   fakeGoogle{},
		flags:    &memFlags{},
		recorder: httptest.NewRecorder(),
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: accessToken})
		req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "refresh"})
	}
	h.jar = auth.NewCookieJar(h.recorder, req, auth.CookieOptions{})
	h.provider = NewProvider(h.backend, h.address, h.google)
	return h
}

func (h *harness) open() *Session {
	return h.provider.Open(context.Background(), h.jar, h.flags)
}

func TestBootstrapCompleteWithSignUpToken(t *testing.T) {
	h := newHarness(t, mint(t, "10", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["10"] = &backend.Usuario{ID: 1, Nome: "Ana"}

	snap := h.open().Snapshot()
	if snap.State != Complete || !snap.IsAuthenticated() || snap.Loading() {
		t.Fatalf("expected complete authenticated session, got %+v", snap)
	}
	if snap.Citizen == nil || snap.Citizen.Nome != "Ana" {
		t.Fatalf("expected citizen profile, got %+v", snap.Citizen)
	}
}

func TestBootstrapStaffFetchesFuncionario(t *testing.T) {
	h := newHarness(t, mint(t, "20", auth.AuthStatusSignUp, auth.RoleAgent))
	h.backend.funcionarios["20"] = &backend.Funcionario{ID: 3, Secretaria: "OBRAS"}

	snap := h.open().Snapshot()
	if snap.State != Complete || snap.Staff == nil || snap.Citizen != nil {
		t.Fatalf("expected staff profile, got %+v", snap)
	}
	if h.backend.usuarioCalls != 0 {
		t.Fatalf("citizen endpoint must not be called for staff")
	}
}

func TestBootstrapWithoutStatusFetchesProfile(t *testing.T) {
	h := newHarness(t, mint(t, "10", auth.AuthStatusNone, auth.RoleUser))
	h.backend.usuarios["10"] = &backend.Usuario{ID: 1}

	if snap := h.open().Snapshot(); snap.State != Complete {
		t.Fatalf("expected Complete, got %s", snap.State)
	}
}

func TestBootstrapUndecodableTokenIsAnonymous(t *testing.T) {
	expired := func() string {
		claims := auth.Claims{
			Roles: []string{auth.RoleUser},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("x"))
		return s
	}()
	for _, token := range []string{"lixo", "a.b.c", expired, mint(t, "1", auth.AuthStatusSignUp)} {
		h := newHarness(t, token)
		snap := h.open().Snapshot()
		if snap.State != Anonymous || snap.IsAuthenticated() || snap.Loading() {
			t.Fatalf("token %q: expected anonymous, got %+v", token, snap)
		}
		if h.backend.usuarioCalls != 0 {
			t.Fatalf("token %q: no profile fetch expected", token)
		}
	}
}

func TestBootstrapWithoutCookieIsAnonymous(t *testing.T) {
	h := newHarness(t, "")
	if snap := h.open().Snapshot(); snap.State != Anonymous || snap.Loading() {
		t.Fatalf("expected anonymous, got %+v", snap)
	}
}

func TestBootstrapIncompleteSkipsProfileFetch(t *testing.T) {
	h := newHarness(t, mint(t, "30", auth.AuthStatusSignIn, auth.RoleUser))
	snap := h.open().Snapshot()
	if snap.State != Incomplete || !snap.IsAuthenticated() {
		t.Fatalf("expected incomplete, got %+v", snap)
	}
	if h.backend.usuarioCalls != 0 {
		t.Fatalf("profile must not be fetched for SIGNIN tokens")
	}
}

func TestBootstrapProfileFailureDemotesToAnonymous(t *testing.T) {
	h := newHarness(t, mint(t, "40", auth.AuthStatusSignUp, auth.RoleUser))
	snap := h.open().Snapshot()
	if snap.State != Anonymous || !snap.Roles.Empty() || snap.Subject != "" {
		t.Fatalf("expected anonymous without roles, got %+v", snap)
	}
}

func TestBootstrapLoadsFlags(t *testing.T) {
	h := newHarness(t, "")
	h.flags.flags = prefs.Flags{IsGoogleUser: true, ProfilePictureURL: "http://img/a.png"}
	snap := h.open().Snapshot()
	if !snap.IsGoogleUser || snap.ProfilePictureURL != "http://img/a.png" {
		t.Fatalf("expected flags in snapshot, got %+v", snap)
	}
}

func TestSignInCitizen(t *testing.T) {
	h := newHarness(t, "")
	pair := pairFor(t, "10", auth.AuthStatusSignUp, auth.RoleUser)
	h.backend.accounts["ana@example.com"] = &account{password: "segredo1", pair: pair}
	h.backend.usuarios["10"] = &backend.Usuario{ID: 1, Nome: "Ana"}
	s := h.open()

	out, err := s.SignIn(context.Background(), SignInForm{Login: "Ana@Example.com ", Password: "segredo1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if out.Redirect != PathDashboard || out.NeedsRegistration {
		t.Fatalf("unexpected outcome %+v", out)
	}
	snap := s.Snapshot()
	if snap.State != Complete || !snap.IsAuthenticated() || snap.Loading() {
		t.Fatalf("expected complete session, got %+v", snap)
	}
	if got, _ := h.jar.Tokens(); got != pair {
		t.Fatalf("expected persisted pair, got %+v", got)
	}
	if s.AccessToken() != pair.AccessToken {
		t.Fatalf("AccessToken mismatch")
	}
}

func TestSignInElevatedLanding(t *testing.T) {
	h := newHarness(t, "")
	h.backend.accounts["chefe@example.com"] = &account{password: "segredo1", pair: pairFor(t, "50", auth.AuthStatusSignUp, auth.RoleAdmin)}
	h.backend.funcionarios["50"] = &backend.Funcionario{ID: 5}

	out, err := h.open().SignIn(context.Background(), SignInForm{Login: "chefe@example.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if out.Redirect != PathAdminDashboard {
		t.Fatalf("expected admin dashboard, got %q", out.Redirect)
	}
}

func TestLandingPath(t *testing.T) {
	cases := map[string]string{
		auth.RoleUser:  PathDashboard,
		auth.RoleAgent: PathDashboard,
		auth.RoleAdmin: PathAdminDashboard,
		auth.RoleOwner: PathAdminDashboard,
	}
	for role, want := range cases {
		if got := LandingPath(auth.NewRoleSet(role)); got != want {
			t.Errorf("LandingPath(%s) = %q, want %q", role, got, want)
		}
	}
}

func TestSignInIncompleteGoesToCompletion(t *testing.T) {
	cases := []struct {
		roles []string
		want  string
	}{
		{[]string{auth.RoleOwner}, PathOwnerSignUp},
		{[]string{auth.RoleUser}, PathOAuthSignUp},
	}
	for _, tc := range cases {
		h := newHarness(t, "")
		h.backend.accounts["x@example.com"] = &account{password: "segredo1", pair: pairFor(t, "60", auth.AuthStatusSignIn, tc.roles...)}
		s := h.open()

		out, err := s.SignIn(context.Background(), SignInForm{Login: "x@example.com", Password: "segredo1"})
		if err != nil {
			t.Fatalf("SignIn %v: %v", tc.roles, err)
		}
		if out.Redirect != tc.want {
			t.Fatalf("roles %v: expected %q, got %q", tc.roles, tc.want, out.Redirect)
		}
		if s.Snapshot().State != Incomplete {
			t.Fatalf("roles %v: expected Incomplete", tc.roles)
		}
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	h := newHarness(t, "")
	h.backend.accounts["ana@example.com"] = &account{password: "segredo1"}
	s := h.open()

	_, err := s.SignIn(context.Background(), SignInForm{Login: "ana@example.com", Password: "errada1"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if s.Snapshot().State != Anonymous {
		t.Fatalf("state must remain anonymous")
	}
	if _, ok := h.jar.Tokens(); ok {
		t.Fatalf("no tokens expected")
	}
}

func TestSignInValidationSkipsNetwork(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.open().SignIn(context.Background(), SignInForm{Login: "não-é-email", Password: "1"})
	if !util.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.backend.loginCalls != 0 {
		t.Fatalf("login must not be called")
	}
}

func validSignUp() SignUpForm {
	return SignUpForm{
		Email:           "novo@example.com",
		Password:        "segredo1",
		ConfirmPassword: "segredo1",
		Name:            "maria da silva",
		BirthDate:       "1990-05-10",
		CEP:             "01001-000",
		CPF:             "529.982.247-25",
	}
}

func TestSignUpUnknownCepRegistersNothing(t *testing.T) {
	h := newHarness(t, "")
	form := validSignUp()
	form.CEP = "99999-999"

	_, err := h.open().SignUp(context.Background(), form)
	if !errors.Is(err, ErrAddressLookup) {
		t.Fatalf("expected ErrAddressLookup, got %v", err)
	}
	if h.backend.registerCalls != 0 {
		t.Fatalf("expected 0 register calls, got %d", h.backend.registerCalls)
	}
}

func TestSignUpCepOutageIsNotAddressError(t *testing.T) {
	h := newHarness(t, "")
	h.address.fail = fmt.Errorf("%w: dial tcp 10.0.0.1:443: i/o timeout", cep.ErrTimeout)

	_, err := h.open().SignUp(context.Background(), validSignUp())
	if errors.Is(err, ErrAddressLookup) {
		t.Fatalf("outage must not be reported as unknown cep: %v", err)
	}
	if !errors.Is(err, cep.ErrTimeout) {
		t.Fatalf("expected cep.ErrTimeout, got %v", err)
	}
	if h.backend.registerCalls != 0 {
		t.Fatalf("expected 0 register calls, got %d", h.backend.registerCalls)
	}
}

func TestSignUpCreatesProfile(t *testing.T) {
	h := newHarness(t, "")
	h.backend.nextPair = pairFor(t, "70", auth.AuthStatusSignUp, auth.RoleUser)
	s := h.open()

	out, err := s.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if out.Redirect != PathDashboard {
		t.Fatalf("unexpected redirect %q", out.Redirect)
	}
	if len(h.backend.createUsuario) != 1 {
		t.Fatalf("expected one profile creation")
	}
	created := h.backend.createUsuario[0]
	if created.Nome != "Maria Da Silva" || created.CPF != "52998224725" || created.CEP != "01001000" {
		t.Fatalf("unexpected profile payload %+v", created)
	}
	if created.Cidade != "São Paulo" || created.Rua != "Praça da Sé" || created.UF != "SP" {
		t.Fatalf("address not taken from cep lookup: %+v", created)
	}
	if _, err := time.Parse(time.DateTime, created.DataCadastro); err != nil {
		t.Fatalf("unexpected dataCadastro %q", created.DataCadastro)
	}
	if snap := s.Snapshot(); snap.State != Complete || snap.Citizen == nil {
		t.Fatalf("expected complete session, got %+v", snap)
	}
}

func TestSignUpResumesAccountWithoutProfile(t *testing.T) {
	h := newHarness(t, "")
	h.backend.accounts["novo@example.com"] = &account{password: "segredo1", pair: pairFor(t, "80", auth.AuthStatusSignUp, auth.RoleUser)}

	out, err := h.open().SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if out.Redirect != PathDashboard || len(h.backend.createUsuario) != 1 {
		t.Fatalf("expected resumed signup, got %+v (%d creations)", out, len(h.backend.createUsuario))
	}
}

func TestSignUpExistingAccount(t *testing.T) {
	h := newHarness(t, "")
	h.backend.accounts["novo@example.com"] = &account{password: "segredo1", pair: pairFor(t, "81", auth.AuthStatusSignUp, auth.RoleUser)}
	h.backend.usuarios["81"] = &backend.Usuario{ID: 9}

	_, err := h.open().SignUp(context.Background(), validSignUp())
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if len(h.backend.createUsuario) != 0 {
		t.Fatalf("no profile creation expected")
	}

	h2 := newHarness(t, "")
	h2.backend.accounts["novo@example.com"] = &account{password: "outra-senha"}
	if _, err := h2.open().SignUp(context.Background(), validSignUp()); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists on wrong password, got %v", err)
	}
}

func TestOAuthSignInNewIdentity(t *testing.T) {
	h := newHarness(t, "")
	h.google["goog"] = oauth.Profile{Email: "ana@gmail.com", Picture: "http://img/ana.png"}
	h.backend.google["ana@gmail.com"] = pairFor(t, "90", auth.AuthStatusSignIn, auth.RoleUser)
	s := h.open()

	out, err := s.OAuthSignIn(context.Background(), "goog")
	if err != nil {
		t.Fatalf("OAuthSignIn: %v", err)
	}
	if !out.NeedsRegistration || out.Redirect == PathDashboard {
		t.Fatalf("expected needsRegistration without dashboard, got %+v", out)
	}
	if !h.flags.flags.IsGoogleUser || h.flags.flags.ProfilePictureURL != "http://img/ana.png" {
		t.Fatalf("expected google flags, got %+v", h.flags.flags)
	}
	if h.jar.AuthType() != auth.AuthTypeOAuth {
		t.Fatalf("expected OAuth auth type")
	}
	snap := s.Snapshot()
	if snap.State != Incomplete || !snap.OAuth {
		t.Fatalf("expected incomplete oauth session, got %+v", snap)
	}
}

func TestOAuthSignInExistingIdentity(t *testing.T) {
	h := newHarness(t, "")
	h.google["goog"] = oauth.Profile{Email: "ana@gmail.com"}
	h.backend.google["ana@gmail.com"] = pairFor(t, "91", auth.AuthStatusSignUp, auth.RoleUser)
	h.backend.usuarios["91"] = &backend.Usuario{ID: 1}

	out, err := h.open().OAuthSignIn(context.Background(), "goog")
	if err != nil {
		t.Fatalf("OAuthSignIn: %v", err)
	}
	if out.NeedsRegistration || out.Redirect != PathDashboard {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestOAuthSignInFailureIsReturned(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.open().OAuthSignIn(context.Background(), "desconhecido"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOAuthSignUpCompletesRegistration(t *testing.T) {
	h := newHarness(t, mint(t, "92", auth.AuthStatusSignIn, auth.RoleUser))
	h.backend.statusPair = pairFor(t, "92", auth.AuthStatusSignUp, auth.RoleUser)
	s := h.open()

	out, err := s.OAuthSignUp(context.Background(), ProfileForm{Name: "joão", BirthDate: "1980-01-01", CEP: "01001000", CPF: "52998224725"})
	if err != nil {
		t.Fatalf("OAuthSignUp: %v", err)
	}
	if out.Redirect != PathDashboard {
		t.Fatalf("unexpected redirect %q", out.Redirect)
	}
	if h.backend.updateStatusCalls != 1 {
		t.Fatalf("expected updateAuthStatus call")
	}
	snap := s.Snapshot()
	if snap.State != Complete || snap.AuthStatus != auth.AuthStatusSignUp || snap.Citizen == nil {
		t.Fatalf("expected complete session, got %+v", snap)
	}
	if got, _ := h.jar.Tokens(); got != h.backend.statusPair {
		t.Fatalf("expected reissued pair to be persisted")
	}
	if !h.flags.flags.IsGoogleUser {
		t.Fatalf("expected google user flag")
	}
}

func TestOAuthSignUpRequiresIncomplete(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.open().OAuthSignUp(context.Background(), ProfileForm{Name: "João", BirthDate: "1980-01-01", CEP: "01001000", CPF: "52998224725"})
	if !errors.Is(err, ErrNotIncomplete) {
		t.Fatalf("expected ErrNotIncomplete, got %v", err)
	}
	if h.address.calls != 0 {
		t.Fatalf("cep lookup must not run")
	}
}

func TestOwnerSignUp(t *testing.T) {
	h := newHarness(t, mint(t, "93", auth.AuthStatusSignIn, auth.RoleOwner))
	h.backend.statusPair = pairFor(t, "93", auth.AuthStatusSignUp, auth.RoleOwner)
	s := h.open()

	out, err := s.OwnerSignUp(context.Background(), OwnerForm{Cargo: "prefeito municipal", CPF: "529.982.247-25"})
	if err != nil {
		t.Fatalf("OwnerSignUp: %v", err)
	}
	if out.Redirect != PathAdminDashboard {
		t.Fatalf("unexpected redirect %q", out.Redirect)
	}
	created := h.backend.createFuncionario[0]
	if created.AuthID != "93" || created.Cargo != "Prefeito Municipal" || created.CPF != "52998224725" {
		t.Fatalf("unexpected funcionario payload %+v", created)
	}
	if snap := s.Snapshot(); snap.State != Complete || snap.Staff == nil {
		t.Fatalf("expected complete staff session, got %+v", snap)
	}
}

func TestOwnerSignUpRejectsCitizen(t *testing.T) {
	h := newHarness(t, mint(t, "94", auth.AuthStatusSignIn, auth.RoleUser))
	_, err := h.open().OwnerSignUp(context.Background(), OwnerForm{Cargo: "Prefeito", CPF: "52998224725"})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestUpdateCepReplacesProfileWithServerCopy(t *testing.T) {
	h := newHarness(t, mint(t, "95", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["95"] = &backend.Usuario{ID: 1, Nome: "Ana", CEP: "20000000", Cidade: "Rio"}
	s := h.open()

	updated, err := s.UpdateCep(context.Background(), UpdateCepForm{CEP: "01001-000"})
	if err != nil {
		t.Fatalf("UpdateCep: %v", err)
	}
	if updated.Cidade != "São Paulo" || updated.CEP != "01001000" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if got := s.Snapshot().Citizen; got.Nome != "ANA" {
		t.Fatalf("expected server representation, got %+v", got)
	}
}

func TestUpdateCepUnknown(t *testing.T) {
	h := newHarness(t, mint(t, "96", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["96"] = &backend.Usuario{ID: 1, CEP: "01001000"}
	_, err := h.open().UpdateCep(context.Background(), UpdateCepForm{CEP: "99999999"})
	if !errors.Is(err, ErrAddressLookup) {
		t.Fatalf("expected ErrAddressLookup, got %v", err)
	}
}

func TestUpdateInfoKeepsBlankFields(t *testing.T) {
	h := newHarness(t, mint(t, "97", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["97"] = &backend.Usuario{ID: 1, Nome: "Ana", DataNascimento: "1990-01-01", CEP: "01001000"}
	s := h.open()

	updated, err := s.UpdateInfo(context.Background(), UpdateInfoForm{BirthDate: "1991-02-02"})
	if err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}
	if updated.DataNascimento != "1991-02-02" || updated.Nome != "ANA" || updated.Rua != "Praça da Sé" {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestChangePasswordError(t *testing.T) {
	h := newHarness(t, mint(t, "98", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["98"] = &backend.Usuario{ID: 1}
	h.backend.changePasswordErr = &backend.APIError{Status: http.StatusBadRequest, Message: "senha atual incorreta"}

	err := h.open().ChangePassword(context.Background(), ChangePasswordForm{CurrentPassword: "a", NewPassword: "novasenha", Confirm: "novasenha"})
	if !errors.Is(err, ErrPasswordChange) {
		t.Fatalf("expected ErrPasswordChange, got %v", err)
	}
}

func TestChangePasswordMismatch(t *testing.T) {
	h := newHarness(t, "")
	err := h.open().ChangePassword(context.Background(), ChangePasswordForm{CurrentPassword: "a", NewPassword: "novasenha", Confirm: "outra"})
	if !util.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	h := newHarness(t, mint(t, "99", auth.AuthStatusSignUp, auth.RoleUser))
	h.backend.usuarios["99"] = &backend.Usuario{ID: 1}
	h.flags.flags = prefs.Flags{IsGoogleUser: true}
	s := h.open()

	out := s.SignOut(context.Background())
	if out.Redirect != PathSignIn {
		t.Fatalf("unexpected redirect %q", out.Redirect)
	}
	once := s.Snapshot()
	s.SignOut(context.Background())
	twice := s.Snapshot()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("signOut not idempotent: %+v vs %+v", once, twice)
	}
	if once.State != Anonymous || once.Citizen != nil || !once.Roles.Empty() || once.IsGoogleUser {
		t.Fatalf("unexpected state after signOut %+v", once)
	}
	if _, ok := h.jar.Tokens(); ok {
		t.Fatalf("tokens must be cleared")
	}
	expired := 0
	for _, line := range h.recorder.Header().Values("Set-Cookie") {
		if strings.Contains(line, "Max-Age=0") {
			expired++
		}
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired cookies, got %d", expired)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Bootstrapping: "BOOTSTRAPPING", Anonymous: "ANONYMOUS", Incomplete: "INCOMPLETE", Complete: "COMPLETE"} {
		if got := fmt.Sprint(state); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}
