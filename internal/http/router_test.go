package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/config"
	httpmiddleware "github.com/vozcidada/gateway/internal/http/middleware"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/push"
	"github.com/vozcidada/gateway/internal/session"
	"github.com/vozcidada/gateway/internal/staff"
)

type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}}
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if v, ok := m.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *memRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (m *memRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func mint(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		TokenType:  "ACCESS",
		AuthStatus: auth.AuthStatusSignUp,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("teste"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

type testBackend struct {
	*httptest.Server
	access         string
	profileFetches atomic.Int64
}

// fakeBackend atende o mínimo de rotas para um cidadão entrar e ver o painel.
func fakeBackend(t *testing.T) *testBackend {
	t.Helper()
	tb := &testBackend{access: mint(t, "auth-1", auth.RoleUser)}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds backend.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Login != "maria@example.com" || creds.Password != "segredo1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(auth.Pair{AccessToken: tb.access, RefreshToken: "refresh-1"})
	})
	mux.HandleFunc("/api/usuario/auth/auth-1", func(w http.ResponseWriter, r *http.Request) {
		tb.profileFetches.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+tb.access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(backend.Usuario{ID: 1, AuthUserID: 10, Nome: "Maria Silva", CPF: "52998224725"})
	})
	mux.HandleFunc("/api/chamado/user/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_embedded":{"chamadoList":[{"id":5,"usuarioId":1,"titulo":"Buraco","status":"PENDENTE"}]},"page":{"size":10,"totalElements":1,"totalPages":1,"number":0}}`))
	})
	tb.Server = httptest.NewServer(mux)
	t.Cleanup(tb.Close)
	return tb
}

var generousLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newLimitedRouter(t, generousLimit)
	return h
}

func newLimitedRouter(t *testing.T, appLimit config.RateLimitConfig) (http.Handler, *testBackend) {
	t.Helper()
	srv := fakeBackend(t)
	api, err := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	store := newMemRedis()
	google := oauth.NewGoogle(oauth.Config{}, store)

	cfg := &config.Config{
		AllowOrigins:    []string{"http://localhost:5173"},
		RateLimitPublic: generousLimit,
		RateLimitAuth:   appLimit,
	}
	handler, err := NewRouter(cfg, Deps{
		Redis:    store,
		Sessions: session.NewProvider(api, cep.New(cep.Config{BaseURL: srv.URL}, nil), google),
		Flags:    prefs.NewStore(store, time.Hour),
		Google:   google,
		Chamados: chamado.NewService(api, nil, nil),
		Staff:    staff.NewService(api),
		Push:     push.NewRegistrar(api),
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return handler, srv
}

func serve(h http.Handler, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (map[string]any, map[string]any) {
	t.Helper()
	var env struct {
		Data  map[string]any `json:"data"`
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Data, env.Error
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = serve(h, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rec.Code)
	}
}

func TestAnonymousPrivatePageRedirectsToSignIn(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/dashboard", "", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != session.PathSignIn {
		t.Fatalf("expected redirect to signin, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpmiddleware.ClientCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected client id cookie")
	}
}

func TestAnonymousPublicPageRenders(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/signin", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ := decodeEnvelope(t, rec)
	if data["page"] != "signin" {
		t.Fatalf("unexpected page %v", data["page"])
	}
}

func TestAPIRequiresSession(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/api/chamados", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	_, apiErr := decodeEnvelope(t, rec)
	if apiErr["code"] != "AUTH" {
		t.Fatalf("unexpected error %v", apiErr)
	}
}

func TestUnknownPathRedirectsToDashboard(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/qualquer/coisa", "", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != session.PathDashboard {
		t.Fatalf("expected redirect to dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = serve(h, http.MethodGet, "/api/nada", "", nil)
	if rec.Code == http.StatusFound {
		t.Fatalf("api paths must not redirect")
	}
}

func TestSignInValidation(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodPost, "/session/signin", `{"login":"nao-e-email","password":"1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	_, apiErr := decodeEnvelope(t, rec)
	details, _ := apiErr["details"].(map[string]any)
	if apiErr["code"] != "VALIDATION" || details["login"] == nil || details["password"] == nil {
		t.Fatalf("unexpected error %v", apiErr)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodPost, "/session/signin", `{"login":"maria@example.com","password":"errada1"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.AccessCookieName {
			t.Fatalf("no token cookie expected on failure")
		}
	}
}

func TestSignInThenDashboard(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodPost, "/session/signin", `{"login":"Maria@Example.com","password":"segredo1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	if data["redirect"] != session.PathDashboard || data["needsRegistration"] != false {
		t.Fatalf("unexpected outcome %v", data)
	}
	cookies := rec.Result().Cookies()

	rec = serve(h, http.MethodGet, "/signin", "", cookies)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != session.PathDashboard {
		t.Fatalf("signed in user should leave signin, got %d", rec.Code)
	}

	rec = serve(h, http.MethodGet, "/dashboard", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ = decodeEnvelope(t, rec)
	sess, _ := data["session"].(map[string]any)
	if sess["state"] != "COMPLETE" {
		t.Fatalf("unexpected session %v", sess)
	}
	payload, _ := data["data"].(map[string]any)
	page, _ := payload["chamados"].(map[string]any)
	items, _ := page["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one ticket, got %v", page)
	}

	rec = serve(h, http.MethodGet, "/admin/dashboard", "", cookies)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != session.PathDashboard {
		t.Fatalf("citizen must be sent back to dashboard, got %d", rec.Code)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	h := newTestRouter(t)
	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodPost, "/session/signout", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		data, _ := decodeEnvelope(t, rec)
		if data["redirect"] != session.PathSignIn {
			t.Fatalf("unexpected outcome %v", data)
		}
	}
}

func TestOAuthStartWithoutSecret(t *testing.T) {
	h := newTestRouter(t)
	rec := serve(h, http.MethodGet, "/session/oauth/google/start", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without client secret, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/session/signin", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected preflight %d %v", rec.Code, rec.Header())
	}
}

func TestThrottledRequestsSkipBootstrap(t *testing.T) {
	h, srv := newLimitedRouter(t, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	cookies := []*http.Cookie{
		{Name: auth.AccessCookieName, Value: srv.access},
		{Name: auth.RefreshCookieName, Value: "refresh-1"},
	}

	limited := 0
	for i := 0; i < 10; i++ {
		rec := serve(h, http.MethodGet, "/session", "", cookies)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 9 {
		t.Fatalf("expected 9 throttled requests, got %d", limited)
	}
	if got := srv.profileFetches.Load(); got != 1 {
		t.Fatalf("expected 1 profile fetch, got %d", got)
	}
}

func TestAnonymousRequestsAreThrottledByIP(t *testing.T) {
	h, _ := newLimitedRouter(t, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	limited := 0
	for i := 0; i < 10; i++ {
		rec := serve(h, http.MethodGet, "/dashboard", "", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 9 {
		t.Fatalf("expected 9 throttled requests, got %d", limited)
	}
}

func TestRatingsRequireAdmin(t *testing.T) {
	h, srv := newLimitedRouter(t, generousLimit)
	cookies := []*http.Cookie{
		{Name: auth.AccessCookieName, Value: srv.access},
		{Name: auth.RefreshCookieName, Value: "refresh-1"},
	}
	rec := serve(h, http.MethodGet, "/api/avaliacoes", "", cookies)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
