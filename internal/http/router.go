package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/config"
	httpmiddleware "github.com/vozcidada/gateway/internal/http/middleware"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/push"
	"github.com/vozcidada/gateway/internal/session"
	"github.com/vozcidada/gateway/internal/staff"
)

type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps são os serviços montados em main.
type Deps struct {
	Redis    pinger
	Sessions *session.Provider
	Flags    *prefs.Store
	Google   *oauth.Google
	Chamados *chamado.Service
	Staff    *staff.Service
	Push     *push.Registrar
}

type Handler struct {
	cfg           *config.Config
	redis         pinger
	sessions      *session.Provider
	flags         *prefs.Store
	google        *oauth.Google
	chamados      *chamado.Service
	staff         *staff.Service
	push          *push.Registrar
	cookies       auth.CookieOptions
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) (http.Handler, error) {
	if deps.Redis == nil || deps.Sessions == nil || deps.Flags == nil || deps.Google == nil {
		return nil, errors.New("router: dependências de sessão ausentes")
	}
	if deps.Chamados == nil || deps.Staff == nil || deps.Push == nil {
		return nil, errors.New("router: serviços de domínio ausentes")
	}

	cookies := auth.CookieOptions{Domain: cfg.CookieDomain, Secure: true, SameSite: http.SameSiteNoneMode}
	if cfg.DevCookies() {
		cookies.Secure = false
		cookies.SameSite = http.SameSiteLaxMode
	}

	h := &Handler{
		cfg:           cfg,
		redis:         deps.Redis,
		sessions:      deps.Sessions,
		flags:         deps.Flags,
		google:        deps.Google,
		chamados:      deps.Chamados,
		staff:         deps.Staff,
		push:          deps.Push,
		cookies:       cookies,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
	})

	r.Group(func(app chi.Router) {
		app.Use(httpmiddleware.IPRateLimit(h.authLimiter))
		app.Use(httpmiddleware.Session(h.sessions, h.flags, h.cookies))
		app.Use(httpmiddleware.SessionRateLimit(h.authLimiter))

		app.Route("/session", func(s chi.Router) {
			s.Get("/", h.GetSession)
			s.Group(func(writes chi.Router) {
				writes.Use(httpmiddleware.IPRateLimit(h.publicLimiter))
				writes.Post("/signin", h.SignIn)
				writes.Post("/signup", h.SignUp)
				writes.Post("/oauth/google", h.OAuthSignIn)
				writes.Get("/oauth/google/start", h.OAuthStart)
				writes.Get("/oauth/google/callback", h.OAuthCallback)
			})
			s.Post("/oauth/signup", h.OAuthSignUp)
			s.Post("/owner/signup", h.OwnerSignUp)
			s.Post("/signout", h.SignOut)
			s.Patch("/cep", h.UpdateCep)
			s.Patch("/info", h.UpdateInfo)
			s.Patch("/password", h.ChangePassword)
		})

		app.Group(func(pages chi.Router) {
			pages.Use(httpmiddleware.Guard(httpmiddleware.PublicPage))
			pages.Get("/signin", h.Page("signin"))
			pages.Get("/signup", h.Page("signup"))
		})
		app.Group(func(pages chi.Router) {
			pages.Use(httpmiddleware.Guard(httpmiddleware.CompletionPage))
			pages.Get(session.PathOAuthSignUp, h.Page("signup-oauth"))
			pages.Get(session.PathOwnerSignUp, h.Page("signup-owner"))
		})
		app.Group(func(pages chi.Router) {
			pages.Use(httpmiddleware.Guard(httpmiddleware.PrivatePage("")))
			pages.Get(session.PathDashboard, h.DashboardPage)
			pages.Get("/home", h.Page("home"))
			pages.Get("/about", h.Page("about"))
			pages.Get("/contact", h.Page("contact"))
			pages.Get("/abrir-chamado", h.OpenChamadoPage)
			pages.Get("/redefinir-senha", h.Page("redefinir-senha"))
			pages.Get("/conta", h.Page("conta"))
		})
		app.Group(func(pages chi.Router) {
			pages.Use(httpmiddleware.Guard(httpmiddleware.PrivatePage(auth.RoleAdmin)))
			pages.Get(session.PathAdminDashboard, h.AdminDashboardPage)
		})

		app.Route("/api", func(api chi.Router) {
			api.Use(httpmiddleware.RequireComplete)

			api.Route("/chamados", func(c chi.Router) {
				c.Get("/", h.ListChamados)
				c.Post("/", h.OpenChamado)
				c.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Get("/contagem", h.CountChamados)
				c.Get("/{id}", h.GetChamado)
				c.Patch("/{id}/status", h.ChangeChamadoStatus)
				c.Patch("/{id}/secretaria", h.ReassignChamado)
				c.Post("/{id}/avaliacao", h.RateChamado)
				c.Delete("/{id}", h.DeleteChamado)
			})
			api.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Get("/avaliacoes", h.ListAvaliacoes)
			api.Route("/funcionarios", func(f chi.Router) {
				f.Use(httpmiddleware.RequireRole(auth.RoleAdmin))
				f.Get("/", h.ListFuncionarios)
				f.Post("/", h.CreateFuncionario)
				f.Delete("/{id}", h.DeleteFuncionario)
			})
			api.Post("/push/token", h.RegisterPushToken)
			api.Get("/uploads/{filename}", h.GetUpload)
		})

		app.Get("/", redirectTo(session.PathDashboard))
		app.NotFound(h.NotFound)
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida a conexão com o Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"redis": err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// NotFound devolve 404 em /api e leva o resto ao painel.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "rota não encontrada", nil)
		return
	}
	redirectTo(session.PathDashboard)(w, r)
}

func redirectTo(location string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", location)
		WriteJSON(w, http.StatusFound, map[string]string{"redirect": location})
	}
}
