package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/config"
	internalhttp "github.com/vozcidada/gateway/internal/http"
	"github.com/vozcidada/gateway/internal/monitor"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/prefs"
	"github.com/vozcidada/gateway/internal/push"
	"github.com/vozcidada/gateway/internal/session"
	"github.com/vozcidada/gateway/internal/staff"
	"github.com/vozcidada/gateway/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway encerrado com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var alerts monitor.Notifier
	if notifier := monitor.NewWebhookNotifier(cfg.AlertWebhookURL); notifier != nil {
		alerts = notifier
	}
	watcher := monitor.NewBreakerWatcher(alerts, log.Logger)

	api, err := backend.New(backend.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		OnStateChange: watcher.OnStateChange,
	})
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	address := cep.New(cep.Config{BaseURL: cfg.ViaCEPURL, CacheTTL: cfg.CEPCacheTTL, Timeout: cfg.BackendTimeout}, redisClient)
	google := oauth.NewGoogle(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UserInfoURL:  cfg.GoogleUserInfoURL,
	}, redisClient)
	if !google.CodeFlowEnabled() {
		log.Info().Msg("fluxo google por código desligado; apenas access token do frontend")
	}

	var uploader storage.Uploader = storage.NoopUploader{}
	if cfg.UploadsEnabled {
		uploader = storage.NewBackendUploader(api)
	} else {
		log.Warn().Msg("envio de fotos desligado")
	}

	handler, err := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Redis:    redisClient,
		Sessions: session.NewProvider(api, address, google),
		Flags:    prefs.NewStore(redisClient, cfg.FlagsTTL),
		Google:   google,
		Chamados: chamado.NewService(api, uploader, push.NewBackendNotifier(api)),
		Staff:    staff.NewService(api),
		Push:     push.NewRegistrar(api),
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("backend", cfg.BackendURL).Msgf("gateway ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
