package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-console/internal/api/http"
	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/gateway"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/persistence"
	"github.com/spec-kit/helpdesk-console/internal/service"
	"github.com/spec-kit/helpdesk-console/internal/session"
	"github.com/spec-kit/helpdesk-console/internal/validation"
	"github.com/spec-kit/helpdesk-console/internal/worker"
)

const sweepInterval = time.Minute

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := observability.NewLogger(a.cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return serve(cmd.Context(), a.cfg, logger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	deps := service.ConsoleDependencies{
		Config:     *cfg,
		Logger:     logger,
		Metrics:    metrics,
		Dispatcher: dispatcher,
		Validator:  validation.New(cfg.Forms.MaxImageBytes),
	}

	// The server keeps one session record per browser, so it defaults to memory.
	var (
		redis    *persistence.Redis
		postgres *persistence.Postgres
		backends service.BackendFactory
	)
	switch cfg.Session.SessionBackendOr(config.SessionBackendMemory) {
	case config.SessionBackendPostgres:
		var err error
		postgres, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer postgres.Close()
		backends = func(id string) session.Backend {
			return session.NewPostgresBackend(postgres, cfg.Session.Key, id, cfg.Session.TTL())
		}
		worker.StartSessionPurger(ctx, session.NewSessionPurger(postgres), sweepInterval, logger)
	case config.SessionBackendRedis:
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		backends = func(id string) session.Backend {
			return session.NewRedisBackend(redis, cfg.Session.Key, id, cfg.Session.TTL())
		}
	case config.SessionBackendFile:
		logger.Warn("file sessions are per-process; browser sessions are kept in memory")
		fallthrough
	default:
		backends = func(string) session.Backend { return session.NewMemoryBackend() }
	}

	registry := service.NewRegistry(deps, backends, cfg.Session.TTL())
	worker.StartConsoleSweeper(ctx, registry, sweepInterval, logger)

	probe := gateway.New(gateway.Options{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Timeout:   cfg.Backend.Timeout(),
		Logger:    logger,
	}, nil)
	readiness := map[string]handlers.Pinger{"helpdesk_api": probe}
	if redis != nil {
		readiness["redis"] = redis
	}
	if postgres != nil {
		readiness["postgres"] = postgres
	}

	app := httptransport.NewApp(httptransport.AppConfig{
		Name:           cfg.App.Name,
		Logger:         logger,
		RequestTimeout: cfg.App.RequestTimeout(),
		BodyLimit:      int(deps.Validator.MaxImageBytes()) + 1<<20,
	}, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:    handlers.NewAuthHandler(),
		Tickets: handlers.NewTicketsHandler(deps.Validator.MaxImageBytes()),
		Admin:   handlers.NewAdminHandler(),
		SessionMiddleware: auth.NewSessionMiddleware(registry, auth.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.App.Env == "production",
			TTL:    cfg.Session.TTL(),
		}, logger),
		Metrics: metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("backend", cfg.Backend.BaseURL))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}
