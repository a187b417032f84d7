package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/request-service/internal/api/http"
	"github.com/spec-kit/request-service/internal/api/http/handlers"
	"github.com/spec-kit/request-service/internal/auth"
	"github.com/spec-kit/request-service/internal/config"
	"github.com/spec-kit/request-service/internal/eventlog"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/observability"
	"github.com/spec-kit/request-service/internal/persistence"
	"github.com/spec-kit/request-service/internal/repository"
	"github.com/spec-kit/request-service/internal/service"
	"github.com/spec-kit/request-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	sinks := eventlog.Multi{eventlog.NewZapLog(logger), auditRepo}
	var revocations auth.RevocationStore = auth.NoopRevocations{}
	if redis.Enabled() {
		sinks = append(sinks, eventlog.NewRedisStream(redis.Client, cfg.Audit.Stream, cfg.Audit.MaxLen))
		revocations = auth.NewRedisRevocations(redis.Client)
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, sinks, auditRepo, logger)
	worker.StartAuditWorker(auditService, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authenticator := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Tokens:      tokens,
		Users:       userRepo,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		CookieName:  cfg.Auth.CookieName,
		Logger:      logger,
	})
	gate := auth.NewGate(dispatcher)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    userRepo,
		Tokens:      tokens,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	userService := service.NewUserService(cfg.Auth, userRepo, dispatcher)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: requestRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Policy:      cfg.Requests,
	})

	seeded, err := authService.EnsureAdmin(ctx, cfg.Seed)
	if err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}
	if seeded {
		logger.Info("default admin created", zap.String("email", cfg.Seed.AdminEmail))
	}

	metrics := observability.NewMetrics()
	dependencies := []handlers.Dependency{{Name: "postgres", Pinger: pg}}
	if redis.Enabled() {
		dependencies = append(dependencies, handlers.Dependency{Name: "redis", Pinger: redis})
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, dependencies...),
		Auth:          handlers.NewAuthHandler(authService, cfg.Auth),
		Users:         handlers.NewUsersHandler(userService),
		Requests:      handlers.NewRequestsHandler(requestService, auditService),
		Authenticator: authenticator,
		Gate:          gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
