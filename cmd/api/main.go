package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-engine/internal/api/http"
	"github.com/spec-kit/auth-engine/internal/api/http/handlers"
	"github.com/spec-kit/auth-engine/internal/auth"
	"github.com/spec-kit/auth-engine/internal/config"
	"github.com/spec-kit/auth-engine/internal/events"
	"github.com/spec-kit/auth-engine/internal/observability"
	"github.com/spec-kit/auth-engine/internal/persistence"
	"github.com/spec-kit/auth-engine/internal/repository"
	"github.com/spec-kit/auth-engine/internal/service"
	"github.com/spec-kit/auth-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open credential directory", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, os.DirFS(persistence.MigrationsDir), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger), logger)

	hasher, err := auth.NewHasher(cfg.Auth.CostParams(), cfg.Auth.MaxMemoryKB())
	if err != nil {
		logger.Fatal("invalid password hashing parameters", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration())

	credentials := repository.NewCachedCredentialRepository(
		repository.NewCredentialRepository(pg.Pool),
		redis.Client,
		cfg.Cache.CredentialTTL(),
		logger,
	)

	authService := service.NewAuthService(service.AuthDependencies{
		Credentials:         credentials,
		Verifier:            hasher,
		Tokens:              tokens,
		MaxConcurrentHashes: cfg.Auth.MaxConcurrentHashes,
		Dispatcher:          dispatcher,
		Recorder:            metrics,
		Logger:              logger,
	})
	gate := auth.NewAuthorizationGate(tokens, service.NewRejectionPublisher(dispatcher, metrics))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		dependencies["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:    handlers.NewAuthHandler(authService),
		Session: handlers.NewSessionHandler(),
		Gate:    gate,
		Metrics: adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	logger.Info("starting auth engine",
		zap.String("addr", cfg.App.Addr()),
		zap.Duration("token_duration", tokens.TTL()),
		zap.Uint32("argon2_memory_kb", hasher.Params().MemoryKB),
		zap.Uint32("argon2_iterations", hasher.Params().Iterations))

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
