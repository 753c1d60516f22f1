package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/cache"
	"shreelaxmi/site/internal/config"
	"shreelaxmi/site/internal/database"
	"shreelaxmi/site/internal/handlers"
	"shreelaxmi/site/internal/jobs"
	"shreelaxmi/site/internal/log"
	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/oauth"
	"shreelaxmi/site/internal/queue"
	"shreelaxmi/site/internal/repository"
	"shreelaxmi/site/internal/security"
	"shreelaxmi/site/internal/server"
	"shreelaxmi/site/internal/service"
	"shreelaxmi/site/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(cfg.Postgres.DSN); err != nil {
			logger.Fatal().Err(err).Msg("database migration failed")
		}
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var photos service.PhotoStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure photo bucket failed")
		}
		photos = objectStore
	} else {
		logger.Warn().Msg("storage.endpoint not set; team photo uploads disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	issuer, err := security.NewTokenIssuer(cfg.Security.TokenSecret, cfg.Security.TokenIssuer, cfg.Security.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("token issuer")
	}

	producer := queue.NewProducer(redisClient, cfg.Worker.Stream)

	authService := service.NewAuthService(repository.NewIdentityRepository(dbPool), issuer, recorder, cfg.Security, logger)
	teamService := service.NewTeamService(repository.NewTeamRepository(dbPool), photos, cfg.Storage.MaxPhotoSize, cfg.Security.StoreTimeout, logger)
	contactService := service.NewContactService(
		repository.NewContactRepository(dbPool),
		producer,
		recorder,
		cfg.Contacts.Retention,
		cfg.Security.StoreTimeout,
		logger,
	)

	if cfg.Admin.Email != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			logger.Fatal().Err(err).Msg("bootstrap admin failed")
		}
		if created {
			logger.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
		}
	}

	deps := handlers.Deps{
		Auth:     authService,
		Team:     teamService,
		Contacts: contactService,
		States:   cache.NewStateStore(redisClient, cfg.Auth.StateTTL),
		Limiter:  cache.NewRateLimiter(redisClient),
		Checks: []handlers.HealthCheck{
			{Name: "database", Ping: dbPool.Ping},
			{Name: "cache", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		Gatherer: registry,
	}
	if cfg.Google.Enabled() {
		google, err := oauth.NewGoogle(ctx, cfg.Google)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sign-in setup failed")
		}
		deps.Google = google
	} else {
		logger.Info().Msg("google sign-in not configured")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, deps)
	httpServer := server.NewHTTPServer(cfg, logger, recorder, handlerSet)

	scheduler := jobs.NewScheduler(producer, cfg.Contacts.PurgeSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop(shutdownCtx)

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
