package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"shreelaxmi/site/internal/cache"
	"shreelaxmi/site/internal/config"
	"shreelaxmi/site/internal/database"
	"shreelaxmi/site/internal/log"
	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/queue"
	"shreelaxmi/site/internal/repository"
	"shreelaxmi/site/internal/service"
	"shreelaxmi/site/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	contacts := service.NewContactService(
		repository.NewContactRepository(dbPool),
		nil,
		metrics.Nop{},
		cfg.Contacts.Retention,
		cfg.Security.StoreTimeout,
		logger,
	)

	processor := tasks.NewProcessor(contacts, metrics.Nop{}, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
