// File: cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"telegram-resume-board/internal/config"
	"telegram-resume-board/internal/domain/ports/adapter"
	tele "telegram-resume-board/internal/infra/adapters/telegram"
	pg "telegram-resume-board/internal/infra/db/postgres"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/metrics"
	red "telegram-resume-board/internal/infra/redis"
	"telegram-resume-board/internal/infra/sched"
	"telegram-resume-board/internal/usecase"
)

// Worker consumes queued tasks (check_expired) published by the app in queue mode.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	var messenger adapter.Messenger
	if cfg.Runtime.Dev {
		messenger = tele.NewNoopMessenger(logger)
	} else {
		bot, err := tele.NewBotClient(cfg.Bot.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		messenger = tele.NewBotMessenger(bot, logger)
	}
	messenger = tele.NewThrottledMessenger(messenger, cfg.Messenger)

	draftCache := red.NewDraftCache(redisClient, cfg.Redis.TTL)
	drafts := pg.NewDraftRepoCacheDecorator(pg.NewDraftRepo(pool), draftCache, logger)
	expiryUC := usecase.NewExpiryUseCase(drafts, draftCache, messenger, usecase.ExpiryPolicy{
		ChatID:      cfg.Chat.ID,
		Lifetime:    cfg.Publish.Lifetime,
		Concurrency: int(cfg.Messenger.MaxInFlight),
	}, logger)

	queue := red.NewTaskQueue(redisClient, cfg.Scheduler.QueueKey)
	consumer := sched.NewTaskConsumer(queue, expiryUC, sched.RealClock, logger)

	logger.Info().Str("queue", cfg.Scheduler.QueueKey).Msg("worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped with error")
	}
	logger.Info().Msg("worker stopped")
}
