// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telegram-resume-board/internal/application"
	"telegram-resume-board/internal/config"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/domain/ports/repository"
	payAdapters "telegram-resume-board/internal/infra/adapters/payment"
	tele "telegram-resume-board/internal/infra/adapters/telegram"
	pg "telegram-resume-board/internal/infra/db/postgres"
	"telegram-resume-board/internal/infra/i18n"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/metrics"
	red "telegram-resume-board/internal/infra/redis"
	"telegram-resume-board/internal/infra/sched"
	"telegram-resume-board/internal/infra/web"
	"telegram-resume-board/internal/infra/worker"
	"telegram-resume-board/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] chat posts and payments are simulated")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("app stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	draftCache := red.NewDraftCache(redisClient, cfg.Redis.TTL)
	states := red.NewStateRepo(redisClient)
	confirms := red.NewConfirmStore(redisClient, 0)
	antiSpam := red.NewAntiSpam(redisClient, cfg.AntiSpam)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	ratingRepo := pg.NewRatingRepo(pool)
	draftRepo := pg.NewDraftRepoCacheDecorator(pg.NewDraftRepo(pool), draftCache, logger)

	// ---- Telegram ----
	bot, err := tele.NewBotClient(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	botUsername := cfg.Bot.Username
	if botUsername == "" {
		botUsername = bot.Self.UserName
	}

	var messenger adapter.Messenger = tele.NewBotMessenger(bot, logger)
	if cfg.Runtime.Dev {
		messenger = tele.NewNoopMessenger(logger)
	}
	messenger = tele.NewThrottledMessenger(messenger, cfg.Messenger)

	// ---- Payments ----
	payments, err := newPaymentGateway(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info().Str("provider", payments.Name()).Int64("price_rub", cfg.Payment.PriceRUB).Msg("payment gateway ready")

	topics, err := parseTopics(cfg.Chat.Topics)
	if err != nil {
		return err
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	draftUC := usecase.NewDraftUseCase(userRepo, draftRepo, draftCache, confirms, messenger, payments, tm, usecase.DraftPolicy{
		ChatID:       cfg.Chat.ID,
		Topics:       topics,
		PriceRUB:     cfg.Payment.PriceRUB,
		RequireTheme: cfg.Publish.RequireTheme,
	}, logger)
	ratingUC := usecase.NewRatingUseCase(userRepo, ratingRepo, draftUC, tm, botUsername, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, draftRepo, logger)
	expiryUC := usecase.NewExpiryUseCase(draftRepo, draftCache, messenger, usecase.ExpiryPolicy{
		ChatID:      cfg.Chat.ID,
		Lifetime:    cfg.Publish.Lifetime,
		Concurrency: int(cfg.Messenger.MaxInFlight),
	}, logger)

	// ---- Facade ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	facade := application.NewBotFacade(userUC, draftUC, ratingUC, states, tr, application.FacadeOptions{
		Lifetime: cfg.Publish.Lifetime,
		PriceRUB: cfg.Payment.PriceRUB,
	}, logger)

	botAdapter, err := tele.NewRealTelegramBotAdapter(bot, facade, antiSpam, worker.NewPool(cfg.Bot.Workers, 64, logger), logger)
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}

	// ---- Expiry: inline worker or queue scheduler ----
	var queue repository.TaskQueue
	if cfg.Scheduler.Mode == "queue" {
		queue = red.NewTaskQueue(redisClient, cfg.Scheduler.QueueKey)
	}

	// ---- Admin HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if cfg.Runtime.Dev && cfg.Admin.JWTSecret != "" {
		if tok, err := auth.Mint("dev"); err == nil {
			logger.Info().Str("token", tok).Msg("[DEV MODE] admin bearer token")
		}
	}
	adminServer := web.NewServer(statsUC, expiryUC, queue, auth, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(botAdapter.StartPolling(gctx))
	})
	g.Go(func() error {
		return adminServer.ListenAndServe(gctx, cfg.Admin.Port)
	})
	if queue != nil {
		scheduler := sched.NewTaskScheduler(queue, cfg.Scheduler.Interval, cfg.Scheduler.Backoff, sched.RealClock, logger)
		g.Go(func() error { return ignoreCanceled(scheduler.Run(gctx)) })
	} else {
		expiryWorker := sched.NewExpiryWorker(expiryUC, cfg.Scheduler.Interval, cfg.Scheduler.Backoff, sched.RealClock, logger)
		g.Go(func() error { return ignoreCanceled(expiryWorker.Run(gctx)) })
	}

	logger.Info().Str("bot", botUsername).Str("scheduler", cfg.Scheduler.Mode).Msg("app started")
	<-gctx.Done()
	logger.Info().Msg("shutdown requested")
	return g.Wait()
}

func newPaymentGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	if cfg.Runtime.Dev || cfg.Payment.Provider == "noop" {
		return payAdapters.NewNoopPaymentGateway(), nil
	}
	gw, err := payAdapters.NewYooKassaGateway(cfg.Payment.YooKassa, logger)
	if err != nil {
		return nil, fmt.Errorf("yookassa gateway: %w", err)
	}
	return gw, nil
}

func parseTopics(raw map[string]int64) (map[model.Theme]int64, error) {
	topics := make(map[model.Theme]int64, len(raw))
	for name, threadID := range raw {
		theme, err := model.ParseTheme(name)
		if err != nil {
			return nil, fmt.Errorf("chat.topics: %q: %w", name, err)
		}
		topics[theme] = threadID
	}
	return topics, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
