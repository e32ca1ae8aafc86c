package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gymsched/easyfit_bot/internal/app"
	"github.com/gymsched/easyfit_bot/internal/config"
	"github.com/gymsched/easyfit_bot/internal/controller"
	"github.com/gymsched/easyfit_bot/internal/easyfit"
	"github.com/gymsched/easyfit_bot/internal/notify"
	"github.com/gymsched/easyfit_bot/internal/repository"
	"github.com/gymsched/easyfit_bot/internal/service"
	"github.com/gymsched/easyfit_bot/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting EasyFit booking bot",
		zap.String("environment", cfg.Environment),
		zap.Duration("lead_time", cfg.LeadTime),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrator.Close()

	bookingRepo := repository.NewBookingRepository(pool)

	easyfitClient := easyfit.NewClient(easyfit.Config{
		BaseURL:    cfg.EasyfitBaseURL,
		Email:      cfg.EasyfitEmail,
		Password:   cfg.EasyfitPassword,
		FacilityID: cfg.EasyfitFacilityID,
		SessionTTL: cfg.SessionTTL,
	})

	botInstance, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create telegram bot", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(notify.NewTelegramSender(botInstance), logger)
	dispatcher.Start()

	bookingService := service.NewBookingService(bookingRepo, cfg.LeadTime, logger)
	fulfillment := service.NewFulfillmentService(easyfitClient, logger)

	m := metrics.NewMetrics("easyfit_bot", prometheus.DefaultRegisterer)

	scheduler := app.NewScheduler(
		bookingRepo,
		fulfillment,
		easyfitClient,
		dispatcher,
		m,
		app.SchedulerConfig{
			PollInterval:   cfg.PollInterval,
			ActiveFromHour: cfg.ActiveFromHour,
			ActiveToHour:   cfg.ActiveToHour,
		},
		logger,
	)
	scheduler.Start(ctx)

	health := app.NewHealthServer(cfg.HealthAddr, pool, logger)
	health.Start()

	botController := controller.NewBotController(botInstance, bookingService, easyfitClient, logger)
	botController.RegisterHandlers(ctx)

	logger.Info("Bot ready, starting long polling")
	botInstance.Start(ctx)

	// ctx is cancelled, shut everything down.
	scheduler.Stop()
	dispatcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", zap.Error(err))
	}

	logger.Info("Bot stopped")
}
