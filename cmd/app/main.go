package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-billing/internal/config"
	"chat-billing/internal/domain/ports/adapter"
	pg "chat-billing/internal/infra/db/postgres"
	"chat-billing/internal/infra/logging"
	"chat-billing/internal/infra/metrics"
	"chat-billing/internal/infra/notify"
	red "chat-billing/internal/infra/redis"
	"chat-billing/internal/infra/sched"
	"chat-billing/internal/infra/web"
	"chat-billing/internal/infra/worker"
	"chat-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, log notifier)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Background delivery ----
	dispatchPool := worker.NewPool(cfg.Notifier.Workers, logger)
	dispatchPool.Start(ctx)
	defer dispatchPool.Stop()

	var notifier adapter.Notifier
	if cfg.Notifier.Endpoint != "" && !cfg.Runtime.Dev {
		notifier = notify.NewHTTPNotifier(cfg.Notifier.Endpoint, cfg.Notifier.Timeout, dispatchPool, logger)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	linkRepo := pg.NewPaymentLinkRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	downgradeRepo := pg.NewDowngradeHistoryRepo(pool)
	codeRepo := pg.NewActivationCodeRepo(pool)
	withdrawalRepo := pg.NewWithdrawalRepo(pool)
	balanceRepo := pg.NewBalanceRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)

	// ---- Use cases ----
	linkUC := usecase.NewPaymentLinkUseCase(linkRepo, logger)
	activationUC := usecase.NewActivationUseCase(linkRepo, subRepo, codeRepo, purchaseRepo, txManager, logger)
	webhookUC := usecase.NewWebhookUseCase(eventRepo, activationUC, logger)
	withdrawalUC := usecase.NewWithdrawalUseCase(withdrawalRepo, balanceRepo, txManager, notifier, logger)
	maintUC := usecase.NewMaintenanceUseCase(subRepo, downgradeRepo, codeRepo, linkRepo, notifier, logger)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	srv := web.NewServer(
		linkUC, webhookUC, activationUC, withdrawalUC, maintUC,
		auth, cfg.Admin.APIKey,
		rateLimiter, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow,
		logger,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Batch workers ----
	dailyWorker := sched.NewDailyWorker(cfg.Scheduler.DailyInterval, maintUC, logger)
	go func() { _ = dailyWorker.Run(ctx) }()
	monthlyWorker := sched.NewMonthlyWorker(cfg.Scheduler.MonthlyInterval, maintUC, logger)
	go func() { _ = monthlyWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
