package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-market/config"
	httpHandler "channel-market/internal/adapter/http/handler"
	pgStorage "channel-market/internal/adapter/storage/postgres"
	redisStorage "channel-market/internal/adapter/storage/redis"
	"channel-market/internal/adapter/telegram"
	"channel-market/internal/clock"
	"channel-market/internal/core/ports"
	"channel-market/internal/service"
	"channel-market/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Channel Market")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	channelRepo := pgStorage.NewChannelRepo(pool)
	giftRepo := pgStorage.NewGiftRepo(pool)
	purchaseRepo := pgStorage.NewPurchaseRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	replayStore := redisStorage.NewReplayStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Telegram bot adapter: optional, the marketplace works without it.
	var notifier ports.NotificationSink
	var verifier ports.ChannelVerifier
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewNotifier(cfg.Telegram.BotToken, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		notifier = bot
		verifier = bot
	} else {
		log.Warn().Msg("No Telegram bot token configured, notifications and ownership checks disabled")
	}

	// Initialize core services
	clk := clock.NewSystem()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, hashSvc, tokenSvc, replayStore, cfg.Telegram.BotToken, clk, log)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, userRepo, channelRepo, transactor, clk, log)
	channelSvc := service.NewChannelService(channelRepo, giftRepo, userRepo, verifier, clk, log)
	userSvc := service.NewUserService(userRepo, depositRepo, idempotencyCache, transactor, clk, log)
	statsSvc := service.NewStatsService(purchaseRepo, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Arming sweeper: opens confirmation windows for aged purchases.
	sweeper := service.NewSweeperService(
		purchaseRepo,
		userRepo,
		notifier,
		clk,
		cfg.Settlement.ArmingDelay,
		cfg.Settlement.ConfirmWindow,
		cfg.Settlement.SweepInterval,
		log,
	)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go sweeper.Run(sweepCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		PurchaseSvc:    purchaseSvc,
		ChannelSvc:     channelSvc,
		UserSvc:        userSvc,
		StatsSvc:       statsSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
