// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/infra/adapters/daraja"
	pg "marketplace-payments/internal/infra/db/postgres"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/metrics"
	red "marketplace-payments/internal/infra/redis"
	"marketplace-payments/internal/infra/sched"
	"marketplace-payments/internal/infra/web"
	"marketplace-payments/internal/infra/worker"
	"marketplace-payments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	sessionRepo := pg.NewSessionRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	walletRepo := pg.NewWalletRepo(pool)

	// ---- Gateway ----
	gateway, err := daraja.NewGateway(cfg.Daraja)
	if err != nil {
		logger.Fatal().Err(err).Msg("daraja gateway init failed")
	}

	// ---- Use cases ----
	initiator, reconciler, poller := usecase.Build(usecase.Deps{
		Sessions: sessionRepo,
		Orders:   orderRepo,
		Subs:     subRepo,
		Wallets:  walletRepo,
		TM:       tm,
		Gateway:  gateway,
		Cache:    statusCache,
		Poller:   cfg.Poller,
		Log:      logger,
	})

	// ---- Background reconciler ----
	pool2 := worker.NewPool(cfg.Reconciler.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	rec := sched.NewSessionReconciler(poller, sessionRepo, pool2, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go rec.Start(ctx)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret)
	srv := web.NewServer(
		fmt.Sprintf(":%d", cfg.Server.Port),
		initiator, reconciler, poller,
		auth, rateLimiter, cfg.Runtime.Dev, logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	logger.Info().Msg("bye")
}
