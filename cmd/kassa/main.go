package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kassa/internal/auth"
	"kassa/internal/backend"
	"kassa/internal/cache"
	"kassa/internal/config"
	"kassa/internal/events"
	apphttp "kassa/internal/http"
	"kassa/internal/ledger"
	"kassa/internal/log"
	"kassa/internal/seed"
)

func main() {
	// .env is for local development; in containers the environment is set
	// directly, so a missing file is fine.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("storage init failed", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("storage ready",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend)

	var opts []ledger.Option
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("amqp init failed", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		opts = append(opts, ledger.WithPublisher(client))
		logger.Info("event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("event publishing disabled, no AMQP_URL set")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(repo, tokens, logger)
	ledgerSvc := ledger.NewService(repo, logger, opts...)

	go cache.Janitor(ctx, time.Minute, ledgerSvc.CacheCleaner())

	if n, err := seed.Categories(ctx, repo, logger); err != nil {
		logger.Error("category seed failed", log.FieldError, err)
		os.Exit(1)
	} else if n > 0 {
		logger.Info("categories seeded",
			log.FieldOperation, log.OpSeed,
			log.FieldCount, n)
	}
	if cfg.SeedDemo {
		if err := seed.Demo(ctx, repo, ledgerSvc, authSvc, logger); err != nil {
			logger.Error("demo seed failed", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, authSvc, tokens, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", log.FieldError, err)
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped", log.FieldOperation, log.OpShutdown)
}
