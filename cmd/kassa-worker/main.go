package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kassa/internal/backend"
	"kassa/internal/config"
	"kassa/internal/events"
	"kassa/internal/export/sheets"
	"kassa/internal/log"
	"kassa/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.SpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID must be set for the export worker")
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

	exporter, err := sheets.New(ctx, cfg.SpreadsheetID, cfg.ExportSheet, logger)
	if err != nil {
		logger.Error("sheets init failed", log.FieldError, err)
		os.Exit(1)
	}

	// The consumer is optional. Without a broker the worker still exports
	// through the periodic sweep.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("amqp init failed", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("event consumption disabled, exporting by sweep only")
	}

	w := worker.New(repo, exporter, consumer, logger, cfg.ExportBatchSize, cfg.ExportInterval)

	logger.Info("export worker running",
		log.FieldOperation, log.OpStartup,
		"spreadsheet_id", cfg.SpreadsheetID,
		"interval", cfg.ExportInterval.String())

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("export worker stopped", log.FieldOperation, log.OpShutdown)
}
