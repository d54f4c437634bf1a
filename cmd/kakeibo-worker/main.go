package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/cli"
	applog "kakeibo/internal/log"
	"kakeibo/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentWorker)
	logger.Info("Starting kakeibo-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background())
	defer cancel()

	svc, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}
	defer svc.Close()

	dest, err := cli.ExportDestination(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize export destination", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Expired month rules are only dropped lazily otherwise.
	caches := cache.NewManager(logger.Slog())
	caches.Register(svc.Book().Cache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	w := worker.NewExportWorker(svc, dest, logger.Slog())

	// Catch up on anything missed while the worker was down.
	if err := w.ExportYears(ctx, time.Now().Year()); err != nil {
		logger.Error("Startup export failed", applog.FieldError, err)
	}

	logger.Info("Consuming ledger changes", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeWithRetry(ctx, w.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
