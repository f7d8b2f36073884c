package main

import (
	"context"
	"errors"
	"os"

	"bukukas/internal/amqp"
	"bukukas/internal/backend"
	"bukukas/internal/cli"
	"bukukas/internal/log"
	"bukukas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	wlog := logger.WithComponent(log.ComponentWorker)

	wlog.Info("Starting bukukas-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		wlog.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	// The worker reads the document the server wrote, so it needs a shared store.
	if backend.BackendType(cfg.DataBackend) != backend.SQLiteBackend {
		wlog.Error("Export worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClientWithRetry(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 10)
	if err != nil {
		logger.WithComponent(log.ComponentAMQP).Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(res.Store, res.Store, res.Sink, logger, nil)

	ctx, done := cli.GracefulShutdown(wlog, cfg.ShutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP close error", log.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				wlog.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	if err := amqpClient.ConsumeReportExports(ctx, exportWorker.HandleExportMessage); err != nil && !errors.Is(err, context.Canceled) {
		wlog.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	wlog.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
