package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"bukukas/internal/amqp"
	"bukukas/internal/cache"
	"bukukas/internal/cli"
	"bukukas/internal/engine"
	apphttp "bukukas/internal/http"
	"bukukas/internal/log"
	"bukukas/internal/metrics"
	"bukukas/internal/services"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	appLogger := logger.WithComponent(log.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg)

	// AMQP is optional: without it export requests are rejected.
	var amqpClient *amqp.Client
	amqpLogger := logger.WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL != "" {
		dialCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		c, err := amqp.NewClientWithRetry(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		cancel()
		if err != nil {
			amqpLogger.Warn("AMQP unavailable, exports disabled", log.FieldError, err)
		} else {
			amqpClient = c
			amqpLogger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		amqpLogger.Info("AMQP_URL not set, exports disabled")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	reports := cache.NewLRUCache[engine.MonthlyReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	caches := cache.NewManager(func(removed int) {
		logger.WithComponent(log.ComponentCache).Debug("Expired reports evicted", "removed", removed)
	})
	caches.Register(reports)
	caches.StartCleanup(cfg.ReportCacheTTL)

	deps := services.Deps{
		Repo:    res.Store,
		Exports: res.Store,
		Cache:   reports,
		Logger:  logger,
		Metrics: m,
	}
	if amqpClient != nil {
		deps.Publisher = amqpClient
	}
	svc := services.NewBookkeeping(deps)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       res.Ready,
		Logger:      logger,
		Metrics:     m,
	})
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 75 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(appLogger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				amqpLogger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				appLogger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	appLogger.Info("Starting bukukas server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"exports", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLogger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	appLogger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
