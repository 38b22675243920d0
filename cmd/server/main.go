package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/delivery-fee-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/delivery-fee-service/internal/adapter/kafka"
	"github.com/couchcryptid/delivery-fee-service/internal/config"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/ingest"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
	"github.com/couchcryptid/delivery-fee-service/internal/scheduler"
	"github.com/couchcryptid/delivery-fee-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.SQLitePath, cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	observations, err := store.New(db)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	// Observation publisher (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	var publisher ingest.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		metrics.PublisherEnabled.Set(1)
		logger.Info("observation publisher enabled", "topic", cfg.KafkaTopic)
	}

	fetcher := ingest.NewHTTPFetcher(cfg.FeedURL, cfg.FetchTimeout)
	ingester := ingest.New(fetcher, observations, publisher, logger, metrics)
	calculator := domain.NewCalculator(observations)

	srv := httpadapter.NewServer(cfg.HTTPAddr, calculator, ingester, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the ingestion scheduler.
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(ingester, logger)
		if err := sched.Start(ctx, cfg.SchedulerCron); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("scheduler disabled")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
