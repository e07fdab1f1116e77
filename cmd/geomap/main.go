package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/ice-news-geomap/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ice-news-geomap/internal/adapter/kafka"
	"github.com/couchcryptid/ice-news-geomap/internal/adapter/postgres"
	"github.com/couchcryptid/ice-news-geomap/internal/app"
	"github.com/couchcryptid/ice-news-geomap/internal/config"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
	"github.com/couchcryptid/ice-news-geomap/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	components, err := app.Build(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build resolution stack", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sinks are optional: Kafka behind KAFKA_ENABLED, PostgreSQL behind DATABASE_URL.
	var loaders []pipeline.BatchLoader
	var checks []sharedobs.ReadinessChecker
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}
	var store *postgres.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.NewStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create postgres schema", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, store)
		checks = append(checks, store)
		logger.Info("postgres sink enabled")
	}

	snapshot := &pipeline.Snapshot{}
	p := pipeline.New(components.Collector, components.Resolver, snapshot, loaders,
		cfg.RefreshInterval, cfg.TimelineStart, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(append([]sharedobs.ReadinessChecker{p}, checks...)...),
		components.Collector, snapshot, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Sinks stay open until an in-flight refresh has finished loading.
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("postgres close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
