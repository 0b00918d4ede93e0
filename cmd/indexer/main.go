package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusDir := flag.String("corpus", "", "override corpus.dir")
	outputDir := flag.String("out", "", "override index.outputDir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusDir != "" {
		cfg.Corpus.Dir = *corpusDir
	}
	if *outputDir != "" {
		cfg.Index.OutputDir = *outputDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	slog.Info("starting index build",
		"corpus_dir", cfg.Corpus.Dir,
		"pattern", cfg.Corpus.Pattern,
		"workers", cfg.Index.Workers,
	)
	ctx, trace := tracing.Start(ctx, "build")
	defer func() {
		trace.End()
		trace.Log(slog.Default())
	}()

	engine, err := indexer.Build(ctx, cfg.Corpus, cfg.Index.Workers, m)
	if err != nil {
		return err
	}
	_, span := tracing.Start(ctx, "export")
	artifacts, err := engine.Export(cfg.Index.OutputDir)
	span.End()
	if err != nil {
		return err
	}
	trace.Set("build_id", engine.Summary().BuildID)

	retry := resilience.RetryConfig{MaxAttempts: 4, InitialDelay: 500 * time.Millisecond, JitterFraction: 0.1}
	if cfg.Postgres.Enabled {
		_, span := tracing.Start(ctx, "postgres")
		err := resilience.Retry(ctx, "postgres-export", retry, func(ctx context.Context) error {
			return saveToPostgres(ctx, cfg.Postgres, engine)
		})
		span.End()
		if err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.IndexComplete)
		defer producer.Close()
		err := resilience.Retry(ctx, "announce-build", retry, func(ctx context.Context) error {
			return engine.Announce(ctx, producer, cfg.Index.OutputDir, artifacts)
		})
		if err != nil {
			slog.Error("build finished but announcement failed", "error", err)
		}
	}

	sum := engine.Summary()
	slog.Info("index build complete",
		"build_id", sum.BuildID,
		"documents", sum.Documents,
		"terms", sum.Terms,
		"skipped", sum.Skipped,
		"filtered", sum.Filtered,
		"duration_ms", sum.Duration.Milliseconds(),
		"output_dir", cfg.Index.OutputDir,
	)
	return nil
}

func saveToPostgres(ctx context.Context, cfg config.PostgresConfig, engine *indexer.Engine) error {
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	store := export.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.SaveBuild(ctx, engine)
}
