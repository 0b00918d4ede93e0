package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "index_dir", cfg.Index.OutputDir)

	snap, err := searcher.LoadSnapshot(cfg.Index.OutputDir, nil)
	if err != nil {
		slog.Error("failed to load index snapshot", "error", err)
		os.Exit(1)
	}
	if err := searcher.CheckLanguage(snap, cfg.Search.NormalizerLanguage); err != nil {
		slog.Error("refusing to serve build", "error", err)
		os.Exit(1)
	}
	slog.Info("index snapshot loaded",
		"version", snap.Version,
		"language", snap.Language,
		"documents", snap.Index.Universe(),
		"terms", snap.Index.Len(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		})
		queryCache = cache.New(cache.WithBreaker(redisClient, breaker), cfg.Redis.CacheTTL, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var invalidator searcher.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	svc := searcher.NewService(snap, cfg.Index.OutputDir, nil, invalidator)
	if err := svc.PinLanguage(cfg.Search.NormalizerLanguage); err != nil {
		slog.Error("refusing to serve build", "error", err)
		os.Exit(1)
	}

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.IndexComplete, svc.HandleBuildEvent)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("build event consumer error", "error", err)
			}
		}()
		slog.Info("listening for index builds", "topic", cfg.Kafka.IndexComplete, "group", cfg.Kafka.ConsumerGroup)
	}

	checker := health.NewChecker(cfg.Server.ReadTimeout)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		s := svc.Snapshot()
		if s.Index.Universe() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "empty corpus"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%s: %d documents, %d terms", s.Version, s.Index.Universe(), s.Index.Len()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.Ping(redisClient.Ping, true)(ctx)
	})

	h := handler.New(svc, svc, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler(reg))

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		go limiter.RunSweeper(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
