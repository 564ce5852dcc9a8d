// Command analyzer starts the analysis HTTP service.
//
// It serves per-document word statistics, word lookup and replacement, and
// document comparison (overlap and cosine similarity), with comparison
// results cached in Redis. Aggregated analytics are served from a Kafka
// consumer and periodically snapshotted to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/analyzer [-config configs/development.yaml]
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

	"github.com/TaokyleYT/wapds/internal/analytics"
	"github.com/TaokyleYT/wapds/internal/analytics/aggregator"
	"github.com/TaokyleYT/wapds/internal/analyzer/cache"
	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
	"github.com/TaokyleYT/wapds/internal/analyzer/handler"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/pkg/config"
	"github.com/TaokyleYT/wapds/pkg/health"
	"github.com/TaokyleYT/wapds/pkg/kafka"
	"github.com/TaokyleYT/wapds/pkg/logger"
	"github.com/TaokyleYT/wapds/pkg/metrics"
	"github.com/TaokyleYT/wapds/pkg/middleware"
	"github.com/TaokyleYT/wapds/pkg/postgres"
	pkgredis "github.com/TaokyleYT/wapds/pkg/redis"
)

const snapshotInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	var comparisonCache *cache.ComparisonCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, comparison caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		comparisonCache = cache.New(redisClient, cfg.Redis)
		slog.Info("comparison cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	agg := analytics.NewAggregator()
	analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	analyticsH := analytics.NewHandler(agg)
	go func() {
		if err := agg.Start(ctx, analyticsConsumer); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started")

	snapshotStore := aggregator.NewStore(db)
	snapshotStore.StartPeriodicSave(ctx, agg, snapshotInterval)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	docStore := store.New(db)
	cmp := comparer.New(docStore, *cfg)
	h := handler.New(docStore, cmp, comparisonCache, collector, m, *cfg)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents/{id}/analysis", h.Analysis)
	mux.HandleFunc("GET /api/v1/documents/{id}/words/{word}", h.Word)
	mux.HandleFunc("POST /api/v1/documents/{id}/replace", h.Replace)
	mux.HandleFunc("POST /api/v1/compare", h.Compare)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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

	slog.Info("analyzer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analyzer service stopped")
}
