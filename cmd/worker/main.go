// Command worker starts the word statistics worker.
//
// It consumes ingest events from Kafka, tokenizes each new document, and
// upserts its word statistics (total words, unique words, top terms) into
// PostgreSQL. Analysis events are flushed to the analytics topic in
// batches.
//
// Usage:
//
//	go run ./cmd/worker [-config configs/development.yaml]
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

	"github.com/TaokyleYT/wapds/internal/analytics/collector"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/internal/worker"
	"github.com/TaokyleYT/wapds/pkg/config"
	"github.com/TaokyleYT/wapds/pkg/kafka"
	"github.com/TaokyleYT/wapds/pkg/logger"
	"github.com/TaokyleYT/wapds/pkg/postgres"
)

const (
	analyticsBatchSize     = 100
	analyticsFlushInterval = 5 * time.Second
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
	slog.Info("starting stats worker")

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	batchCollector := collector.NewBatchCollector(analyticsProducer, analyticsBatchSize, analyticsFlushInterval)
	batchCollector.Start(ctx)
	defer batchCollector.Close()

	docStore := store.New(db)
	handler := worker.HandleMessage(docStore, *cfg, batchCollector)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, handler)
	statsWorker := worker.New(kafkaConsumer)

	slog.Info("stats worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := statsWorker.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("stats worker stopped")
}
