// Package worker consumes ingest events from Kafka and precomputes word
// statistics for each new document: total words, unique words, and the
// top terms by frequency.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TaokyleYT/wapds/internal/analysis/document"
	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	"github.com/TaokyleYT/wapds/internal/analysis/vocab"
	"github.com/TaokyleYT/wapds/internal/analytics"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/internal/ingestion"
	"github.com/TaokyleYT/wapds/pkg/config"
	"github.com/TaokyleYT/wapds/pkg/kafka"
)

// Tracker is the analytics sink; the batch collector satisfies it.
type Tracker interface {
	Track(key string, value any)
}

// StatsWorker wraps a Kafka consumer to drive the statistics pipeline.
type StatsWorker struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *StatsWorker {
	return &StatsWorker{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "stats-worker"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("stats worker starting")
	return w.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that loads the document
// named by each ingest event, computes its word statistics, and upserts
// them. Decode failures are logged and skipped so a poison message cannot
// wedge the partition; storage failures are returned for redelivery.
func HandleMessage(st *store.Store, cfg config.Config, tracker Tracker) kafka.MessageHandler {
	nrmCfg := normalizer.Config{
		Hyphens:         normalizer.ParseHyphenPolicy(cfg.Analyzer.HyphenPolicy),
		KeepApostrophes: cfg.Analyzer.KeepApostrophes,
	}
	topWords := cfg.Analyzer.TopWords
	logger := slog.Default().With("component", "stats-worker")

	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		start := time.Now()
		logger.Debug("processing ingest event", "document_id", event.DocumentID)

		row, err := st.Get(ctx, event.DocumentID)
		if err != nil {
			return fmt.Errorf("loading document %d: %w", event.DocumentID, err)
		}

		doc, err := document.Load(row.Content, nrmCfg)
		if err != nil {
			// The validator rejected undecodable content at ingest time, so
			// this only happens when the row was written out of band. Skip it.
			logger.Error("stored document is not decodable",
				"document_id", event.DocumentID,
				"error", err,
			)
			return nil
		}

		table := frequency.Build(doc.Tokens())
		sorted, err := vocab.Sort(table, vocab.ModeFrequencyDesc)
		if err != nil {
			return fmt.Errorf("sorting vocabulary for document %d: %w", event.DocumentID, err)
		}
		top := sorted.Entries
		if len(top) > topWords {
			top = top[:topWords]
		}

		stats := store.WordStats{
			DocumentID:  event.DocumentID,
			TotalWords:  table.Total(),
			UniqueWords: table.Unique(),
			TopWords:    top,
		}
		if err := st.UpsertStats(ctx, stats); err != nil {
			return fmt.Errorf("storing stats for document %d: %w", event.DocumentID, err)
		}

		if tracker != nil {
			tracker.Track("analytics", analytics.AnalysisEvent{
				Type:        analytics.EventAnalysis,
				DocumentID:  event.DocumentID,
				TotalWords:  stats.TotalWords,
				UniqueWords: stats.UniqueWords,
				LatencyMs:   time.Since(start).Milliseconds(),
				Timestamp:   time.Now().UTC(),
			})
		}

		logger.Info("document stats computed",
			"document_id", event.DocumentID,
			"total_words", stats.TotalWords,
			"unique_words", stats.UniqueWords,
		)
		return nil
	}
}
