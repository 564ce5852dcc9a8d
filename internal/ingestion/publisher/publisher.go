// Package publisher persists documents to PostgreSQL and publishes ingest
// events to Kafka for the downstream stats worker.
package publisher

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/TaokyleYT/wapds/internal/ingestion"
	"github.com/TaokyleYT/wapds/pkg/kafka"
	"github.com/TaokyleYT/wapds/pkg/postgres"
	"github.com/TaokyleYT/wapds/pkg/resilience"
)

// Publisher coordinates document persistence and Kafka event production.
type Publisher struct {
	db       *postgres.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

// New creates a Publisher with the given database and Kafka producer.
func New(db *postgres.Client, producer *kafka.Producer) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest persists the document in PostgreSQL and publishes an IngestEvent
// to Kafka. The document row is the durable source of truth; a failed
// publish only delays stats precomputation, so it is retried but not
// fatal.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	contentHash := fmt.Sprintf("%x", sha256.Sum256([]byte(req.Content)))

	var docID int64
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO documents (name, content, content_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, req.Name, req.Content, contentHash, time.Now().UTC()).Scan(&docID)
	})
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}

	event := kafka.Event{
		Key: strconv.FormatInt(docID, 10),
		Value: ingestion.IngestEvent{
			DocumentID: docID,
			Name:       req.Name,
			IngestedAt: time.Now().UTC(),
		},
	}
	publishErr := resilience.Retry(ctx, "ingest-publish", resilience.RetryConfig{}, func() error {
		return p.producer.Publish(ctx, event)
	})
	if publishErr != nil {
		p.logger.Error("failed to publish ingest event, stats will lag",
			"doc_id", docID,
			"error", publishErr,
		)
	}
	return &ingestion.IngestResponse{
		DocumentID: docID,
		Status:     "ACCEPTED",
	}, nil
}
