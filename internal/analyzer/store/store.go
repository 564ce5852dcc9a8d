// Package store provides PostgreSQL access to documents and their
// precomputed word statistics.
//
// It expects the following tables:
//
//	CREATE TABLE documents (
//	    id           BIGSERIAL PRIMARY KEY,
//	    name         TEXT NOT NULL,
//	    content      TEXT NOT NULL,
//	    content_hash TEXT NOT NULL,
//	    source_id    BIGINT REFERENCES documents(id),
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE word_stats (
//	    document_id  BIGINT PRIMARY KEY REFERENCES documents(id),
//	    total_words  INT NOT NULL,
//	    unique_words INT NOT NULL,
//	    top_words    JSONB NOT NULL,
//	    computed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TaokyleYT/wapds/internal/analysis/vocab"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
	"github.com/TaokyleYT/wapds/pkg/postgres"
)

// StoredDocument is a document row. SourceID links a document produced by
// a word replacement back to the document it was derived from.
type StoredDocument struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	SourceID  *int64    `json:"source_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WordStats is the precomputed per-document summary written by the worker.
type WordStats struct {
	DocumentID  int64         `json:"document_id"`
	TotalWords  int           `json:"total_words"`
	UniqueWords int           `json:"unique_words"`
	TopWords    []vocab.Entry `json:"top_words"`
	ComputedAt  time.Time     `json:"computed_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "document-store"),
	}
}

// Get loads a document by id.
func (s *Store) Get(ctx context.Context, id int64) (*StoredDocument, error) {
	var doc StoredDocument
	var sourceID sql.NullInt64
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, content, source_id, created_at FROM documents WHERE id=$1`, id,
	).Scan(&doc.ID, &doc.Name, &doc.Content, &sourceID, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, 404, "document %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	if sourceID.Valid {
		doc.SourceID = &sourceID.Int64
	}
	return &doc, nil
}

// InsertDerived stores the document produced by a replacement, linked to
// its source row.
func (s *Store) InsertDerived(ctx context.Context, name, content string, sourceID int64) (int64, error) {
	contentHash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	var id int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO documents (name, content, content_hash, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, name, content, contentHash, sourceID, time.Now().UTC()).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("inserting derived document: %w", err)
	}
	return id, nil
}

// UpsertStats writes or refreshes the precomputed word statistics for a
// document.
func (s *Store) UpsertStats(ctx context.Context, stats WordStats) error {
	topWords, err := json.Marshal(stats.TopWords)
	if err != nil {
		return fmt.Errorf("marshaling top words: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO word_stats (document_id, total_words, unique_words, top_words, computed_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (document_id) DO UPDATE
	SET total_words=$2, unique_words=$3, top_words=$4, computed_at=$5`,
		stats.DocumentID, stats.TotalWords, stats.UniqueWords, topWords, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting word stats for document %d: %w", stats.DocumentID, err)
	}
	return nil
}

// GetStats loads the precomputed statistics for a document. Returns
// nil, nil when the worker has not processed the document yet.
func (s *Store) GetStats(ctx context.Context, documentID int64) (*WordStats, error) {
	var stats WordStats
	var topWords []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT document_id, total_words, unique_words, top_words, computed_at
	FROM word_stats WHERE document_id=$1`, documentID,
	).Scan(&stats.DocumentID, &stats.TotalWords, &stats.UniqueWords, &topWords, &stats.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying word stats for document %d: %w", documentID, err)
	}
	if err := json.Unmarshal(topWords, &stats.TopWords); err != nil {
		s.logger.Warn("corrupt top_words payload, dropping", "document_id", documentID, "error", err)
		stats.TopWords = nil
	}
	return &stats, nil
}
