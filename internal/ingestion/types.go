// Package ingestion defines the request/response types and Kafka event
// schemas used by the document intake pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status"`
}

// IngestEvent is the Kafka message payload produced after a document is
// persisted, consumed by the stats worker.
type IngestEvent struct {
	DocumentID int64     `json:"document_id"`
	Name       string    `json:"name"`
	IngestedAt time.Time `json:"ingested_at"`
}
