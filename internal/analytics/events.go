package analytics

import "time"

type EventType string

const (
	EventAnalysis    EventType = "analysis"
	EventComparison  EventType = "comparison"
	EventReplacement EventType = "replacement"
	EventWordSearch  EventType = "word_search"
)

// envelope carries just the discriminator so the aggregator can pick the
// right event type before decoding the full payload.
type envelope struct {
	Type EventType `json:"type"`
}

// AnalysisEvent is emitted when a document's word statistics are computed,
// either by the worker or on demand by the analyzer.
type AnalysisEvent struct {
	Type        EventType `json:"type"`
	DocumentID  int64     `json:"document_id"`
	TotalWords  int       `json:"total_words"`
	UniqueWords int       `json:"unique_words"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// ComparisonEvent is emitted once per comparison request.
type ComparisonEvent struct {
	Type       EventType `json:"type"`
	QueryID    int64     `json:"query_id"`
	References int       `json:"references"`
	Method     string    `json:"method"`
	TopPercent float64   `json:"top_percent"`
	Level      string    `json:"level,omitempty"`
	CacheHit   bool      `json:"cache_hit"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// ReplacementEvent is emitted when a replacement produces a new document.
type ReplacementEvent struct {
	Type          EventType `json:"type"`
	SourceID      int64     `json:"source_id"`
	NewDocumentID int64     `json:"new_document_id"`
	Occurrences   int       `json:"occurrences"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

// WordSearchEvent is emitted for each word lookup.
type WordSearchEvent struct {
	Type        EventType `json:"type"`
	DocumentID  int64     `json:"document_id"`
	Term        string    `json:"term"`
	Occurrences int       `json:"occurrences"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}
