// Package integration contains tests that exercise the ingestion and
// analyzer handlers with real wiring against a PostgreSQL database. Kafka
// and Redis are left out: publishing is not under test here and both
// handlers degrade gracefully without a cache or collector.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
	"github.com/TaokyleYT/wapds/internal/analyzer/handler"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/pkg/config"
	"github.com/TaokyleYT/wapds/pkg/postgres"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ensureSchema(t, db)
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "wapds_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "wapds"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func ensureSchema(t *testing.T, db *postgres.Client) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id           BIGSERIAL PRIMARY KEY,
			name         TEXT NOT NULL,
			content      TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			source_id    BIGINT REFERENCES documents(id),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS word_stats (
			document_id  BIGINT PRIMARY KEY REFERENCES documents(id),
			total_words  INT NOT NULL,
			unique_words INT NOT NULL,
			top_words    JSONB NOT NULL,
			computed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.DB.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Analyzer.TopWords = 10
	cfg.Analyzer.HyphenPolicy = "keep"
	cfg.Analyzer.KeepApostrophes = true
	cfg.Compare.MaxReferences = 50
	cfg.Compare.NormalizeVectors = true
	return cfg
}

// newAnalyzerServer wires the analyzer handler without Redis or Kafka.
func newAnalyzerServer(t *testing.T, db *postgres.Client) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	docStore := store.New(db)
	cmp := comparer.New(docStore, cfg)
	h := handler.New(docStore, cmp, nil, nil, nil, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents/{id}/analysis", h.Analysis)
	mux.HandleFunc("GET /api/v1/documents/{id}/words/{word}", h.Word)
	mux.HandleFunc("POST /api/v1/documents/{id}/replace", h.Replace)
	mux.HandleFunc("POST /api/v1/compare", h.Compare)
	mux.HandleFunc("GET /health/live", h.Health)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// insertDocument writes a document row directly, bypassing the ingestion
// service, and removes it (and any derived rows) on cleanup.
func insertDocument(t *testing.T, db *postgres.Client, name, content string) int64 {
	t.Helper()
	var id int64
	err := db.DB.QueryRowContext(context.Background(),
		`INSERT INTO documents (name, content, content_hash, created_at)
	VALUES ($1, $2, md5($2), NOW())
	RETURNING id`, name, content).Scan(&id)
	if err != nil {
		t.Fatalf("inserting document: %v", err)
	}
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), `DELETE FROM word_stats WHERE document_id=$1`, id)
		db.DB.ExecContext(context.Background(), `DELETE FROM documents WHERE source_id=$1`, id)
		db.DB.ExecContext(context.Background(), `DELETE FROM documents WHERE id=$1`, id)
	})
	return id
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response from %s: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, payload any, out any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decoding response from %s: %v (body %s)", url, err, raw)
		}
	}
	return resp
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAnalysisEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "cats", "the cat and the hat and the bat")

	var body struct {
		DocumentID  int64  `json:"document_id"`
		TotalWords  int    `json:"total_words"`
		UniqueWords int    `json:"unique_words"`
		Source      string `json:"source"`
		Words       []struct {
			Term  string `json:"term"`
			Count int    `json:"count"`
		} `json:"words"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/analysis?limit=2&sort=frequency-descending", srv.URL, id), &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if body.TotalWords != 8 || body.UniqueWords != 5 {
		t.Errorf("totals = %d/%d, want 8/5", body.TotalWords, body.UniqueWords)
	}
	// No worker ran, so stats are computed on demand.
	if body.Source != "computed" {
		t.Errorf("source = %q, want computed", body.Source)
	}
	if len(body.Words) != 2 || body.Words[0].Term != "the" || body.Words[0].Count != 3 {
		t.Errorf("top words = %+v, want [the:3 and:2]", body.Words)
	}
}

func TestAnalysisDefaultBothOrders(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "cats", "the cat and the hat and the bat")

	type wordEntry struct {
		Term  string `json:"term"`
		Count int    `json:"count"`
	}
	var body struct {
		TotalWords        int         `json:"total_words"`
		UniqueWords       int         `json:"unique_words"`
		Source            string      `json:"source"`
		Sort              string      `json:"sort"`
		WordsByFrequency  []wordEntry `json:"words_by_frequency"`
		WordsAlphabetical []wordEntry `json:"words_alphabetical"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/analysis", srv.URL, id), &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if body.TotalWords != 8 || body.UniqueWords != 5 {
		t.Errorf("totals = %d/%d, want 8/5", body.TotalWords, body.UniqueWords)
	}
	if body.Sort != "" {
		t.Errorf("sort = %q, want empty when no mode requested", body.Sort)
	}
	if len(body.WordsByFrequency) != 5 || body.WordsByFrequency[0].Term != "the" || body.WordsByFrequency[0].Count != 3 {
		t.Errorf("words_by_frequency = %+v, want the:3 first", body.WordsByFrequency)
	}
	if len(body.WordsAlphabetical) != 5 || body.WordsAlphabetical[0].Term != "and" {
		t.Errorf("words_alphabetical = %+v, want and first", body.WordsAlphabetical)
	}
	for i := 1; i < len(body.WordsAlphabetical); i++ {
		if body.WordsAlphabetical[i-1].Term > body.WordsAlphabetical[i].Term {
			t.Errorf("words_alphabetical out of order at %d: %+v", i, body.WordsAlphabetical)
		}
	}
}

func TestAnalysisUnknownDocument(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	resp := getJSON(t, srv.URL+"/api/v1/documents/999999999/analysis", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWordEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "greeting", "Hello world, hello!")

	var body struct {
		Occurrences int `json:"occurrences"`
		Spans       []struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"spans"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/words/hello", srv.URL, id), &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", body.Occurrences)
	}

	resp = getJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/words/hello?case_sensitive=true", srv.URL, id), &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Occurrences != 1 {
		t.Errorf("case-sensitive occurrences = %d, want 1", body.Occurrences)
	}
}

func TestReplaceEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "greeting", "Hello world, hello!")

	var body struct {
		SourceID      int64 `json:"source_id"`
		NewDocumentID int64 `json:"new_document_id"`
		Occurrences   int   `json:"occurrences"`
	}
	resp := postJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/replace", srv.URL, id),
		map[string]string{"target": "hello", "replacement": "hi"}, &body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if body.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", body.Occurrences)
	}
	if body.NewDocumentID == 0 || body.NewDocumentID == id {
		t.Fatalf("new_document_id = %d, want a fresh row", body.NewDocumentID)
	}

	// The derived row holds the replaced text and links back to the source.
	var content string
	var sourceID int64
	err := db.DB.QueryRowContext(context.Background(),
		`SELECT content, source_id FROM documents WHERE id=$1`, body.NewDocumentID,
	).Scan(&content, &sourceID)
	if err != nil {
		t.Fatalf("loading derived document: %v", err)
	}
	if content != "hi world, hi!" {
		t.Errorf("derived content = %q, want %q", content, "hi world, hi!")
	}
	if sourceID != id {
		t.Errorf("source_id = %d, want %d", sourceID, id)
	}
}

func TestReplaceNoOccurrences(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "plain", "nothing matches here")

	var body struct {
		NewDocumentID int64 `json:"new_document_id"`
		Occurrences   int   `json:"occurrences"`
	}
	resp := postJSON(t, fmt.Sprintf("%s/api/v1/documents/%d/replace", srv.URL, id),
		map[string]string{"target": "absent", "replacement": "x"}, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Occurrences != 0 || body.NewDocumentID != 0 {
		t.Errorf("body = %+v, want no occurrences and no new document", body)
	}
}

func TestCompareEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	queryID := insertDocument(t, db, "query", "the quick brown fox")
	refA := insertDocument(t, db, "near", "the quick brown dog")
	refB := insertDocument(t, db, "far", "unrelated words entirely")

	var body struct {
		Overlap []struct {
			ReferenceID int64   `json:"reference_id"`
			Percent     float64 `json:"percent"`
			Level       string  `json:"level"`
		} `json:"overlap"`
		Cosine []struct {
			ReferenceID int64   `json:"reference_id"`
			Score       float64 `json:"score"`
		} `json:"cosine"`
	}
	resp := postJSON(t, srv.URL+"/api/v1/compare", map[string]any{
		"query_id":      queryID,
		"reference_ids": []int64{refA, refB},
		"method":        "both",
	}, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if len(body.Overlap) != 2 {
		t.Fatalf("overlap entries = %d, want 2", len(body.Overlap))
	}
	if body.Overlap[0].Percent != 60 || body.Overlap[0].Level != "MEDIUM" {
		t.Errorf("near reference overlap = %+v, want 60 MEDIUM", body.Overlap[0])
	}
	if body.Overlap[1].Percent != 0 || body.Overlap[1].Level != "MINIMAL" {
		t.Errorf("far reference overlap = %+v, want 0 MINIMAL", body.Overlap[1])
	}

	if len(body.Cosine) != 2 {
		t.Fatalf("cosine entries = %d, want 2", len(body.Cosine))
	}
	if body.Cosine[0].ReferenceID != refA {
		t.Errorf("cosine ranking = %+v, want %d first", body.Cosine, refA)
	}
	if body.Cosine[0].Score <= body.Cosine[1].Score {
		t.Errorf("cosine not descending: %+v", body.Cosine)
	}
}

func TestCompareValidation(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv := newAnalyzerServer(t, db)

	id := insertDocument(t, db, "solo", "just one document")

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{
			name:    "no references",
			payload: map[string]any{"query_id": id, "method": "overlap"},
			status:  http.StatusBadRequest,
		},
		{
			name:    "unknown method",
			payload: map[string]any{"query_id": id, "reference_ids": []int64{id + 1}, "method": "jaccard"},
			status:  http.StatusBadRequest,
		},
		{
			name:    "missing reference document",
			payload: map[string]any{"query_id": id, "reference_ids": []int64{999999999}, "method": "overlap"},
			status:  http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/compare", tt.payload, nil)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
