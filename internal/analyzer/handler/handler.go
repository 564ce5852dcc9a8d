// Package handler exposes the analysis HTTP API: per-document word
// statistics, word lookup, word replacement, and document comparison.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/TaokyleYT/wapds/internal/analysis/document"
	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	"github.com/TaokyleYT/wapds/internal/analysis/locator"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	"github.com/TaokyleYT/wapds/internal/analysis/similarity"
	"github.com/TaokyleYT/wapds/internal/analysis/vocab"
	"github.com/TaokyleYT/wapds/internal/analytics"
	"github.com/TaokyleYT/wapds/internal/analyzer/cache"
	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/pkg/config"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
	"github.com/TaokyleYT/wapds/pkg/logger"
	"github.com/TaokyleYT/wapds/pkg/metrics"
	"github.com/TaokyleYT/wapds/pkg/middleware"
)

type Handler struct {
	store     *store.Store
	comparer  *comparer.Comparer
	cache     *cache.ComparisonCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	cfg       config.Config
	nrmCfg    normalizer.Config
	logger    *slog.Logger
}

func New(
	st *store.Store,
	cmp *comparer.Comparer,
	comparisonCache *cache.ComparisonCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	cfg config.Config,
) *Handler {
	return &Handler{
		store:     st,
		comparer:  cmp,
		cache:     comparisonCache,
		collector: collector,
		metrics:   m,
		cfg:       cfg,
		nrmCfg: normalizer.Config{
			Hyphens:         normalizer.ParseHyphenPolicy(cfg.Analyzer.HyphenPolicy),
			KeepApostrophes: cfg.Analyzer.KeepApostrophes,
		},
		logger: slog.Default().With("component", "analyzer-handler"),
	}
}

// analysisResponse reports a document's word statistics. When a sort
// mode was requested, Sort and Words carry that single ordering;
// otherwise both orderings are returned. Source is "precomputed" when
// the worker's stats could be served directly and "computed" when the
// document was analyzed on demand.
type analysisResponse struct {
	DocumentID        int64         `json:"document_id"`
	Name              string        `json:"name"`
	TotalWords        int           `json:"total_words"`
	UniqueWords       int           `json:"unique_words"`
	Sort              vocab.Mode    `json:"sort,omitempty"`
	Words             []vocab.Entry `json:"words,omitempty"`
	WordsByFrequency  []vocab.Entry `json:"words_by_frequency,omitempty"`
	WordsAlphabetical []vocab.Entry `json:"words_alphabetical,omitempty"`
	Source            string        `json:"source"`
}

func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	limit := h.cfg.Analyzer.TopWords
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var mode vocab.Mode
	sortStr := r.URL.Query().Get("sort")
	if sortStr != "" {
		parsed, err := vocab.ParseMode(sortStr)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		mode = parsed
	}

	doc, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeStoreError(w, log, err)
		return
	}

	resp := analysisResponse{DocumentID: id, Name: doc.Name, Sort: mode}

	// The worker precomputes the frequency-descending top words; serve
	// them without re-tokenizing when they cover the requested limit.
	if mode == vocab.ModeFrequencyDesc && limit <= h.cfg.Analyzer.TopWords {
		if stats, err := h.store.GetStats(ctx, id); err == nil && stats != nil {
			words := stats.TopWords
			if len(words) > limit {
				words = words[:limit]
			}
			resp.TotalWords = stats.TotalWords
			resp.UniqueWords = stats.UniqueWords
			resp.Words = words
			resp.Source = "precomputed"
		}
	}

	if resp.Source == "" {
		loaded, err := document.Load(doc.Content, h.nrmCfg)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		table := frequency.Build(loaded.Tokens())
		resp.TotalWords = table.Total()
		resp.UniqueWords = table.Unique()
		resp.Source = "computed"

		if mode == "" {
			// No mode requested: the full report carries both orderings,
			// the way a side-by-side frequency/alphabetical listing reads.
			byFreq, err := vocab.Sort(table, vocab.ModeFrequencyDesc)
			if err != nil {
				h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
				return
			}
			alpha, err := vocab.Sort(table, vocab.ModeAlphabetical)
			if err != nil {
				h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
				return
			}
			resp.WordsByFrequency = truncateEntries(byFreq.Entries, limit)
			resp.WordsAlphabetical = truncateEntries(alpha.Entries, limit)
		} else {
			sorted, err := vocab.Sort(table, mode)
			if err != nil {
				h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
				return
			}
			resp.Words = truncateEntries(sorted.Entries, limit)
		}
	}

	if h.metrics != nil {
		h.metrics.DocsAnalyzedTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.AnalysisEvent{
			Type:        analytics.EventAnalysis,
			DocumentID:  id,
			TotalWords:  resp.TotalWords,
			UniqueWords: resp.UniqueWords,
			LatencyMs:   time.Since(start).Milliseconds(),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		})
	}

	log.Info("document analyzed",
		"document_id", id,
		"total_words", resp.TotalWords,
		"unique_words", resp.UniqueWords,
		"source", resp.Source,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

type wordResponse struct {
	DocumentID  int64          `json:"document_id"`
	Term        string         `json:"term"`
	Occurrences int            `json:"occurrences"`
	Spans       []locator.Span `json:"spans"`
}

func (h *Handler) Word(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	word := r.PathValue("word")

	caseSensitive := false
	if v := r.URL.Query().Get("case_sensitive"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "case_sensitive must be a boolean")
			return
		}
		caseSensitive = parsed
	}

	doc, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeStoreError(w, log, err)
		return
	}
	loaded, err := document.Load(doc.Content, h.nrmCfg)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	spans, err := locator.Find(loaded, word, !caseSensitive)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.WordSearchesTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.WordSearchEvent{
			Type:        analytics.EventWordSearch,
			DocumentID:  id,
			Term:        word,
			Occurrences: len(spans),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		})
	}

	if spans == nil {
		spans = []locator.Span{}
	}
	h.writeJSON(w, http.StatusOK, wordResponse{
		DocumentID:  id,
		Term:        word,
		Occurrences: len(spans),
		Spans:       spans,
	})
}

type replaceRequest struct {
	Target      string `json:"target"`
	Replacement string `json:"replacement"`
	Name        string `json:"name,omitempty"`
}

type replaceResponse struct {
	SourceID      int64  `json:"source_id"`
	NewDocumentID int64  `json:"new_document_id,omitempty"`
	Occurrences   int    `json:"occurrences"`
	Name          string `json:"name,omitempty"`
}

func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Target == "" {
		h.writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	doc, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeStoreError(w, log, err)
		return
	}
	loaded, err := document.Load(doc.Content, h.nrmCfg)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	spans, err := locator.Find(loaded, req.Target, true)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	if len(spans) == 0 {
		h.writeJSON(w, http.StatusOK, replaceResponse{SourceID: id, Occurrences: 0})
		return
	}

	replaced, err := locator.Replace(loaded, req.Target, req.Replacement)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s (replaced %q)", doc.Name, req.Target)
	}
	newID, err := h.store.InsertDerived(ctx, name, replaced.Raw(), id)
	if err != nil {
		log.Error("storing replaced document failed", "source_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "storing replaced document failed")
		return
	}

	// Derived documents can shift comparison rankings.
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Error("cache invalidation after replace failed", "error", err)
		}
	}

	if h.metrics != nil {
		h.metrics.ReplacementsTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.ReplacementEvent{
			Type:          analytics.EventReplacement,
			SourceID:      id,
			NewDocumentID: newID,
			Occurrences:   len(spans),
			Timestamp:     time.Now().UTC(),
			RequestID:     middleware.GetRequestID(ctx),
		})
	}

	log.Info("replacement stored",
		"source_id", id,
		"new_document_id", newID,
		"occurrences", len(spans),
	)
	h.writeJSON(w, http.StatusCreated, replaceResponse{
		SourceID:      id,
		NewDocumentID: newID,
		Occurrences:   len(spans),
		Name:          name,
	})
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req comparer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Method == "" {
		req.Method = comparer.MethodBoth
	}
	if err := h.comparer.Validate(req); err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	var result *comparer.Result
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() (*comparer.Result, error) {
			return h.comparer.Compare(ctx, req)
		})
	} else {
		result, err = h.comparer.Compare(ctx, req)
	}
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("comparison failed",
			"query_id", req.QueryID,
			"error", err,
			"status_code", statusCode,
		)
		message := "comparison failed"
		if statusCode < http.StatusInternalServerError {
			message = err.Error()
		}
		h.writeError(w, statusCode, message)
		return
	}

	topPercent, level := topScore(result)

	if h.metrics != nil {
		h.metrics.ComparisonsTotal.WithLabelValues(req.Method).Inc()
		h.metrics.SimilarityPercent.WithLabelValues(req.Method).Observe(topPercent)
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("comparison completed",
		"query_id", req.QueryID,
		"references", len(req.ReferenceIDs),
		"method", req.Method,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.ComparisonEvent{
			Type:       analytics.EventComparison,
			QueryID:    req.QueryID,
			References: len(req.ReferenceIDs),
			Method:     req.Method,
			TopPercent: topPercent,
			Level:      level,
			CacheHit:   cacheHit,
			LatencyMs:  latencyMs,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":          hits,
		"misses":        misses,
		"total":         total,
		"hit_rate":      fmt.Sprintf("%.1f%%", hitRate),
		"breaker_state": h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// topScore picks the highest score in the result as a percentage, and the
// plagiarism level when overlap scores are present.
func topScore(result *comparer.Result) (percent float64, level string) {
	for _, s := range result.Overlap {
		if s.Percent > percent {
			percent = s.Percent
			level = s.Level
		}
	}
	if len(result.Overlap) == 0 && len(result.Cosine) > 0 {
		for _, s := range result.Cosine {
			if p := s.Score * 100; p > percent {
				percent = p
			}
		}
		level = similarity.Level(percent)
	}
	return percent, level
}

func truncateEntries(entries []vocab.Entry, limit int) []vocab.Entry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, http.StatusBadRequest, "document id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, log *slog.Logger, err error) {
	statusCode := apperrors.HTTPStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error("document lookup failed", "error", err)
		h.writeError(w, statusCode, "document lookup failed")
		return
	}
	h.writeError(w, statusCode, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
