package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TaokyleYT/wapds/pkg/kafka"
)

// AggregatedStats is the rollup served by the analytics endpoint and
// persisted as snapshots.
type AggregatedStats struct {
	TotalAnalyses       int64            `json:"total_analyses"`
	TotalComparisons    int64            `json:"total_comparisons"`
	TotalReplacements   int64            `json:"total_replacements"`
	TotalWordSearches   int64            `json:"total_word_searches"`
	ComparisonsByMethod map[string]int64 `json:"comparisons_by_method"`
	SimilarityLevels    map[string]int64 `json:"similarity_levels"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	AvgLatencyMs        float64          `json:"avg_latency_ms"`
	P50LatencyMs        int64            `json:"p50_latency_ms"`
	P95LatencyMs        int64            `json:"p95_latency_ms"`
	P99LatencyMs        int64            `json:"p99_latency_ms"`
	TopSearchedWords    []TermCount      `json:"top_searched_words"`
	ComparisonsPerMin   float64          `json:"comparisons_per_minute"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator consumes analytics events from Kafka and keeps running
// totals in memory.
type Aggregator struct {
	mu                sync.RWMutex
	totalAnalyses     atomic.Int64
	totalReplacements atomic.Int64
	totalWordSearches atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	latencies         []int64
	byMethod          map[string]int64
	byLevel           map[string]int64
	searchedWords     map[string]int64
	totalComparisons  int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:     make([]int64, 0, 10000),
		byMethod:      make(map[string]int64),
		byLevel:       make(map[string]int64),
		searchedWords: make(map[string]int64),
		startTime:     time.Now(),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start blocks consuming events until ctx is cancelled. The consumer must
// have been built with HandleEvent on this aggregator.
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// HandleEvent decodes the event envelope and dispatches to the matching
// record method. Malformed events are logged and skipped, never retried.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var env envelope
		if err := json.Unmarshal(value, &env); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventAnalysis:
			if event, err := kafka.DecodeJSON[AnalysisEvent](value); err == nil {
				agg.recordAnalysis(event)
			}
		case EventComparison:
			if event, err := kafka.DecodeJSON[ComparisonEvent](value); err == nil {
				agg.recordComparison(event)
			}
		case EventReplacement:
			if _, err := kafka.DecodeJSON[ReplacementEvent](value); err == nil {
				agg.totalReplacements.Add(1)
			}
		case EventWordSearch:
			if event, err := kafka.DecodeJSON[WordSearchEvent](value); err == nil {
				agg.recordWordSearch(event)
			}
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordAnalysis(event AnalysisEvent) {
	a.totalAnalyses.Add(1)
	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.mu.Unlock()
}

func (a *Aggregator) recordComparison(event ComparisonEvent) {
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	a.mu.Lock()
	a.totalComparisons++
	a.byMethod[event.Method]++
	if event.Level != "" {
		a.byLevel[event.Level]++
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.mu.Unlock()
}

func (a *Aggregator) recordWordSearch(event WordSearchEvent) {
	a.totalWordSearches.Add(1)
	a.mu.Lock()
	a.searchedWords[event.Term]++
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalAnalyses:       a.totalAnalyses.Load(),
		TotalComparisons:    a.totalComparisons,
		TotalReplacements:   a.totalReplacements.Load(),
		TotalWordSearches:   a.totalWordSearches.Load(),
		ComparisonsByMethod: copyCounts(a.byMethod),
		SimilarityLevels:    copyCounts(a.byLevel),
		CacheHits:           a.cacheHits.Load(),
		CacheMisses:         a.cacheMisses.Load(),
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.TopSearchedWords = topN(a.searchedWords, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.ComparisonsPerMin = float64(stats.TotalComparisons) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
