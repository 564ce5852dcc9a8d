// Package comparer orchestrates document comparisons: it loads the query
// and reference documents, builds their frequency tables, and computes
// overlap and cosine scores.
package comparer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/TaokyleYT/wapds/internal/analysis/document"
	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	"github.com/TaokyleYT/wapds/internal/analysis/similarity"
	"github.com/TaokyleYT/wapds/internal/analyzer/store"
	"github.com/TaokyleYT/wapds/pkg/config"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
	"github.com/TaokyleYT/wapds/pkg/middleware"
	"github.com/TaokyleYT/wapds/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Comparison methods accepted by Compare.
const (
	MethodOverlap = "overlap"
	MethodCosine  = "cosine"
	MethodBoth    = "both"
)

// cosineConcurrency bounds the per-reference scoring fan-out.
const cosineConcurrency = 8

// Request selects a query document, the references to compare it against,
// and which scores to compute. Every method accepts one or more references:
// overlap is computed pairwise per reference, cosine ranks the whole set.
// Normalized overrides the configured vector normalization when set.
type Request struct {
	QueryID      int64   `json:"query_id"`
	ReferenceIDs []int64 `json:"reference_ids"`
	Method       string  `json:"method"`
	Normalized   *bool   `json:"normalized,omitempty"`
}

// OverlapScore is the pairwise overlap result against one reference.
type OverlapScore struct {
	ReferenceID int64   `json:"reference_id"`
	Percent     float64 `json:"percent"`
	Level       string  `json:"level"`
}

// CosineScore is one entry of the cosine ranking, highest score first.
type CosineScore struct {
	ReferenceID int64   `json:"reference_id"`
	Score       float64 `json:"score"`
}

// Result holds the scores for a comparison request. Overlap is present for
// methods "overlap" and "both", Cosine for "cosine" and "both".
type Result struct {
	QueryID int64          `json:"query_id"`
	Method  string         `json:"method"`
	Overlap []OverlapScore `json:"overlap,omitempty"`
	Cosine  []CosineScore  `json:"cosine,omitempty"`
}

type Comparer struct {
	store  *store.Store
	cfg    config.Config
	nrmCfg normalizer.Config
	logger *slog.Logger
}

func New(st *store.Store, cfg config.Config) *Comparer {
	return &Comparer{
		store: st,
		cfg:   cfg,
		nrmCfg: normalizer.Config{
			Hyphens:         normalizer.ParseHyphenPolicy(cfg.Analyzer.HyphenPolicy),
			KeepApostrophes: cfg.Analyzer.KeepApostrophes,
		},
		logger: slog.Default().With("component", "comparer"),
	}
}

// Validate checks the request shape without touching storage.
func (c *Comparer) Validate(req Request) error {
	switch req.Method {
	case MethodOverlap, MethodCosine, MethodBoth:
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown method %q", req.Method)
	}
	if len(req.ReferenceIDs) == 0 {
		return apperrors.New(apperrors.ErrConfiguration, 400, "at least one reference document is required")
	}
	if max := c.cfg.Compare.MaxReferences; len(req.ReferenceIDs) > max {
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "too many references: %d (max %d)", len(req.ReferenceIDs), max)
	}
	for _, id := range req.ReferenceIDs {
		if id == req.QueryID {
			return apperrors.Newf(apperrors.ErrInvalidInput, 400, "reference %d is the query document", id)
		}
	}
	return nil
}

// Compare runs the requested comparison.
func (c *Comparer) Compare(ctx context.Context, req Request) (*Result, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "compare", middleware.GetRequestID(ctx))
	span.SetAttr("method", req.Method)
	span.SetAttr("references", len(req.ReferenceIDs))
	defer func() {
		span.End()
		span.Log()
	}()

	query, refs, err := c.loadTables(ctx, req)
	if err != nil {
		return nil, err
	}

	normalized := c.cfg.Compare.NormalizeVectors
	if req.Normalized != nil {
		normalized = *req.Normalized
	}

	result := &Result{QueryID: req.QueryID, Method: req.Method}
	if req.Method == MethodOverlap || req.Method == MethodBoth {
		result.Overlap = c.overlapScores(ctx, req.ReferenceIDs, query, refs)
	}
	if req.Method == MethodCosine || req.Method == MethodBoth {
		result.Cosine, err = c.cosineScores(ctx, req.ReferenceIDs, query, refs, normalized)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// loadTables fetches the query and reference documents concurrently and
// builds a frequency table for each.
func (c *Comparer) loadTables(ctx context.Context, req Request) (*frequency.Table, []*frequency.Table, error) {
	ctx, span := tracing.StartChildSpan(ctx, "compare.load")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)

	var query *frequency.Table
	g.Go(func() error {
		var err error
		query, err = c.tableFor(gctx, req.QueryID)
		return err
	})

	refs := make([]*frequency.Table, len(req.ReferenceIDs))
	for i, id := range req.ReferenceIDs {
		g.Go(func() error {
			var err error
			refs[i], err = c.tableFor(gctx, id)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return query, refs, nil
}

func (c *Comparer) tableFor(ctx context.Context, id int64) (*frequency.Table, error) {
	doc, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	loaded, err := document.Load(doc.Content, c.nrmCfg)
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	return frequency.Build(loaded.Tokens()), nil
}

func (c *Comparer) overlapScores(ctx context.Context, ids []int64, query *frequency.Table, refs []*frequency.Table) []OverlapScore {
	_, span := tracing.StartChildSpan(ctx, "compare.overlap")
	defer span.End()

	scores := make([]OverlapScore, len(refs))
	for i, ref := range refs {
		percent := similarity.Overlap(query, ref)
		scores[i] = OverlapScore{
			ReferenceID: ids[i],
			Percent:     percent,
			Level:       similarity.Level(percent),
		}
	}
	return scores
}

// cosineScores fans the per-reference scoring out across goroutines and
// ranks the results highest first. Ties keep request order.
func (c *Comparer) cosineScores(ctx context.Context, ids []int64, query *frequency.Table, refs []*frequency.Table, normalized bool) ([]CosineScore, error) {
	_, span := tracing.StartChildSpan(ctx, "compare.cosine")
	defer span.End()

	scores := make([]CosineScore, len(refs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(cosineConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			scores[i] = CosineScore{
				ReferenceID: ids[i],
				Score:       similarity.ScoreOne(query, ref, normalized),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Score > scores[b].Score
	})
	return scores, nil
}
