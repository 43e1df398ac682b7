package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/siherrmann/graphrag/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrVectorStoreMissing is reported by the vector branch when no store is configured.
var ErrVectorStoreMissing = errors.New("vector store not configured")

// VectorStore is the knowledge search of the vector/text store.
type VectorStore interface {
	SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult
}

// HybridSearcher blends graph and vector results into one ranking.
type HybridSearcher struct {
	semantic          *SemanticSearcher
	vector            VectorStore
	logger            *slog.Logger
	tracer            trace.Tracer
	graphTimeout      time.Duration
	vectorTimeout     time.Duration
	weights           model.HybridWeights
	defaultMaxResults int
}

// NewHybridSearcher creates a hybrid searcher. vector may be nil, in which
// case the vector branch always reports a failure.
func NewHybridSearcher(semantic *SemanticSearcher, vector VectorStore, config *model.Config, logger *slog.Logger) *HybridSearcher {
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridSearcher{
		semantic:          semantic,
		vector:            vector,
		logger:            logger,
		tracer:            otel.Tracer("github.com/siherrmann/graphrag/core/retrieval"),
		graphTimeout:      config.GraphTimeout,
		vectorTimeout:     config.VectorTimeout,
		weights:           config.HybridWeights,
		defaultMaxResults: config.HybridMaxResults,
	}
}

// Search runs the enabled branches concurrently. A failing or timed out
// branch contributes no items and never fails the whole search.
func (h *HybridSearcher) Search(ctx context.Context, query model.HybridQuery) *model.HybridSearchResult {
	ctx, span := h.tracer.Start(ctx, "hybrid.search", trace.WithAttributes(
		attribute.String("query", query.Query),
		attribute.Bool("include_graph", query.IncludeGraph),
		attribute.Bool("include_vector", query.IncludeVector),
	))
	defer span.End()

	weights := h.weights
	if query.Weights != nil {
		weights = *query.Weights
	}
	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = h.defaultMaxResults
	}

	result := &model.HybridSearchResult{
		GraphResults:  model.GraphBranchResult{Success: true, Items: []model.ScoredNode{}},
		VectorResults: model.VectorSearchResult{Success: true, Items: []model.VectorItem{}},
		Ranked:        []model.RankedItem{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if query.IncludeGraph {
		g.Go(func() error {
			result.GraphResults = h.graphBranch(gctx, query, maxResults)
			return nil
		})
	}
	if query.IncludeVector {
		g.Go(func() error {
			result.VectorResults = h.vectorBranch(gctx, query, maxResults)
			return nil
		})
	}
	_ = g.Wait()

	result.Ranked = rank(result, weights, maxResults)
	if len(result.Ranked) > 0 {
		sum := 0.0
		for _, item := range result.Ranked {
			sum += item.CombinedScore
		}
		result.CombinedScore = sum / float64(len(result.Ranked))
	}
	result.Explanation = explain(result, weights)

	span.SetAttributes(
		attribute.Int("graph_results", len(result.GraphResults.Items)),
		attribute.Int("vector_results", len(result.VectorResults.Items)),
		attribute.Float64("combined_score", result.CombinedScore),
	)
	h.logger.Debug("Hybrid search", slog.String("query", query.Query), slog.String("explanation", result.Explanation))

	return result
}

func (h *HybridSearcher) graphBranch(ctx context.Context, query model.HybridQuery, maxResults int) model.GraphBranchResult {
	ctx, span := h.tracer.Start(ctx, "hybrid.graph")
	defer span.End()

	if h.graphTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.graphTimeout)
		defer cancel()
	}

	semantic, err := h.semantic.Search(ctx, model.SemanticQuery{
		Concept:    query.Query,
		Context:    query.GraphContext,
		MaxResults: maxResults,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Warn("Graph branch failed", slog.String("error", err.Error()))
		return model.GraphBranchResult{Success: false, Items: []model.ScoredNode{}, Error: err.Error()}
	}
	return model.GraphBranchResult{Success: true, Items: semantic.Items}
}

func (h *HybridSearcher) vectorBranch(ctx context.Context, query model.HybridQuery, maxResults int) model.VectorSearchResult {
	ctx, span := h.tracer.Start(ctx, "hybrid.vector")
	defer span.End()

	if h.vector == nil {
		return model.VectorSearchResult{Success: false, Items: []model.VectorItem{}, Error: ErrVectorStoreMissing.Error()}
	}

	if h.vectorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.vectorTimeout)
		defer cancel()
	}

	result := h.vector.SearchKnowledge(ctx, query.Query, query.Category, maxResults)
	if result == nil {
		result = &model.VectorSearchResult{Success: false, Error: "empty vector store response"}
	}
	if result.Items == nil {
		result.Items = []model.VectorItem{}
	}
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
		h.logger.Warn("Vector branch failed", slog.String("error", result.Error))
		result.Items = []model.VectorItem{}
	}
	return *result
}

func rank(result *model.HybridSearchResult, weights model.HybridWeights, maxResults int) []model.RankedItem {
	ranked := make([]model.RankedItem, 0, len(result.GraphResults.Items)+len(result.VectorResults.Items))
	for _, hit := range result.GraphResults.Items {
		ranked = append(ranked, model.RankedItem{
			Source:        model.SourceGraph,
			ID:            hit.Node.ID,
			Title:         hit.Node.Name(),
			Content:       hit.Node.Properties.GetString("description"),
			Score:         hit.Score,
			Weight:        weights.Graph,
			CombinedScore: hit.Score * weights.Graph,
			Node:          hit.Node,
		})
	}
	for _, item := range result.VectorResults.Items {
		ranked = append(ranked, model.RankedItem{
			Source:        model.SourceVector,
			ID:            item.ID,
			Title:         vectorTitle(item),
			Content:       item.Content,
			Score:         item.Score,
			Weight:        weights.Vector,
			CombinedScore: item.Score * weights.Vector,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}

func vectorTitle(item model.VectorItem) string {
	for _, key := range []string{"title", "document_title"} {
		if title := item.Metadata.GetString(key); title != "" {
			return title
		}
	}
	runes := []rune(item.Content)
	if len(runes) > 60 {
		return string(runes[:60]) + "..."
	}
	return item.Content
}

func explain(result *model.HybridSearchResult, weights model.HybridWeights) string {
	return fmt.Sprintf(
		"Combined %d graph results (weight %.1f) and %d vector results (weight %.1f) into %d ranked items; text weight %.1f reserved",
		len(result.GraphResults.Items), weights.Graph,
		len(result.VectorResults.Items), weights.Vector,
		len(result.Ranked), weights.Text,
	)
}
