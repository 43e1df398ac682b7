package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/siherrmann/graphrag/core/cache"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// candidatePool is the minimum number of raw hits fetched before scoring
// and filtering, so the context filter has enough to choose from.
const candidatePool = 50

// NodeSearcher is the full-text entity search of the graph store.
type NodeSearcher interface {
	SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error)
}

// SemanticSearcher finds entities matching a concept.
type SemanticSearcher struct {
	store             NodeSearcher
	cache             *cache.QueryCache
	logger            *slog.Logger
	timeout           time.Duration
	defaultMaxResults int
	defaultMinScore   float64
	minRawScore       float64
}

// NewSemanticSearcher creates a semantic searcher. A nil cache disables caching.
func NewSemanticSearcher(store NodeSearcher, queryCache *cache.QueryCache, config *model.Config, logger *slog.Logger) *SemanticSearcher {
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticSearcher{
		store:             store,
		cache:             queryCache,
		logger:            logger,
		timeout:           config.GraphTimeout,
		defaultMaxResults: config.SemanticMaxResults,
		defaultMinScore:   config.SemanticMinScore,
		minRawScore:       config.SemanticMinRawScore,
	}
}

// Search returns entities ordered by descending relevance in [0,1]. Raw index
// scores are normalized by the best hit, so the best hit always scores 1 and
// only the raw score floor can reject it. Ties keep the store order.
func (s *SemanticSearcher) Search(ctx context.Context, query model.SemanticQuery) (*model.SemanticSearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.MaxResults == 0 {
		query.MaxResults = s.defaultMaxResults
	}
	minScore := s.defaultMinScore
	if query.MinScore != nil {
		minScore = *query.MinScore
	}
	query.MinScore = &minScore

	return cache.GetOrLoad(ctx, s.cache, "semantic", query, func(ctx context.Context) (*model.SemanticSearchResult, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		limit := query.MaxResults * 3
		if limit < candidatePool {
			limit = candidatePool
		}
		hits, err := s.store.SearchNodes(ctx, query.SearchTerm(), query.RelationshipTypes, limit)
		if err != nil {
			return nil, helper.NewError("semantic search", err)
		}

		items := score(hits, query, s.minRawScore)
		s.logger.Debug("Semantic search",
			slog.String("concept", query.Concept),
			slog.Int("candidates", len(hits)),
			slog.Int("results", len(items)),
		)
		return &model.SemanticSearchResult{Items: items, TotalResults: len(items)}, nil
	})
}

func score(hits []model.ScoredNode, query model.SemanticQuery, minRawScore float64) []model.ScoredNode {
	items := []model.ScoredNode{}
	top := 0.0
	for _, hit := range hits {
		if hit.Score > top {
			top = hit.Score
		}
	}
	if top <= 0 {
		return items
	}

	contextTerm := strings.ToLower(strings.TrimSpace(query.Context))
	for _, hit := range hits {
		if hit.Score < minRawScore {
			continue
		}
		normalized := hit.Score / top
		if normalized < *query.MinScore {
			continue
		}
		if contextTerm != "" && !matchesContext(hit.Node, contextTerm) {
			continue
		}
		items = append(items, model.ScoredNode{Node: hit.Node, Score: normalized})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if len(items) > query.MaxResults {
		items = items[:query.MaxResults]
	}
	return items
}

func matchesContext(node *model.GraphNode, term string) bool {
	for _, key := range []string{"region", "category", "description"} {
		if strings.Contains(strings.ToLower(node.Properties.GetString(key)), term) {
			return true
		}
	}
	return false
}
