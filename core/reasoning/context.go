package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// NoEntitiesInsight is the only insight of a context without nodes.
const NoEntitiesInsight = "no relevant entities found"

// EntitySearcher finds the seed candidates of a context.
type EntitySearcher interface {
	Search(ctx context.Context, query model.SemanticQuery) (*model.SemanticSearchResult, error)
}

// Traverser expands a seed node into its neighbourhood.
type Traverser interface {
	Traverse(ctx context.Context, opts model.TraversalOptions) (*model.TraversalResult, error)
}

// Assembler builds the evidence bundle of a question and renders answers from it.
type Assembler struct {
	searcher          EntitySearcher
	traverser         Traverser
	logger            *slog.Logger
	weights           model.RelevanceWeights
	relationshipTypes []model.RelationshipType
}

func NewAssembler(searcher EntitySearcher, traverser Traverser, config *model.Config, logger *slog.Logger) *Assembler {
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		searcher:          searcher,
		traverser:         traverser,
		logger:            logger,
		weights:           config.Relevance,
		relationshipTypes: config.ContextRelationshipTypes,
	}
}

// GenerateContext searches the top candidates for query and expands the
// best one. No candidates is not an error: the context is empty with a
// relevance of 0.
func (a *Assembler) GenerateContext(ctx context.Context, query string, opts model.ContextOptions) (*model.GraphRAGContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, helper.NewValidationError("query", "is required")
	}

	search, err := a.searcher.Search(ctx, model.SemanticQuery{
		Concept:    query,
		MaxResults: model.ContextSeedCandidates,
	})
	if err != nil {
		return nil, helper.NewError("generate context", err)
	}

	return a.GenerateContextFromHits(ctx, query, search.Items, opts)
}

// GenerateContextFromHits builds the context from hits that were already
// searched, e.g. the graph branch of a hybrid search. hits must be ordered
// by descending score; the first one seeds the traversal.
func (a *Assembler) GenerateContextFromHits(ctx context.Context, query string, hits []model.ScoredNode, opts model.ContextOptions) (*model.GraphRAGContext, error) {
	graphContext := model.NewGraphRAGContext(query)
	if len(hits) > model.ContextSeedCandidates {
		hits = hits[:model.ContextSeedCandidates]
	}
	if len(hits) == 0 {
		graphContext.Insights = []string{NoEntitiesInsight}
		return graphContext, nil
	}

	seed := hits[0].Node
	graphContext.AddNode(seed)

	if opts.IncludeRelatedEntities && a.traverser != nil {
		depth := opts.MaxDepth
		if depth <= 0 {
			depth = model.DefaultContextDepth
		}
		types := opts.RelationshipTypes
		if len(types) == 0 {
			types = a.relationshipTypes
		}

		traversal, err := a.traverser.Traverse(ctx, model.TraversalOptions{
			StartNodeID:       seed.ID,
			RelationshipTypes: types,
			Direction:         model.DirectionBoth,
			MaxDepth:          depth,
		})
		if err != nil {
			return nil, helper.NewError("generate context", err)
		}
		for _, node := range traversal.Nodes {
			graphContext.AddNode(node)
		}
		for _, rel := range traversal.Relationships {
			graphContext.AddRelationship(rel)
		}
		for _, path := range traversal.Paths {
			graphContext.AddPath(path)
		}
	}

	for _, hit := range hits[1:] {
		graphContext.AddNode(hit.Node)
	}

	if opts.IncludeInsights {
		graphContext.Insights = Insights(graphContext)
	}
	graphContext.RelevanceScore = Relevance(graphContext, a.weights)

	a.logger.Debug("Generated context",
		slog.String("seed", seed.Name()),
		slog.Int("nodes", len(graphContext.Nodes)),
		slog.Int("relationships", len(graphContext.Relationships)),
		slog.Int("paths", len(graphContext.Paths)),
		slog.Float64("relevance", graphContext.RelevanceScore),
	)
	return graphContext, nil
}

// Relevance combines the evidence counts of a context into [0,1].
func Relevance(c *model.GraphRAGContext, weights model.RelevanceWeights) float64 {
	if c == nil {
		return 0
	}
	score := weights.Node*float64(len(c.Nodes)) +
		weights.Relationship*float64(len(c.Relationships)) +
		weights.Path*float64(len(c.Paths))
	return math.Max(0, math.Min(1, score))
}

// Insights derives plain observations about a context.
func Insights(c *model.GraphRAGContext) []string {
	if c == nil || c.IsEmpty() {
		return []string{NoEntitiesInsight}
	}

	insights := []string{
		fmt.Sprintf("Found %d related %s", len(c.Nodes), plural(len(c.Nodes), "entity", "entities")),
	}
	if len(c.Relationships) > 0 {
		insights = append(insights, fmt.Sprintf("Found %d %s", len(c.Relationships), plural(len(c.Relationships), "relationship", "relationships")))
	}
	if len(c.Paths) > 0 {
		insights = append(insights, fmt.Sprintf("Found %d connection %s", len(c.Paths), plural(len(c.Paths), "path", "paths")))
	}

	if len(c.Nodes) > 1 {
		if regions := distinct(c.Nodes, func(n *model.GraphNode) string { return n.Properties.GetString("region") }); len(regions) > 1 {
			insights = append(insights, fmt.Sprintf("Connects %d regions: %s", len(regions), strings.Join(regions, ", ")))
		}
		if categories := distinct(c.Nodes, func(n *model.GraphNode) string { return n.Properties.GetString("category") }); len(categories) > 1 {
			insights = append(insights, fmt.Sprintf("Spans %d categories: %s", len(categories), strings.Join(categories, ", ")))
		}
		if types := distinct(c.Nodes, func(n *model.GraphNode) string { return n.Properties.GetString("type") }); len(types) > 1 {
			insights = append(insights, fmt.Sprintf("Covers %d entity types: %s", len(types), strings.Join(types, ", ")))
		}
	}

	if strongest := strongestRelationship(c.Relationships); strongest != nil {
		insights = append(insights, fmt.Sprintf("Strongest connection: %s %s %s (%.2f)",
			nodeName(c, strongest.StartNodeID),
			strings.ToLower(strongest.Type.Label()),
			nodeName(c, strongest.EndNodeID),
			strongest.Strength(),
		))
	}
	return insights
}

// distinct collects the non-empty values of nodes in first-seen order.
func distinct(nodes []*model.GraphNode, value func(*model.GraphNode) string) []string {
	seen := map[string]bool{}
	values := []string{}
	for _, n := range nodes {
		v := strings.TrimSpace(value(n))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// strongestRelationship returns the first relationship with the highest strength.
func strongestRelationship(rels []*model.GraphRelationship) *model.GraphRelationship {
	if len(rels) == 0 {
		return nil
	}
	sorted := append([]*model.GraphRelationship(nil), rels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strength() > sorted[j].Strength()
	})
	return sorted[0]
}

func nodeName(c *model.GraphRAGContext, id string) string {
	if node := c.Node(id); node != nil && node.Name() != "" {
		return node.Name()
	}
	return id
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
