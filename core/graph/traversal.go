package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/siherrmann/graphrag/core/cache"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// GraphDB defines the graph reads a traversal needs
type GraphDB interface {
	GetNode(ctx context.Context, id string) (*model.GraphNode, error)
	GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]model.Neighbor, error)
}

// Engine runs bounded traversals over the cultural graph.
type Engine struct {
	db                GraphDB
	cache             *cache.QueryCache
	logger            *slog.Logger
	timeout           time.Duration
	defaultDepth      int
	defaultMaxResults int
}

// NewEngine creates a traversal engine. A nil cache disables caching.
func NewEngine(db GraphDB, queryCache *cache.QueryCache, config *model.Config, logger *slog.Logger) *Engine {
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:                db,
		cache:             queryCache,
		logger:            logger,
		timeout:           config.GraphTimeout,
		defaultDepth:      config.TraversalDepth,
		defaultMaxResults: config.TraversalMaxResults,
	}
}

// Traverse explores the graph from opts.StartNodeID. Zero options select the
// defaults and MaxDepth is capped at model.MaxTraversalDepth. An unknown
// start node yields an empty result.
func (e *Engine) Traverse(ctx context.Context, opts model.TraversalOptions) (*model.TraversalResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults(e.defaultDepth, e.defaultMaxResults)

	return cache.GetOrLoad(ctx, e.cache, "traverse", opts, func(ctx context.Context) (*model.TraversalResult, error) {
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		result, err := BFS(ctx, e.db, opts)
		if err != nil {
			return nil, helper.NewError("traverse", err)
		}

		e.logger.Debug("Traversed graph",
			slog.String("start", opts.StartNodeID),
			slog.Int("max_depth", opts.MaxDepth),
			slog.Int("paths", result.TotalPaths),
			slog.Int("nodes", len(result.Nodes)),
		)
		return result, nil
	})
}

// BFS enumerates simple paths from the start node level by level, so all
// paths of length n come before any path of length n+1. It stops after
// opts.MaxResults paths. opts must already carry its defaults.
func BFS(ctx context.Context, db GraphDB, opts model.TraversalOptions) (*model.TraversalResult, error) {
	result := &model.TraversalResult{
		Paths:         []*model.GraphPath{},
		Nodes:         []*model.GraphNode{},
		Relationships: []*model.GraphRelationship{},
	}

	start, err := db.GetNode(ctx, opts.StartNodeID)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return result, nil
	}

	// Neighbor lists are fetched once per node and traversal.
	neighborsOf := map[string][]model.Neighbor{}
	frontier := []*model.GraphPath{model.NewGraphPath([]*model.GraphNode{start}, nil)}

levels:
	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []*model.GraphPath
		for _, path := range frontier {
			end := path.End()
			neighbors, ok := neighborsOf[end.ID]
			if !ok {
				neighbors, err = db.GetNeighbors(ctx, end.ID, opts.RelationshipTypes, opts.Direction)
				if err != nil {
					return nil, err
				}
				neighborsOf[end.ID] = neighbors
			}

			for _, neighbor := range neighbors {
				if neighbor.Node == nil || neighbor.Relationship == nil {
					continue
				}
				if path.Contains(neighbor.Node.ID) || !neighbor.Node.HasAnyLabel(opts.Filters.NodeLabels) {
					continue
				}

				extended := path.Extend(neighbor.Relationship, neighbor.Node)
				result.Paths = append(result.Paths, extended)
				if len(result.Paths) >= opts.MaxResults {
					break levels
				}
				next = append(next, extended)
			}
		}
		frontier = next
	}

	collect(result, start)
	return result, nil
}

// collect derives the node and relationship sets from the start node and the paths.
func collect(result *model.TraversalResult, start *model.GraphNode) {
	seenNodes := map[string]bool{start.ID: true}
	seenRels := map[string]bool{}
	result.Nodes = append(result.Nodes, start)

	for _, path := range result.Paths {
		for _, n := range path.Nodes {
			if !seenNodes[n.ID] {
				seenNodes[n.ID] = true
				result.Nodes = append(result.Nodes, n)
			}
		}
		for _, r := range path.Relationships {
			if !seenRels[r.ID] {
				seenRels[r.ID] = true
				result.Relationships = append(result.Relationships, r)
			}
		}
	}
	result.TotalPaths = len(result.Paths)
}

// GetNeighbors returns the nodes one hop away from nodeID.
func (e *Engine) GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]*model.GraphNode, error) {
	result, err := e.Traverse(ctx, model.TraversalOptions{
		StartNodeID:       nodeID,
		RelationshipTypes: types,
		Direction:         direction,
		MaxDepth:          1,
		MaxResults:        e.defaultMaxResults,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Nodes) == 0 {
		return []*model.GraphNode{}, nil
	}
	// result may be shared through the cache
	neighbors := make([]*model.GraphNode, len(result.Nodes)-1)
	copy(neighbors, result.Nodes[1:])
	return neighbors, nil
}
