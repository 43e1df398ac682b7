package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Runs against an existing deployment configured through GRAPHRAG_NEO4J_*
// and GRAPHRAG_DB_* environment variables or a .env file.
func main() {
	ctx := context.Background()

	neo4jConfig, err := helper.NewNeo4jConfiguration()
	if err != nil {
		log.Fatalf("Failed to read neo4j configuration: %v", err)
	}
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("Failed to read database configuration: %v", err)
	}

	config := model.DefaultConfig()
	config.TraversalDepth = 2
	config.HybridWeights = model.HybridWeights{Graph: 0.7, Vector: 0.3}
	config.ContextRelationshipTypes = []model.RelationshipType{
		model.RelRelatedTo, model.RelAssociatedWith, model.RelPartOf, model.RelCelebratedIn, model.RelWorships,
	}

	g, err := graphrag.NewGraphRAG(ctx, neo4jConfig, dbConfig,
		graphrag.WithConfig(config),
		graphrag.WithLogger(helper.NewLogger(os.Stdout, slog.LevelDebug)),
	)
	if err != nil {
		log.Fatalf("Failed to create graphrag: %v", err)
	}
	defer g.Close(ctx)

	health := g.Health(ctx)
	fmt.Printf("Graph connected: %v (%s)\n", health.Graph.Connected, health.Graph.Version)
	if health.Vector != nil {
		fmt.Printf("Vector connected: %v\n", health.Vector.Connected)
	}

	stats, err := g.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	if stats.NodeCount == 0 {
		fmt.Println("Graph is empty, loading cultural dataset...")
		if _, err := g.InitializeGraph(ctx); err != nil {
			log.Fatalf("Failed to initialize graph: %v", err)
		}
	}
	fmt.Printf("Labels: %v\nRelationship types: %v\n", stats.Labels, stats.RelationshipTypes)

	// Semantic search restricted to one region
	semantic, err := g.SemanticSearch(ctx, model.SemanticQuery{
		Concept:    "festival",
		Context:    "Kerala",
		MaxResults: 5,
		MinScore:   model.Float64(0.3),
	})
	if err != nil {
		log.Fatalf("Semantic search failed: %v", err)
	}
	fmt.Println("\nFestivals in Kerala:")
	for _, item := range semantic.Items {
		fmt.Printf("  %.2f %s\n", item.Score, item.Node.Name())
	}
	if len(semantic.Items) == 0 {
		return
	}

	// Outgoing traversal from the best hit, places only
	traversal, err := g.Traverse(ctx, model.TraversalOptions{
		StartNodeID: semantic.Items[0].Node.ID,
		Direction:   model.DirectionOutgoing,
		MaxDepth:    3,
		Filters:     model.TraversalFilters{NodeLabels: []model.NodeLabel{model.EntityTypePlace.Label()}},
	})
	if err != nil {
		log.Fatalf("Traversal failed: %v", err)
	}
	fmt.Printf("\nPlaces reachable from %s (%d paths):\n", semantic.Items[0].Node.Name(), traversal.TotalPaths)
	for _, path := range traversal.Paths {
		fmt.Printf("  %s (length %d)\n", path.End().Name(), path.Length)
	}

	// Hybrid search with the configured weights
	hybrid := g.HybridSearch(ctx, model.NewHybridQuery("harvest festival food"))
	fmt.Printf("\n%s\n", hybrid.Explanation)
	for _, item := range hybrid.Ranked {
		fmt.Printf("  [%s] %.2f %s\n", item.Source, item.CombinedScore, item.Title)
	}

	// Context only, for handing to an external generator
	graphContext, err := g.GenerateContext(ctx, "Durga Puja", model.DefaultContextOptions())
	if err != nil {
		log.Fatalf("Context generation failed: %v", err)
	}
	fmt.Printf("\nContext for Durga Puja (relevance %.2f):\n", graphContext.RelevanceScore)
	for _, insight := range graphContext.Insights {
		fmt.Printf("  - %s\n", insight)
	}
}
