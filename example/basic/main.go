package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

const sampleContent = `Onam is the harvest festival of Kerala. It falls in the Malayalam month of Chingam.

Families lay a pookalam of flowers in front of their homes and share the Onam Sadhya, a feast served on a banana leaf.

Snake boat races are held on the rivers and Kathakali performances tell stories from the epics.`

func main() {
	ctx := context.Background()

	// Start test containers for the graph and the vector store
	teardownPostgres, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardownPostgres(ctx)

	teardownNeo4j, neo4jURI, err := helper.MustStartNeo4jContainer()
	if err != nil {
		log.Fatalf("Failed to start Neo4j container: %v", err)
	}
	defer teardownNeo4j(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:         "localhost",
		Port:         dbPort,
		Database:     "graphrag_test",
		Username:     "graphrag",
		Password:     "graphrag",
		Schema:       "public",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		PingTimeout:  5 * time.Second,
	}
	neo4jConfig := &helper.Neo4jConfiguration{
		URI:                     neo4jURI,
		Database:                "neo4j",
		MaxConnectionPoolSize:   10,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 15 * time.Second,
		QueryTimeout:            10 * time.Second,
	}

	// The default embedder downloads its model on first use
	g, err := graphrag.NewGraphRAG(ctx, neo4jConfig, dbConfig, graphrag.WithDefaultEmbedder())
	if err != nil {
		log.Fatalf("Failed to create graphrag: %v", err)
	}
	defer g.Close(ctx)

	fmt.Println("Loading cultural dataset...")
	result, err := g.InitializeGraph(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize graph: %v", err)
	}
	fmt.Printf("Created %d entities and %d relationships (%d errors)\n", result.Created, result.RelationshipsCreated, len(result.Errors))

	numChunks, err := g.AddDocument(ctx, &model.Document{
		Title:   "Onam in Kerala",
		Source:  "basic_example",
		Content: sampleContent,
	})
	if err != nil {
		log.Fatalf("Failed to add document: %v", err)
	}
	fmt.Printf("Added document with %d chunks\n", numChunks)

	// Wait for the full-text index to pick up the new entities
	time.Sleep(2 * time.Second)

	for _, question := range []string{
		"Tell me about Diwali",
		"What is eaten during Onam?",
		"nonexistent concept xyz123",
	} {
		response := g.Query(ctx, question, model.DefaultQueryOptions())
		fmt.Printf("\n=== %s ===\n", question)
		if !response.Success {
			fmt.Printf("Query failed: %s\n", response.Error)
			continue
		}
		fmt.Println(response.Answer)
		fmt.Printf("\nConfidence: %.2f, took %s\n", response.Confidence, response.ExecutionTime)
		fmt.Printf("Reasoning:\n  - %s\n", strings.Join(response.Reasoning, "\n  - "))
	}
}
