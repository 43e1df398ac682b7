package graphrag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/siherrmann/graphrag/core/reasoning"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/database/memstore"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/siherrmann/graphrag/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func initGraphRAG(t *testing.T, withVector bool) (*GraphRAG, *memstore.GraphStore, *memstore.VectorStore) {
	store := memstore.NewGraphStore()
	stores := Stores{Graph: store, Entities: store}

	var vector *memstore.VectorStore
	if withVector {
		vector = memstore.NewVectorStore()
		stores.Vector = vector
	}

	g, err := NewGraphRAGWithStores(stores, nil, nil)
	require.NoError(t, err, "Expected NewGraphRAGWithStores to not return an error")
	t.Cleanup(func() {
		_ = g.Close(context.Background())
	})
	return g, store, vector
}

func seedDiwali(t *testing.T, g *GraphRAG) {
	ctx := context.Background()
	_, err := g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Diwali", Type: model.EntityTypeFestival, Description: "Festival of lights", Region: "North India"})
	require.NoError(t, err)
	_, err = g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Lakshmi", Type: model.EntityTypeDeity, Description: "Goddess of wealth"})
	require.NoError(t, err)
	_, err = g.UpsertRelationship(ctx, &model.CulturalRelationship{From: "Diwali", To: "Lakshmi", Type: model.RelWorships, Strength: 0.9})
	require.NoError(t, err)
}

// gatedGraphStore holds the result of the first SearchNodes call until
// release is closed.
type gatedGraphStore struct {
	*memstore.GraphStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedGraphStore(store *memstore.GraphStore) *gatedGraphStore {
	return &gatedGraphStore{GraphStore: store, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedGraphStore) SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error) {
	hits, err := s.GraphStore.SearchNodes(ctx, term, types, limit)
	gated := false
	s.once.Do(func() { gated = true })
	if gated {
		close(s.entered)
		<-s.release
	}
	return hits, err
}

func contextNames(c *model.GraphRAGContext) []string {
	names := []string{}
	for _, n := range c.Nodes {
		names = append(names, n.Name())
	}
	return names
}

func TestNewGraphRAGWithStores(t *testing.T) {
	store := memstore.NewGraphStore()

	t.Run("Valid stores", func(t *testing.T) {
		g, err := NewGraphRAGWithStores(Stores{Graph: store, Entities: store}, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, g.Traversal, "Expected a traversal engine")
		assert.NotNil(t, g.Hybrid, "Expected a hybrid searcher")
		assert.NotNil(t, g.Pipeline, "Expected a default document pipeline")
		assert.Equal(t, model.DefaultConfig(), g.Config)
	})

	t.Run("Missing graph store", func(t *testing.T) {
		_, err := NewGraphRAGWithStores(Stores{Entities: store}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("Missing entity store", func(t *testing.T) {
		_, err := NewGraphRAGWithStores(Stores{Graph: store}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("Invalid config", func(t *testing.T) {
		config := model.DefaultConfig()
		config.GraphTimeout = 0
		_, err := NewGraphRAGWithStores(Stores{Graph: store, Entities: store}, config, nil)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("Known entity and its relationship", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)
		seedDiwali(t, g)

		response := g.Query(ctx, "Tell me about Diwali", model.DefaultQueryOptions())
		require.True(t, response.Success, "Expected query to succeed, got error %q", response.Error)
		assert.ElementsMatch(t, []string{"Diwali", "Lakshmi"}, contextNames(response.Context))
		require.Len(t, response.Context.Relationships, 1)
		assert.Equal(t, model.RelWorships, response.Context.Relationships[0].Type)
		assert.Contains(t, response.Answer, "Diwali")
		assert.Contains(t, response.Answer, "Lakshmi")
		assert.InDelta(t, 0.8, response.Confidence, 1e-9)
		assert.NotEmpty(t, response.Reasoning, "Expected reasoning steps")
		require.Len(t, response.Sources, 1, "Expected only the graph source without a vector store")
		assert.Equal(t, model.SourceGraph, response.Sources[0].Type)
		assert.Empty(t, response.Error)
	})

	t.Run("Unknown concept on a populated graph", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)
		_, err := g.InitializeGraph(ctx)
		require.NoError(t, err)

		response := g.Query(ctx, "nonexistent concept xyz123", model.DefaultQueryOptions())
		require.True(t, response.Success)
		assert.Empty(t, response.Context.Nodes)
		assert.Equal(t, 0.5, response.Confidence, "Expected the confidence floor")
		assert.Equal(t, reasoning.NotFoundAnswer, response.Answer)
	})

	t.Run("Graph store down", func(t *testing.T) {
		g, store, _ := initGraphRAG(t, false)
		seedDiwali(t, g)
		store.SetConnected(false)

		var response *model.QueryResponse
		assert.NotPanics(t, func() {
			response = g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		})
		require.NotNil(t, response)
		assert.False(t, response.Success)
		assert.NotEmpty(t, response.Error)
		assert.Contains(t, response.Error, helper.ErrGraphUnavailable.Error())
		assert.Equal(t, ApologyAnswer, response.Answer)
		assert.Equal(t, 0.0, response.Confidence)
		assert.Empty(t, response.Sources)
		assert.Empty(t, response.Context.Nodes)
		assert.Equal(t, []string{response.Error}, response.Reasoning)
	})

	t.Run("Confidence floor on low evidence", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)
		_, err := g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Bihu", Type: model.EntityTypeFestival})
		require.NoError(t, err)

		response := g.Query(ctx, "Bihu", model.DefaultQueryOptions())
		require.True(t, response.Success)
		assert.Equal(t, 0.2, response.Context.RelevanceScore)
		assert.Equal(t, 0.5, response.Confidence)
	})

	t.Run("Empty question", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)

		response := g.Query(ctx, " ", model.DefaultQueryOptions())
		assert.False(t, response.Success)
		assert.Contains(t, response.Error, "question")
	})

	t.Run("Reasoning can be disabled", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)
		seedDiwali(t, g)

		opts := model.DefaultQueryOptions()
		opts.GenerateReasoning = false
		response := g.Query(ctx, "Diwali", opts)
		require.True(t, response.Success)
		assert.Empty(t, response.Reasoning)
	})

	t.Run("Vector results become a source", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, true)
		_, err := g.InitializeGraph(ctx)
		require.NoError(t, err)

		response := g.Query(ctx, "Tell me about Diwali", model.DefaultQueryOptions())
		require.True(t, response.Success)
		require.Len(t, response.Sources, 2)
		assert.Equal(t, model.SourceVector, response.Sources[1].Type)
		assert.Equal(t, 0.8, response.Sources[1].Relevance)
		assert.NotEmpty(t, response.Sources[1].Items)
	})

	t.Run("Failing vector store degrades to graph only", func(t *testing.T) {
		g, _, vector := initGraphRAG(t, true)
		seedDiwali(t, g)
		vector.SetError(errors.New("pgvector down"))

		response := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		require.True(t, response.Success)
		assert.Len(t, response.Sources, 1)
		assert.Contains(t, response.Context.Nodes[0].Name(), "Diwali")
		assert.Contains(t, response.Reasoning[len(response.Reasoning)-1], "pgvector down")
	})

	t.Run("Repeated queries are served from the cache", func(t *testing.T) {
		g, store, _ := initGraphRAG(t, false)
		seedDiwali(t, g)

		first := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		calls := store.Calls()
		second := g.Query(ctx, "Diwali", model.DefaultQueryOptions())

		assert.Equal(t, first.Answer, second.Answer)
		assert.Equal(t, calls, store.Calls(), "Expected no store reads on the second query")
		assert.Equal(t, int64(1), store.Calls().SearchNodes)
	})

	t.Run("Writes invalidate the cache", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)
		seedDiwali(t, g)

		first := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		assert.Contains(t, first.Answer, "Festival of lights")

		_, err := g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Diwali", Type: model.EntityTypeFestival, Description: "Five day festival"})
		require.NoError(t, err)

		second := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		assert.Contains(t, second.Answer, "Five day festival")
	})
}

func TestCacheInvalidationDuringLoad(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewGraphStore()
	gated := newGatedGraphStore(store)
	g, err := NewGraphRAGWithStores(Stores{Graph: gated, Entities: store}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.Close(ctx)
	})
	seedDiwali(t, g)

	inFlight := make(chan []string)
	go func() {
		result, err := g.SemanticSearch(ctx, model.SemanticQuery{Concept: "Diwali"})
		assert.NoError(t, err)
		names := []string{}
		if result != nil {
			names = scoredNames(result.Items)
		}
		inFlight <- names
	}()
	<-gated.entered

	_, err = g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Bihu", Type: model.EntityTypeFestival, Description: "Harvest festival of Assam held in the Diwali season"})
	require.NoError(t, err)
	close(gated.release)
	assert.Equal(t, []string{"Diwali"}, <-inFlight, "Expected the running search to return what it read")

	result, err := g.SemanticSearch(ctx, model.SemanticQuery{Concept: "Diwali"})
	require.NoError(t, err)
	assert.Contains(t, scoredNames(result.Items), "Bihu", "Expected the search after the write to see the new entity")
	assert.Equal(t, int64(2), store.Calls().SearchNodes, "Expected the pre-write result not to be served from cache")
}

func TestQueryReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	g, _, _ := initGraphRAG(t, false)
	seedDiwali(t, g)

	resp := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Context.Nodes)
	held := resp.Context.Nodes[0]
	require.Equal(t, "Diwali", held.Name())

	_, err := g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Diwali", Type: model.EntityTypeFestival, Description: "Five day festival"})
	require.NoError(t, err)

	assert.Equal(t, "Festival of lights", held.Properties.GetString("description"), "Expected the returned node to be unaffected by later writes")
	next := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
	assert.Equal(t, "Five day festival", next.Context.Nodes[0].Properties.GetString("description"))
}

func scoredNames(items []model.ScoredNode) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Node.Name()
	}
	return names
}

func TestQuerySpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	g, store, _ := initGraphRAG(t, false)
	store.SetConnected(false)
	g.Query(context.Background(), "Diwali", model.DefaultQueryOptions())

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() == "graphrag.query" {
			found = true
			assert.Equal(t, codes.Error, span.Status().Code, "Expected the failed query to mark its span")
		}
	}
	assert.True(t, found, "Expected a query span")
}

func TestUpsertEntity(t *testing.T) {
	ctx := context.Background()
	g, _, _ := initGraphRAG(t, false)

	created, err := g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Onam", Type: model.EntityTypeFestival, Description: "Harvest festival"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.UpsertEntity(ctx, &model.CulturalEntity{Name: "Onam", Type: model.EntityTypeFestival, Description: "Harvest festival of Kerala"})
	require.NoError(t, err)
	assert.False(t, created, "Expected the second upsert to update")

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.NodeCount)

	result, err := g.SemanticSearch(ctx, model.SemanticQuery{Concept: "Onam"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Harvest festival of Kerala", result.Items[0].Node.Properties.GetString("description"))

	_, err = g.UpsertEntity(ctx, &model.CulturalEntity{Type: model.EntityTypeFestival})
	assert.ErrorIs(t, err, helper.ErrValidation)
}

func TestInitializeGraph(t *testing.T) {
	ctx := context.Background()
	g, _, vector := initGraphRAG(t, true)
	dataset, err := seed.Load()
	require.NoError(t, err)

	result, err := g.InitializeGraph(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, len(dataset.Entities), result.Created)
	assert.Equal(t, len(dataset.Relationships), result.RelationshipsCreated)
	assert.Empty(t, result.Errors)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(dataset.Entities)), stats.NodeCount)
	assert.Equal(t, int64(len(dataset.Relationships)), stats.RelationshipCount)

	knowledge := vector.SearchKnowledge(ctx, "rangoli", "", 10)
	require.True(t, knowledge.Success)
	assert.NotEmpty(t, knowledge.Items, "Expected seed knowledge in the vector store")

	again, err := g.InitializeGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created, "Expected a second initialization to only update")
	assert.Equal(t, len(dataset.Entities), again.Updated)
}

func TestLoadGraph(t *testing.T) {
	g, store, _ := initGraphRAG(t, false)
	entities := make([]*model.CulturalEntity, 10)
	for i := range entities {
		entities[i] = &model.CulturalEntity{Name: fmt.Sprintf("Festival %d", i), Type: model.EntityTypeFestival}
	}
	store.FailEntity("Festival 2", errors.New("constraint violation: duplicate name"))
	store.FailEntity("Festival 5", errors.New("constraint violation: duplicate name"))

	result := g.LoadGraph(context.Background(), entities, nil)
	assert.True(t, result.Success)
	assert.Equal(t, 8, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Festival 2")
	assert.Contains(t, result.Errors[1], "Festival 5")
}

func TestClearGraph(t *testing.T) {
	ctx := context.Background()
	g, _, _ := initGraphRAG(t, false)
	seedDiwali(t, g)

	t.Run("Refused without confirmation", func(t *testing.T) {
		deleted, err := g.ClearGraph(ctx, false)
		assert.ErrorIs(t, err, helper.ErrNotConfirmed)
		assert.Equal(t, int64(0), deleted)

		stats, err := g.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.NodeCount, "Expected the graph to be untouched")
	})

	t.Run("Clears with confirmation", func(t *testing.T) {
		response := g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		require.NotEmpty(t, response.Context.Nodes)

		deleted, err := g.ClearGraph(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		response = g.Query(ctx, "Diwali", model.DefaultQueryOptions())
		assert.Empty(t, response.Context.Nodes, "Expected no stale cached context after clearing")
	})
}

func TestAddDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("Chunks are searchable", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, true)

		doc := &model.Document{Title: "Festivals of the south", Content: "Onam is celebrated in Kerala. Pongal is celebrated in Tamil Nadu."}
		count, err := g.AddDocument(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Empty(t, doc.Content, "Expected the content to not be stored")

		result := g.SearchDocuments(ctx, "Kerala", 5)
		require.True(t, result.Success)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "Festivals of the south", result.Items[0].Metadata["document_title"])
	})

	t.Run("Requires a vector store", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, false)

		_, err := g.AddDocument(ctx, &model.Document{Title: "t", Content: "text"})
		assert.ErrorIs(t, err, retrieval.ErrVectorStoreMissing)
		assert.False(t, g.SearchDocuments(ctx, "text", 5).Success)
	})

	t.Run("Requires content", func(t *testing.T) {
		g, _, _ := initGraphRAG(t, true)

		_, err := g.AddDocument(ctx, &model.Document{Title: "t"})
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	g, store, vector := initGraphRAG(t, true)

	status := g.Health(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Graph.Connected)
	require.NotNil(t, status.Vector)
	assert.True(t, status.Vector.Connected)

	vector.SetError(errors.New("pgvector down"))
	status = g.Health(ctx)
	assert.True(t, status.Healthy, "Expected the vector store to be best effort")
	assert.False(t, status.Vector.Connected)

	store.SetConnected(false)
	status = g.Health(ctx)
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.Graph.Error)

	graphOnly, _, _ := initGraphRAG(t, false)
	assert.Nil(t, graphOnly.Health(ctx).Vector)
}

func TestCacheStats(t *testing.T) {
	ctx := context.Background()
	g, _, _ := initGraphRAG(t, false)
	seedDiwali(t, g)

	_, err := g.SemanticSearch(ctx, model.SemanticQuery{Concept: "Diwali"})
	require.NoError(t, err)
	_, err = g.SemanticSearch(ctx, model.SemanticQuery{Concept: "Diwali"})
	require.NoError(t, err)

	stats := g.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	g.ClearCache()
	assert.Equal(t, 0, g.CacheStats().Entries)
}
