package graphrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/core/cache"
	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/core/reasoning"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/siherrmann/graphrag/seed"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ApologyAnswer is the answer of a query that failed.
const ApologyAnswer = "I'm sorry, I ran into a problem while searching the cultural knowledge graph. Please try again later."

// GraphStore is the read side of the graph store.
type GraphStore interface {
	GetNode(ctx context.Context, id string) (*model.GraphNode, error)
	GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]model.Neighbor, error)
	SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error)
	CheckConnection(ctx context.Context) *model.ConnectionStatus
	Stats(ctx context.Context) (*model.GraphStats, error)
}

// EntityStore is the write side of the graph store.
type EntityStore interface {
	UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error)
	UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error)
	ClearGraph(ctx context.Context, confirm bool) (int64, error)
}

// VectorStore is the vector/text store.
type VectorStore interface {
	SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult
	SearchDocuments(ctx context.Context, query string, limit int) *model.VectorSearchResult
	InsertKnowledge(ctx context.Context, knowledge *model.Knowledge) error
	AddDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error
	CheckConnection(ctx context.Context) *model.ConnectionStatus
}

// Stores are the backing stores of a GraphRAG. Vector is optional.
type Stores struct {
	Graph    GraphStore
	Entities EntityStore
	Vector   VectorStore
}

// GraphRAG answers questions from the cultural knowledge graph, optionally
// blended with the vector store.
type GraphRAG struct {
	Config    *model.Config
	Traversal *graph.Engine
	Semantic  *retrieval.SemanticSearcher
	Hybrid    *retrieval.HybridSearcher
	Assembler *reasoning.Assembler
	Loader    *pipeline.GraphLoader
	Pipeline  *pipeline.Pipeline // Document ingestion

	graph    GraphStore
	entities EntityStore
	vector   VectorStore
	cache    *cache.QueryCache
	closers  []func(ctx context.Context) error
	// Logging and tracing
	log    *slog.Logger
	tracer trace.Tracer
}

// NewGraphRAG connects to Neo4j and, if dbConfig is set, to Postgres. An
// unreachable Postgres is not fatal: the engine runs graph-only.
func NewGraphRAG(ctx context.Context, neo4jConfig *helper.Neo4jConfiguration, dbConfig *helper.DatabaseConfiguration, opts ...Option) (*GraphRAG, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	var closers []func(ctx context.Context) error
	closeAll := func() {
		for _, c := range closers {
			_ = c(context.Background())
		}
	}

	if o.defaultEmbedder && o.embed == nil {
		embedder, err := pipeline.DefaultEmbedder()
		if err != nil {
			return nil, helper.NewError("create default embedder", err)
		}
		o.embed = embedder.Func()
		closers = append(closers, func(ctx context.Context) error { return embedder.Close() })
	}

	graphDB, err := database.NewGraphDBHandler(neo4jConfig, o.logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, graphDB.Close)

	err = graphDB.Connect(ctx, o.connectRetries)
	if err != nil {
		closeAll()
		return nil, err
	}

	entities, err := database.NewEntitiesDBHandler(ctx, graphDB, o.ensureSchema)
	if err != nil {
		closeAll()
		return nil, err
	}

	stores := Stores{Graph: graphDB, Entities: entities}
	if dbConfig != nil && !o.withoutVector {
		vector, err := newVectorStore(ctx, dbConfig, o)
		if err != nil {
			o.logger.Warn("Vector store unavailable, running graph-only", slog.String("error", err.Error()))
		} else {
			stores.Vector = vector
			closers = append(closers, func(ctx context.Context) error { return vector.Close() })
		}
	}

	g, err := NewGraphRAGWithStores(stores, o.config, o.logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	g.closers = closers

	if o.documentPipeline != nil {
		g.Pipeline = o.documentPipeline
	} else if o.embed != nil {
		g.Pipeline = pipeline.NewPipeline(pipeline.SemanticChunker(o.embed, 500, 0.7), o.embed)
	}

	return g, nil
}

func newVectorStore(ctx context.Context, config *helper.DatabaseConfiguration, o *options) (*database.VectorDBHandler, error) {
	db := helper.NewDatabase("graphrag", config, o.logger)
	err := db.Ping(ctx)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("ping vector store", err)
	}

	vector, err := database.NewVectorDBHandler(db, o.embeddingDim, o.embed, false)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return vector, nil
}

// NewGraphRAGWithStores wires the engines on top of already created stores.
func NewGraphRAGWithStores(stores Stores, config *model.Config, logger *slog.Logger) (*GraphRAG, error) {
	if stores.Graph == nil {
		return nil, helper.NewError("graphrag stores validation", fmt.Errorf("graph store is nil"))
	}
	if stores.Entities == nil {
		return nil, helper.NewError("graphrag stores validation", fmt.Errorf("entity store is nil"))
	}
	if config == nil {
		config = model.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("graphrag config validation", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	queryCache, err := cache.NewQueryCache(config.CacheCapacity, config.CacheTTL, logger)
	if err != nil {
		return nil, helper.NewError("create query cache", err)
	}

	var vector retrieval.VectorStore
	if stores.Vector != nil {
		vector = stores.Vector
	}

	traversal := graph.NewEngine(stores.Graph, queryCache, config, logger)
	semantic := retrieval.NewSemanticSearcher(stores.Graph, queryCache, config, logger)

	logger.Info("Initialized GraphRAG", slog.Bool("vector_store", stores.Vector != nil))

	return &GraphRAG{
		Config:    config,
		Traversal: traversal,
		Semantic:  semantic,
		Hybrid:    retrieval.NewHybridSearcher(semantic, vector, config, logger),
		Assembler: reasoning.NewAssembler(semantic, traversal, config, logger),
		Loader:    pipeline.NewGraphLoader(stores.Entities, logger),
		Pipeline:  pipeline.NewPipeline(pipeline.SentenceChunker(5), nil),
		graph:     stores.Graph,
		entities:  stores.Entities,
		vector:    stores.Vector,
		cache:     queryCache,
		log:       logger,
		tracer:    otel.Tracer("github.com/siherrmann/graphrag"),
	}, nil
}

// SetPipeline sets the document ingestion pipeline.
func (g *GraphRAG) SetPipeline(p *pipeline.Pipeline) {
	g.Pipeline = p
}

// Query answers a question. It never returns an error: failures are
// reported through Success and Error together with an apology answer.
func (g *GraphRAG) Query(ctx context.Context, question string, opts model.QueryOptions) *model.QueryResponse {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "graphrag.query", trace.WithAttributes(
		attribute.String("question", question),
		attribute.Bool("include_vector", opts.IncludeVector),
		attribute.Int("max_depth", opts.MaxDepth),
	))
	defer span.End()

	fail := func(err error) *model.QueryResponse {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.log.Error("Query failed", slog.String("question", question), slog.String("error", err.Error()))
		return &model.QueryResponse{
			Success:       false,
			Answer:        ApologyAnswer,
			Context:       model.NewGraphRAGContext(question),
			Sources:       []model.Source{},
			Reasoning:     []string{err.Error()},
			Confidence:    0,
			ExecutionTime: time.Since(start),
			Error:         err.Error(),
		}
	}

	if strings.TrimSpace(question) == "" {
		return fail(helper.NewValidationError("question", "is required"))
	}

	status := g.graph.CheckConnection(ctx)
	if !status.Connected {
		return fail(helper.NewError("query", fmt.Errorf("%w: %s", helper.ErrGraphUnavailable, status.Error)))
	}

	hybridQuery := model.NewHybridQuery(question)
	hybridQuery.IncludeVector = opts.IncludeVector
	hybrid := g.Hybrid.Search(ctx, hybridQuery)

	contextOptions := model.DefaultContextOptions()
	if opts.MaxDepth > 0 {
		contextOptions.MaxDepth = opts.MaxDepth
	}
	graphContext, err := g.Assembler.GenerateContextFromHits(ctx, question, hybrid.GraphResults.Items, contextOptions)
	if err != nil {
		return fail(err)
	}

	sources := []model.Source{{
		Type:          model.SourceGraph,
		Nodes:         graphContext.Nodes,
		Relationships: graphContext.Relationships,
		Relevance:     graphContext.RelevanceScore,
	}}
	if opts.IncludeVector && hybrid.VectorResults.Success {
		sources = append(sources, model.Source{
			Type:      model.SourceVector,
			Items:     hybrid.VectorResults.Items,
			Relevance: g.Config.VectorSourceRelevance,
		})
	}

	steps := []string{}
	if opts.GenerateReasoning {
		steps = reasoning.ReasoningSteps(question, hybrid, graphContext, opts.IncludeVector)
	}

	confidence := graphContext.RelevanceScore
	if confidence < g.Config.ConfidenceFloor {
		confidence = g.Config.ConfidenceFloor
	}

	span.SetAttributes(
		attribute.Int("context.nodes", len(graphContext.Nodes)),
		attribute.Float64("confidence", confidence),
	)
	g.log.Debug("Answered query",
		slog.String("question", question),
		slog.Int("nodes", len(graphContext.Nodes)),
		slog.Float64("confidence", confidence),
	)

	return &model.QueryResponse{
		Success:       true,
		Answer:        reasoning.Answer(question, graphContext),
		Context:       graphContext,
		Sources:       sources,
		Reasoning:     steps,
		Confidence:    confidence,
		ExecutionTime: time.Since(start),
	}
}

// Traverse walks the graph from a start node.
func (g *GraphRAG) Traverse(ctx context.Context, opts model.TraversalOptions) (*model.TraversalResult, error) {
	return g.Traversal.Traverse(ctx, opts)
}

// SemanticSearch finds entities matching a concept.
func (g *GraphRAG) SemanticSearch(ctx context.Context, query model.SemanticQuery) (*model.SemanticSearchResult, error) {
	return g.Semantic.Search(ctx, query)
}

// HybridSearch blends graph and vector results.
func (g *GraphRAG) HybridSearch(ctx context.Context, query model.HybridQuery) *model.HybridSearchResult {
	return g.Hybrid.Search(ctx, query)
}

// GenerateContext builds the evidence bundle of a question.
func (g *GraphRAG) GenerateContext(ctx context.Context, query string, opts model.ContextOptions) (*model.GraphRAGContext, error) {
	return g.Assembler.GenerateContext(ctx, query, opts)
}

// UpsertEntity creates or updates an entity by name. Cached reads are dropped.
func (g *GraphRAG) UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error) {
	created, err := g.entities.UpsertEntity(ctx, entity)
	if err != nil {
		return false, err
	}
	g.cache.Clear()
	return created, nil
}

// UpsertRelationship creates or updates a relationship between two entities.
func (g *GraphRAG) UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error) {
	created, err := g.entities.UpsertRelationship(ctx, relationship)
	if err != nil {
		return false, err
	}
	g.cache.Clear()
	return created, nil
}

// LoadGraph bulk loads entities and relationships, tolerating single failures.
func (g *GraphRAG) LoadGraph(ctx context.Context, entities []*model.CulturalEntity, relationships []*model.CulturalRelationship) *model.BulkResult {
	result := g.Loader.Load(ctx, entities, relationships)
	g.cache.Clear()
	return result
}

// InitializeGraph loads the built-in cultural dataset. Its knowledge
// snippets go to the vector store if one is configured.
func (g *GraphRAG) InitializeGraph(ctx context.Context) (*model.BulkResult, error) {
	dataset, err := seed.Load()
	if err != nil {
		return nil, helper.NewError("load seed dataset", err)
	}

	result := g.LoadGraph(ctx, dataset.Entities, dataset.Relationships)

	if g.vector != nil {
		inserted := 0
		for _, knowledge := range dataset.KnowledgeRecords() {
			err := g.vector.InsertKnowledge(ctx, knowledge)
			if err != nil {
				g.log.Warn("Failed to insert knowledge", slog.String("error", err.Error()))
				continue
			}
			inserted++
		}
		g.log.Info("Inserted knowledge", slog.Int("count", inserted))
	}

	return result, nil
}

// ClearGraph removes all graph data. It refuses to do anything unless
// confirm is true.
func (g *GraphRAG) ClearGraph(ctx context.Context, confirm bool) (int64, error) {
	if !confirm {
		return 0, helper.NewError("clear graph", helper.ErrNotConfirmed)
	}

	deleted, err := g.entities.ClearGraph(ctx, confirm)
	if err != nil {
		return 0, err
	}
	g.cache.Clear()
	g.log.Warn("Cleared graph", slog.Int64("deleted_nodes", deleted))
	return deleted, nil
}

// AddDocument chunks and embeds doc.Content with the pipeline and stores
// the document and its chunks in the vector store. The content itself is
// not stored. It returns the number of chunks.
func (g *GraphRAG) AddDocument(ctx context.Context, doc *model.Document) (int, error) {
	if g.vector == nil {
		return 0, helper.NewError("add document", retrieval.ErrVectorStoreMissing)
	}
	if g.Pipeline == nil {
		return 0, helper.NewError("add document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return 0, helper.NewError("add document", helper.NewValidationError("content", "is required"))
	}

	content := doc.Content
	doc.Content = ""

	chunks, err := g.Pipeline.Process(content, fmt.Sprintf("doc_%s", uuid.NewString()))
	if err != nil {
		return 0, helper.NewError("process chunks", err)
	}

	err = g.vector.AddDocument(ctx, doc, chunks)
	if err != nil {
		return 0, helper.NewError("store document", err)
	}

	g.log.Info("Added document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title), slog.Int("num_chunks", len(chunks)))
	return len(chunks), nil
}

// SearchDocuments searches the chunks of stored documents.
func (g *GraphRAG) SearchDocuments(ctx context.Context, query string, limit int) *model.VectorSearchResult {
	if g.vector == nil {
		return &model.VectorSearchResult{Success: false, Items: []model.VectorItem{}, Error: retrieval.ErrVectorStoreMissing.Error()}
	}
	return g.vector.SearchDocuments(ctx, query, limit)
}

// Health probes both stores. The engine is healthy if the graph store is
// reachable; the vector store is best effort.
func (g *GraphRAG) Health(ctx context.Context) *model.HealthStatus {
	status := &model.HealthStatus{Graph: g.graph.CheckConnection(ctx)}
	if g.vector != nil {
		status.Vector = g.vector.CheckConnection(ctx)
	}
	status.Healthy = status.Graph.Connected
	return status
}

// Stats returns the size and schema of the graph.
func (g *GraphRAG) Stats(ctx context.Context) (*model.GraphStats, error) {
	return g.graph.Stats(ctx)
}

// ClearCache drops all cached query results.
func (g *GraphRAG) ClearCache() {
	g.cache.Clear()
}

// CacheStats returns the hit and miss counters of the query cache.
func (g *GraphRAG) CacheStats() cache.Stats {
	return g.cache.Stats()
}

// Close releases the stores created by NewGraphRAG in reverse order.
func (g *GraphRAG) Close(ctx context.Context) error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	g.closers = nil
	return errors.Join(errs...)
}
