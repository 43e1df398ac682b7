package database

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FullTextIndex is the graph full-text index over entity name, description and significance.
const FullTextIndex = "culturalEntitySearch"

// GraphDBHandlerFunctions defines the interface for graph store operations.
type GraphDBHandlerFunctions interface {
	ExecuteQuery(ctx context.Context, statement string, params map[string]interface{}) *model.QueryResult
	ExecuteRead(ctx context.Context, statement string, params map[string]interface{}) *model.QueryResult
	ExecuteTransaction(ctx context.Context, statements []model.Statement) []*model.QueryResult
	CheckConnection(ctx context.Context) *model.ConnectionStatus
	Stats(ctx context.Context) (*model.GraphStats, error)
	GetNode(ctx context.Context, id string) (*model.GraphNode, error)
	GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]model.Neighbor, error)
	SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error)
}

// GraphDBHandler is the gateway to the Neo4j graph store. It owns the driver
// and its bounded connection pool; no driver type leaves this package.
type GraphDBHandler struct {
	driver neo4j.DriverWithContext
	config *helper.Neo4jConfiguration
	logger *slog.Logger
	tracer trace.Tracer
}

// NewGraphDBHandler creates the driver. It does not connect; use Connect or
// CheckConnection to reach the server.
func NewGraphDBHandler(config *helper.Neo4jConfiguration, logger *slog.Logger) (*GraphDBHandler, error) {
	if config == nil {
		return nil, helper.NewError("neo4j configuration validation", fmt.Errorf("configuration is nil"))
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("neo4j configuration validation", err)
	}

	auth := neo4j.NoAuth()
	if config.Username != "" {
		auth = neo4j.BasicAuth(config.Username, config.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = config.MaxConnectionPoolSize
		c.ConnectionAcquisitionTimeout = config.ConnectionTimeout
		c.MaxTransactionRetryTime = config.MaxTransactionRetryTime
	})
	if err != nil {
		return nil, helper.NewError("create neo4j driver", err)
	}

	logger.Info("Initialized GraphDBHandler", slog.String("uri", config.URI), slog.Int("pool_size", config.MaxConnectionPoolSize))

	return &GraphDBHandler{
		driver: driver,
		config: config,
		logger: logger,
		tracer: otel.Tracer("github.com/siherrmann/graphrag/database"),
	}, nil
}

// Connect verifies connectivity with exponential backoff.
func (h *GraphDBHandler) Connect(ctx context.Context, maxRetries int) error {
	baseDelay := 100 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = h.driver.VerifyConnectivity(ctx)
		if lastErr == nil {
			h.logger.Info("Connected to graph store", slog.String("uri", h.config.URI))
			return nil
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > h.config.ConnectionTimeout {
			delay = h.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return helper.NewError("connect graph store", ctx.Err())
		}
	}

	return helper.NewError(fmt.Sprintf("connect graph store after %d attempts", maxRetries), lastErr)
}

// Close releases the driver and its pool.
func (h *GraphDBHandler) Close(ctx context.Context) error {
	if h.driver == nil {
		return nil
	}
	return h.driver.Close(ctx)
}

// ExecuteQuery runs one statement in a write transaction.
func (h *GraphDBHandler) ExecuteQuery(ctx context.Context, statement string, params map[string]interface{}) *model.QueryResult {
	return h.run(ctx, neo4j.AccessModeWrite, statement, params)
}

// ExecuteRead runs one statement in a read transaction.
func (h *GraphDBHandler) ExecuteRead(ctx context.Context, statement string, params map[string]interface{}) *model.QueryResult {
	return h.run(ctx, neo4j.AccessModeRead, statement, params)
}

func (h *GraphDBHandler) run(ctx context.Context, mode neo4j.AccessMode, statement string, params map[string]interface{}) *model.QueryResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	ctx, span := h.tracer.Start(ctx, "graph.execute", trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.statement", statement),
		attribute.Bool("db.read_only", mode == neo4j.AccessModeRead),
	))
	defer span.End()

	session := h.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: h.config.Database,
		AccessMode:   mode,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		return runStatement(ctx, tx, statement, params)
	}

	var out any
	var err error
	if mode == neo4j.AccessModeRead {
		out, err = session.ExecuteRead(ctx, work)
	} else {
		out, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph statement failed")
		h.logger.Debug("Graph statement failed", slog.String("error", err.Error()))
		return &model.QueryResult{
			Success: false,
			Records: []model.Record{},
			Timing:  time.Since(start),
			Error:   err.Error(),
		}
	}

	result := out.(*model.QueryResult)
	result.Success = true
	result.Timing = time.Since(start)
	span.SetAttributes(attribute.Int("db.rows", len(result.Records)))

	return result
}

// ExecuteTransaction runs all statements in one write transaction. Either all
// of them are committed or none; on failure every result carries the error.
func (h *GraphDBHandler) ExecuteTransaction(ctx context.Context, statements []model.Statement) []*model.QueryResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	ctx, span := h.tracer.Start(ctx, "graph.transaction", trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.Int("db.statements", len(statements)),
	))
	defer span.End()

	session := h.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: h.config.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		results := make([]*model.QueryResult, 0, len(statements))
		for _, stmt := range statements {
			stmtStart := time.Now()
			result, err := runStatement(ctx, tx, stmt.Query, stmt.Params)
			if err != nil {
				return nil, err
			}
			result.Success = true
			result.Timing = time.Since(stmtStart)
			results = append(results, result)
		}
		return results, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph transaction failed")
		failed := make([]*model.QueryResult, len(statements))
		for i := range statements {
			failed[i] = &model.QueryResult{
				Success: false,
				Records: []model.Record{},
				Timing:  time.Since(start),
				Error:   err.Error(),
			}
		}
		return failed
	}

	return out.([]*model.QueryResult)
}

func runStatement(ctx context.Context, tx neo4j.ManagedTransaction, statement string, params map[string]interface{}) (*model.QueryResult, error) {
	result, err := tx.Run(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, err
	}

	return convertResult(records, summary), nil
}

// CheckConnection probes the server with a single round trip.
func (h *GraphDBHandler) CheckConnection(ctx context.Context) *model.ConnectionStatus {
	result := h.ExecuteRead(ctx, `CALL dbms.components() YIELD versions RETURN versions[0] AS version`, nil)
	if !result.Success {
		return &model.ConnectionStatus{Connected: false, Error: result.Error}
	}

	status := &model.ConnectionStatus{Connected: true}
	if len(result.Records) > 0 {
		status.Version = result.Records[0].String("version")
	}
	return status
}

// Stats returns node and relationship counts and the labels and types in use.
func (h *GraphDBHandler) Stats(ctx context.Context) (*model.GraphStats, error) {
	counts := h.ExecuteRead(ctx, `RETURN COUNT { MATCH (n) } AS nodes, COUNT { MATCH ()-[r]->() } AS relationships`, nil)
	if !counts.Success {
		return nil, helper.NewError("count graph", fmt.Errorf("%s", counts.Error))
	}
	labels := h.ExecuteRead(ctx, `CALL db.labels() YIELD label RETURN collect(label) AS labels`, nil)
	if !labels.Success {
		return nil, helper.NewError("list labels", fmt.Errorf("%s", labels.Error))
	}
	types := h.ExecuteRead(ctx, `CALL db.relationshipTypes() YIELD relationshipType RETURN collect(relationshipType) AS types`, nil)
	if !types.Success {
		return nil, helper.NewError("list relationship types", fmt.Errorf("%s", types.Error))
	}

	stats := &model.GraphStats{Labels: []string{}, RelationshipTypes: []string{}}
	if len(counts.Records) > 0 {
		stats.NodeCount = counts.Records[0].Int("nodes")
		stats.RelationshipCount = counts.Records[0].Int("relationships")
	}
	if len(labels.Records) > 0 {
		stats.Labels = labels.Records[0].Strings("labels")
	}
	if len(types.Records) > 0 {
		stats.RelationshipTypes = types.Records[0].Strings("types")
	}
	return stats, nil
}

// EnsureSchema creates the entity constraint and the indexes if missing.
func (h *GraphDBHandler) EnsureSchema(ctx context.Context) error {
	for _, stmt := range loadSql.GraphSchemaStatements() {
		result := h.ExecuteQuery(ctx, stmt, nil)
		if !result.Success {
			return helper.NewError("ensure graph schema", fmt.Errorf("%s", result.Error))
		}
	}
	h.logger.Info("Checked/created graph schema")
	return nil
}

// GetNode returns the node with the given element id, nil if it does not exist.
func (h *GraphDBHandler) GetNode(ctx context.Context, id string) (*model.GraphNode, error) {
	result := h.ExecuteRead(ctx, `MATCH (n) WHERE elementId(n) = $id RETURN n`, map[string]interface{}{"id": id})
	if !result.Success {
		return nil, helper.NewError("select node", fmt.Errorf("%s", result.Error))
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	node, _ := result.Records[0].Node("n")
	return node, nil
}

// GetNeighbors returns the relationships touching nodeID together with the
// node on the other side. An empty types list follows every type.
func (h *GraphDBHandler) GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]model.Neighbor, error) {
	pattern := "(n)-[r]-(m)"
	switch direction {
	case model.DirectionOutgoing:
		pattern = "(n)-[r]->(m)"
	case model.DirectionIncoming:
		pattern = "(n)<-[r]-(m)"
	}

	statement := `MATCH ` + pattern + `
		WHERE elementId(n) = $id AND (size($types) = 0 OR type(r) IN $types)
		RETURN r, m
		ORDER BY elementId(r)`

	result := h.ExecuteRead(ctx, statement, map[string]interface{}{
		"id":    nodeID,
		"types": model.RelationshipTypeStrings(types),
	})
	if !result.Success {
		return nil, helper.NewError("select neighbors", fmt.Errorf("%s", result.Error))
	}

	neighbors := make([]model.Neighbor, 0, len(result.Records))
	for _, record := range result.Records {
		rel, okRel := record.Relationship("r")
		node, okNode := record.Node("m")
		if !okRel || !okNode {
			continue
		}
		neighbors = append(neighbors, model.Neighbor{Relationship: rel, Node: node})
	}
	return neighbors, nil
}

// SearchNodes queries the entity full-text index. Scores are the raw index
// scores; an empty types list applies no relationship restriction.
func (h *GraphDBHandler) SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error) {
	query := EscapeFullText(term)
	if query == "" {
		return []model.ScoredNode{}, nil
	}

	statement := `CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
		WHERE size($types) = 0 OR EXISTS { MATCH (node)-[r]-() WHERE type(r) IN $types }
		RETURN node, score
		ORDER BY score DESC, node.dateAdded ASC
		LIMIT $limit`

	result := h.ExecuteRead(ctx, statement, map[string]interface{}{
		"index": FullTextIndex,
		"query": query,
		"types": model.RelationshipTypeStrings(types),
		"limit": limit,
	})
	if !result.Success {
		return nil, helper.NewError("full-text search", fmt.Errorf("%s", result.Error))
	}

	hits := make([]model.ScoredNode, 0, len(result.Records))
	for _, record := range result.Records {
		node, ok := record.Node("node")
		if !ok {
			continue
		}
		hits = append(hits, model.ScoredNode{Node: node, Score: record.Float("score")})
	}
	return hits, nil
}

var fullTextReplacer = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `&`, `\&`, `|`, `\|`, `!`, `\!`,
	`(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`^`, `\^`, `"`, `\"`, `~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`,
)

// EscapeFullText escapes Lucene query syntax so user text is matched literally.
// Boolean operator words are lower-cased so they are treated as terms.
func EscapeFullText(term string) string {
	words := strings.Fields(fullTextReplacer.Replace(term))
	for i, w := range words {
		switch w {
		case "AND", "OR", "NOT":
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}
