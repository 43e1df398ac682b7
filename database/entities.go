package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// EntitiesDBHandlerFunctions defines the interface for cultural entity writes.
type EntitiesDBHandlerFunctions interface {
	UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error)
	UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error)
	SelectEntityByName(ctx context.Context, name string) (*model.GraphNode, error)
	ClearGraph(ctx context.Context, confirm bool) (int64, error)
}

// EntitiesDBHandler writes cultural entities and relationships to the graph store.
type EntitiesDBHandler struct {
	graph  *GraphDBHandler
	logger *slog.Logger
}

// NewEntitiesDBHandler creates a new entities handler on top of the graph gateway.
// If ensureSchema is true, the constraint and indexes are created when missing.
func NewEntitiesDBHandler(ctx context.Context, graph *GraphDBHandler, ensureSchema bool) (*EntitiesDBHandler, error) {
	if graph == nil {
		return nil, helper.NewError("graph connection validation", fmt.Errorf("graph connection is nil"))
	}

	handler := &EntitiesDBHandler{
		graph:  graph,
		logger: graph.logger,
	}

	if ensureSchema {
		if err := graph.EnsureSchema(ctx); err != nil {
			return nil, helper.NewError("ensure schema", err)
		}
	}

	graph.logger.Info("Initialized EntitiesDBHandler")

	return handler, nil
}

// UpsertEntity creates or updates the entity with the same name. Known
// properties are overwritten, the type label is replaced. It reports whether
// a new node was created.
func (h *EntitiesDBHandler) UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error) {
	if err := entity.Validate(); err != nil {
		return false, err
	}

	merge := model.Statement{
		Query: `MERGE (e:CulturalEntity {name: $name})
			ON CREATE SET e += $props, e.dateAdded = datetime(), e.lastUpdated = datetime()
			ON MATCH SET e += $props, e.lastUpdated = datetime()
			RETURN e`,
		Params: map[string]interface{}{
			"name":  entity.Name,
			"props": entity.Properties(),
		},
	}
	relabel := model.Statement{
		Query: `MATCH (e:CulturalEntity {name: $name})
			REMOVE e` + typeLabels() + `
			SET e:` + string(entity.Type.Label()) + `
			RETURN e`,
		Params: map[string]interface{}{"name": entity.Name},
	}

	results := h.graph.ExecuteTransaction(ctx, []model.Statement{merge, relabel})
	if len(results) == 0 || !results[0].Success {
		msg := "empty transaction result"
		if len(results) > 0 {
			msg = results[0].Error
		}
		return false, helper.NewError(fmt.Sprintf("upsert entity %q", entity.Name), fmt.Errorf("%s", msg))
	}

	created := results[0].Summary.NodesCreated > 0
	h.logger.Debug("Upserted entity", slog.String("name", entity.Name), slog.Bool("created", created))

	return created, nil
}

// UpsertRelationship merges a relationship between two entities resolved by
// name. It reports whether a new relationship was created.
func (h *EntitiesDBHandler) UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error) {
	if err := relationship.Validate(); err != nil {
		return false, err
	}

	// The type comes from the closed vocabulary, so it is safe to inline.
	statement := `MATCH (a:CulturalEntity {name: $from}), (b:CulturalEntity {name: $to})
		MERGE (a)-[r:` + string(relationship.Type) + `]->(b)
		SET r += $props
		RETURN r`

	result := h.graph.ExecuteQuery(ctx, statement, map[string]interface{}{
		"from":  relationship.From,
		"to":    relationship.To,
		"props": relationship.Properties(),
	})
	op := fmt.Sprintf("upsert relationship %s -[%s]-> %s", relationship.From, relationship.Type, relationship.To)
	if !result.Success {
		return false, helper.NewError(op, fmt.Errorf("%s", result.Error))
	}
	if len(result.Records) == 0 {
		return false, helper.NewError(op, fmt.Errorf("endpoint entity not found"))
	}

	return result.Summary.RelationshipsCreated > 0, nil
}

// SelectEntityByName returns the entity node, nil if it does not exist.
func (h *EntitiesDBHandler) SelectEntityByName(ctx context.Context, name string) (*model.GraphNode, error) {
	result := h.graph.ExecuteRead(ctx, `MATCH (e:CulturalEntity {name: $name}) RETURN e`, map[string]interface{}{"name": name})
	if !result.Success {
		return nil, helper.NewError("select entity", fmt.Errorf("%s", result.Error))
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	node, _ := result.Records[0].Node("e")
	return node, nil
}

// ClearGraph deletes every node and relationship. It refuses to run unless
// confirm is true.
func (h *EntitiesDBHandler) ClearGraph(ctx context.Context, confirm bool) (int64, error) {
	if !confirm {
		return 0, helper.NewError("clear graph", helper.ErrNotConfirmed)
	}

	result := h.graph.ExecuteQuery(ctx, `MATCH (n) DETACH DELETE n`, nil)
	if !result.Success {
		return 0, helper.NewError("clear graph", fmt.Errorf("%s", result.Error))
	}

	h.logger.Warn("Cleared graph", slog.Int("nodes_deleted", result.Summary.NodesDeleted))
	return int64(result.Summary.NodesDeleted), nil
}

func typeLabels() string {
	var b strings.Builder
	for _, t := range model.AllEntityTypes() {
		b.WriteString(":")
		b.WriteString(string(t.Label()))
	}
	return b.String()
}
