package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/graphrag/model"
)

// EntityWriter is the write side of the graph store.
type EntityWriter interface {
	UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error)
	UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error)
}

// GraphLoader bulk loads entities and relationships. Single failures are
// recorded and do not stop the load.
type GraphLoader struct {
	writer EntityWriter
	logger *slog.Logger
}

// NewGraphLoader creates a loader on top of writer.
func NewGraphLoader(writer EntityWriter, logger *slog.Logger) *GraphLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphLoader{writer: writer, logger: logger}
}

// Load upserts all entities, then all relationships. The result is
// successful if at least one item was written.
func (l *GraphLoader) Load(ctx context.Context, entities []*model.CulturalEntity, relationships []*model.CulturalRelationship) *model.BulkResult {
	result := &model.BulkResult{Errors: []string{}}
	succeeded := 0

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err.Error())
			break
		}
		created, err := l.writer.UpsertEntity(ctx, entity)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %q: %v", entity.Name, err))
			continue
		}
		succeeded++
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	for _, rel := range relationships {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err.Error())
			break
		}
		created, err := l.writer.UpsertRelationship(ctx, rel)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %s -[%s]-> %s: %v", rel.From, rel.Type, rel.To, err))
			continue
		}
		succeeded++
		if created {
			result.RelationshipsCreated++
		}
	}

	result.Success = succeeded > 0
	l.logger.Info("Loaded graph",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("relationships_created", result.RelationshipsCreated),
		slog.Int("errors", len(result.Errors)),
	)
	return result
}
