package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// KnowledgeDBHandlerFunctions defines the interface for knowledge snippet operations.
type KnowledgeDBHandlerFunctions interface {
	InsertKnowledge(ctx context.Context, knowledge *model.Knowledge) error
	DeleteKnowledge(ctx context.Context, rid uuid.UUID) error
	SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult
}

// KnowledgeDBHandler handles curated knowledge snippets in Postgres.
type KnowledgeDBHandler struct {
	db    *helper.Database
	embed model.EmbedFunc
}

// NewKnowledgeDBHandler creates a new knowledge database handler.
// It loads the knowledge SQL functions and creates the table. If embed is
// nil, searches fall back to Postgres full-text ranking.
func NewKnowledgeDBHandler(db *helper.Database, embeddingDim int, embed model.EmbedFunc, force bool) (*KnowledgeDBHandler, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &KnowledgeDBHandler{
		db:    db,
		embed: embed,
	}

	err := loadSql.LoadKnowledgeSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load knowledge sql", err)
	}

	err = handler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized KnowledgeDBHandler")

	return handler, nil
}

// CreateTable creates the 'knowledge' table and its indexes if missing.
func (h *KnowledgeDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_knowledge($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("init knowledge", err)
	}

	h.db.Logger.Info("Checked/created table knowledge")

	return nil
}

// InsertKnowledge stores a snippet. The embedding is generated if missing and
// an embedder is configured.
func (h *KnowledgeDBHandler) InsertKnowledge(ctx context.Context, knowledge *model.Knowledge) error {
	if knowledge.Content == "" {
		return helper.NewValidationError("content", "is required")
	}
	if len(knowledge.Embedding) == 0 && h.embed != nil {
		embedding, err := h.embed(knowledge.Content)
		if err != nil {
			return helper.NewError("generate embedding", err)
		}
		knowledge.Embedding = embedding
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_knowledge($1, $2, $3, $4)`,
		knowledge.Content,
		nullString(knowledge.Category),
		vectorParam(knowledge.Embedding),
		knowledge.Metadata,
	)

	err := row.Scan(
		&knowledge.ID,
		&knowledge.RID,
		&knowledge.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteKnowledge deletes a snippet by RID
func (h *KnowledgeDBHandler) DeleteKnowledge(ctx context.Context, rid uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_knowledge($1)`, rid)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SearchKnowledge ranks snippets by cosine similarity to the embedded query,
// or by full-text rank without an embedder. An empty category searches all.
func (h *KnowledgeDBHandler) SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult {
	statement := `SELECT * FROM search_knowledge_by_text($1, $2, $3)`
	var queryParam interface{} = query

	if h.embed != nil {
		embedding, err := h.embed(query)
		if err != nil {
			h.db.Logger.Warn("Embedding failed, using full-text search", slog.String("error", err.Error()))
		} else {
			statement = `SELECT * FROM search_knowledge_by_embedding($1, $2, $3)`
			queryParam = pgvector.NewVector(embedding)
		}
	}

	rows, err := h.db.Instance.QueryContext(ctx, statement, queryParam, nullString(category), limit)
	if err != nil {
		return failedSearch(helper.NewError("query", err))
	}
	defer rows.Close()

	items := []model.VectorItem{}
	for rows.Next() {
		var rid uuid.UUID
		var categoryValue *string
		item := model.VectorItem{}
		err := rows.Scan(
			&rid,
			&item.Content,
			&categoryValue,
			&item.Metadata,
			&item.Score,
		)
		if err != nil {
			return failedSearch(helper.NewError("scan", err))
		}
		item.ID = rid.String()
		if categoryValue != nil {
			if item.Metadata == nil {
				item.Metadata = model.Metadata{}
			}
			item.Metadata["category"] = *categoryValue
		}
		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return failedSearch(helper.NewError("rows error", err))
	}

	return &model.VectorSearchResult{Success: true, Items: items}
}

func failedSearch(err error) *model.VectorSearchResult {
	return &model.VectorSearchResult{Success: false, Items: []model.VectorItem{}, Error: err.Error()}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func vectorParam(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
