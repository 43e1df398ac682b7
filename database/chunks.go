package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	SearchChunks(ctx context.Context, query string, limit int) *model.VectorSearchResult
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db    *helper.Database
	embed model.EmbedFunc
}

// NewChunksDBHandler creates a new chunks database handler. The documents
// table must exist already.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, embed model.EmbedFunc, force bool) (*ChunksDBHandler, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &ChunksDBHandler{
		db:    db,
		embed: embed,
	}

	err := loadSql.LoadChunksSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	_, err = db.Instance.Exec(`SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return nil, helper.NewError("init chunks", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return handler, nil
}

// InsertChunk inserts a chunk of an already inserted document.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) error {
	return insertChunk(ctx, h.db.Instance, chunk)
}

func insertChunk(ctx context.Context, q rowQuerier, chunk *model.Chunk) error {
	row := q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
		chunk.DocumentID,
		chunk.Content,
		chunk.Path,
		chunk.ChunkIndex,
		vectorParam(chunk.Embedding),
		chunk.Metadata,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.RID,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SearchChunks ranks document chunks against the query. The document title
// and RID are merged into each item's metadata.
func (h *ChunksDBHandler) SearchChunks(ctx context.Context, query string, limit int) *model.VectorSearchResult {
	statement := `SELECT * FROM search_chunks_by_text($1, $2)`
	var queryParam interface{} = query

	if h.embed != nil {
		embedding, err := h.embed(query)
		if err != nil {
			h.db.Logger.Warn("Embedding failed, using full-text search", slog.String("error", err.Error()))
		} else {
			statement = `SELECT * FROM search_chunks_by_embedding($1, $2)`
			queryParam = pgvector.NewVector(embedding)
		}
	}

	rows, err := h.db.Instance.QueryContext(ctx, statement, queryParam, limit)
	if err != nil {
		return failedSearch(helper.NewError("query", err))
	}
	defer rows.Close()

	items := []model.VectorItem{}
	for rows.Next() {
		var rid uuid.UUID
		item := model.VectorItem{}
		err := rows.Scan(
			&rid,
			&item.Content,
			&item.Metadata,
			&item.Score,
		)
		if err != nil {
			return failedSearch(helper.NewError("scan", err))
		}
		item.ID = rid.String()
		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return failedSearch(helper.NewError("rows error", err))
	}

	return &model.VectorSearchResult{Success: true, Items: items}
}
