package database

import (
	"context"
	"fmt"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// VectorDBHandlerFunctions is the vector/text store as seen by the retrieval engines.
type VectorDBHandlerFunctions interface {
	SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult
	SearchDocuments(ctx context.Context, query string, limit int) *model.VectorSearchResult
	CheckConnection(ctx context.Context) *model.ConnectionStatus
}

// VectorDBHandler bundles the Postgres handlers behind one store.
type VectorDBHandler struct {
	db        *helper.Database
	Knowledge *KnowledgeDBHandler
	Documents *DocumentsDBHandler
	Chunks    *ChunksDBHandler
}

// NewVectorDBHandler installs the pgvector extension and initializes the
// knowledge, documents and chunks tables.
func NewVectorDBHandler(db *helper.Database, embeddingDim int, embed model.EmbedFunc, force bool) (*VectorDBHandler, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("init sql", err)
	}

	knowledge, err := NewKnowledgeDBHandler(db, embeddingDim, embed, force)
	if err != nil {
		return nil, err
	}
	documents, err := NewDocumentsDBHandler(db, force)
	if err != nil {
		return nil, err
	}
	chunks, err := NewChunksDBHandler(db, embeddingDim, embed, force)
	if err != nil {
		return nil, err
	}

	return &VectorDBHandler{
		db:        db,
		Knowledge: knowledge,
		Documents: documents,
		Chunks:    chunks,
	}, nil
}

// InsertKnowledge stores one curated knowledge snippet.
func (h *VectorDBHandler) InsertKnowledge(ctx context.Context, knowledge *model.Knowledge) error {
	return h.Knowledge.InsertKnowledge(ctx, knowledge)
}

// SearchKnowledge searches the curated knowledge snippets.
func (h *VectorDBHandler) SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult {
	return h.Knowledge.SearchKnowledge(ctx, query, category, limit)
}

// SearchDocuments searches the chunks of stored documents.
func (h *VectorDBHandler) SearchDocuments(ctx context.Context, query string, limit int) *model.VectorSearchResult {
	return h.Chunks.SearchChunks(ctx, query, limit)
}

// AddDocument stores a document and its already embedded chunks in one
// transaction. On error nothing is stored.
func (h *VectorDBHandler) AddDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = insertDocument(ctx, tx, doc)
	if err != nil {
		return helper.NewError("insert document", err)
	}

	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.DocumentRID = doc.RID
		err := insertChunk(ctx, tx, chunk)
		if err != nil {
			return helper.NewError(fmt.Sprintf("insert chunk %d", chunk.ChunkIndex), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit transaction", err)
	}
	return nil
}

// CheckConnection pings the pool.
func (h *VectorDBHandler) CheckConnection(ctx context.Context) *model.ConnectionStatus {
	err := h.db.Ping(ctx)
	if err != nil {
		return &model.ConnectionStatus{Connected: false, Error: err.Error()}
	}
	return &model.ConnectionStatus{Connected: true}
}

// Close closes the pool.
func (h *VectorDBHandler) Close() error {
	return h.db.Close()
}
