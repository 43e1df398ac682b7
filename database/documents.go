package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(ctx context.Context, doc *model.Document) error
	SelectDocument(ctx context.Context, rid uuid.UUID) (*model.Document, error)
	DeleteDocument(ctx context.Context, rid uuid.UUID) error
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	_, err = db.Instance.Exec(`SELECT init_documents();`)
	if err != nil {
		return nil, helper.NewError("init documents", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return handler, nil
}

// InsertDocument inserts the document metadata. Content is not stored.
func (h *DocumentsDBHandler) InsertDocument(ctx context.Context, doc *model.Document) error {
	return insertDocument(ctx, h.db.Instance, doc)
}

func insertDocument(ctx context.Context, q rowQuerier, doc *model.Document) error {
	if doc.Title == "" {
		return helper.NewValidationError("title", "is required")
	}

	row := q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_document($1, $2, $3)`,
		doc.Title,
		doc.Source,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by RID
func (h *DocumentsDBHandler) SelectDocument(ctx context.Context, rid uuid.UUID) (*model.Document, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_document($1)`, rid)

	doc := &model.Document{}
	var source *string
	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&source,
		&doc.Metadata,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	if source != nil {
		doc.Source = *source
	}

	return doc, nil
}

// DeleteDocument deletes a document and its chunks
func (h *DocumentsDBHandler) DeleteDocument(ctx context.Context, rid uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_document($1)`, rid)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
