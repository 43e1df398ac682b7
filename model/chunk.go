package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a piece of a document with its embedding.
type Chunk struct {
	ID          int64     `json:"id"`
	RID         uuid.UUID `json:"rid"`
	DocumentID  int64     `json:"document_id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	Content     string    `json:"content"`
	Path        string    `json:"path"`
	Embedding   []float32 `json:"embedding,omitempty"`
	ChunkIndex  int       `json:"chunk_index"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmbedFunc generates an embedding for a text.
type EmbedFunc func(text string) ([]float32, error)
