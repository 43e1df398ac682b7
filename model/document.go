package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is a source text whose chunks are searchable in the vector store.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Content   string    `json:"content,omitempty" db:"-"` // Only used for chunking, not stored
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Knowledge is a curated snippet in the vector store, optionally tagged with a category.
type Knowledge struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
