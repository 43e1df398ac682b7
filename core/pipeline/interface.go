package pipeline

import (
	"fmt"

	"github.com/siherrmann/graphrag/model"
)

// ChunkFunc splits text into chunks with their hierarchical paths,
// e.g. "festivals.chunk3".
type ChunkFunc func(text string, basePath string) ([]ChunkWithPath, error)

// EmbedFunc generates the embedding of a text.
type EmbedFunc = model.EmbedFunc

// ChunkWithPath is a chunk before embedding.
type ChunkWithPath struct {
	Content    string
	Path       string
	ChunkIndex int
	Metadata   map[string]interface{}
}

// Pipeline combines chunking and embedding for document ingestion.
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc // Optional; chunks stay without embedding if nil
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits text into chunks and embeds each one.
func (p *Pipeline) Process(text string, basePath string) ([]*model.Chunk, error) {
	if p.Chunker == nil {
		return nil, fmt.Errorf("pipeline has no chunker")
	}

	chunksWithPath, err := p.Chunker(text, basePath)
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(chunksWithPath))
	for _, cwp := range chunksWithPath {
		chunk := &model.Chunk{
			Content:    cwp.Content,
			Path:       cwp.Path,
			ChunkIndex: cwp.ChunkIndex,
			Metadata:   model.Metadata(cwp.Metadata),
		}
		if p.Embedder != nil {
			chunk.Embedding, err = p.Embedder(cwp.Content)
			if err != nil {
				return nil, fmt.Errorf("failed to embed chunk %d: %w", cwp.ChunkIndex, err)
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
