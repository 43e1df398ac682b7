package pipeline

import (
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// DefaultEmbeddingModel produces 384-dimensional sentence embeddings.
const DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultEmbeddingDim is the dimension of DefaultEmbeddingModel.
const DefaultEmbeddingDim = 384

// Embedder wraps a hugot feature extraction pipeline.
type Embedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
}

// NewEmbedder downloads the model if needed and creates a pure Go hugot session.
func NewEmbedder(modelName string) (*Embedder, error) {
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "graphrag-embedder",
	}
	featurePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &Embedder{session: session, pipeline: featurePipeline}, nil
}

// Embed returns the embedding of one text.
func (e *Embedder) Embed(text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds several texts in one pipeline run.
func (e *Embedder) EmbedBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// Func returns Embed as a model.EmbedFunc.
func (e *Embedder) Func() model.EmbedFunc {
	return e.Embed
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	return e.session.Destroy()
}

// DefaultEmbedder creates an embedder using DefaultEmbeddingModel.
func DefaultEmbedder() (*Embedder, error) {
	return NewEmbedder(DefaultEmbeddingModel)
}
