package graphrag

import (
	"log/slog"

	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/model"
)

type options struct {
	config           *model.Config
	logger           *slog.Logger
	embed            model.EmbedFunc
	embeddingDim     int
	defaultEmbedder  bool
	withoutVector    bool
	ensureSchema     bool
	connectRetries   int
	documentPipeline *pipeline.Pipeline
}

// Option configures NewGraphRAG.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		config:         model.DefaultConfig(),
		embeddingDim:   pipeline.DefaultEmbeddingDim,
		ensureSchema:   true,
		connectRetries: 5,
	}
}

// WithConfig replaces the default engine tuning.
func WithConfig(config *model.Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithLogger replaces the default pretty logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEmbedder sets the embedding function used for vector search and
// document ingestion. dim must match the vectors embed produces.
func WithEmbedder(embed model.EmbedFunc, dim int) Option {
	return func(o *options) {
		o.embed = embed
		o.embeddingDim = dim
	}
}

// WithDefaultEmbedder loads the default ONNX sentence model. The model is
// downloaded on first use.
func WithDefaultEmbedder() Option {
	return func(o *options) {
		o.defaultEmbedder = true
		o.embeddingDim = pipeline.DefaultEmbeddingDim
	}
}

// WithoutVectorStore runs graph-only even if a database configuration is given.
func WithoutVectorStore() Option {
	return func(o *options) {
		o.withoutVector = true
	}
}

// WithEnsureSchema controls whether constraints and indexes are created on start.
func WithEnsureSchema(ensure bool) Option {
	return func(o *options) {
		o.ensureSchema = ensure
	}
}

// WithConnectRetries sets how often connecting to the graph store is tried.
func WithConnectRetries(retries int) Option {
	return func(o *options) {
		o.connectRetries = retries
	}
}

// WithPipeline sets the document ingestion pipeline.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(o *options) {
		o.documentPipeline = p
	}
}
