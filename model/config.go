package model

import (
	"time"

	"github.com/siherrmann/graphrag/helper"
)

// RelevanceWeights are the per-item contributions to a context's relevance score.
type RelevanceWeights struct {
	Node         float64 `json:"node" yaml:"node"`
	Relationship float64 `json:"relationship" yaml:"relationship"`
	Path         float64 `json:"path" yaml:"path"`
}

// Config groups the tuning knobs of the engine.
type Config struct {
	// Per-call timeouts
	GraphTimeout  time.Duration `json:"graph_timeout" yaml:"graph_timeout"`
	VectorTimeout time.Duration `json:"vector_timeout" yaml:"vector_timeout"`

	// Query cache
	CacheTTL      time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheCapacity int           `json:"cache_capacity" yaml:"cache_capacity"` // 0 selects the default capacity

	// Traversal
	TraversalDepth      int `json:"traversal_depth" yaml:"traversal_depth"`
	TraversalMaxResults int `json:"traversal_max_results" yaml:"traversal_max_results"`

	// Semantic search
	SemanticMaxResults  int     `json:"semantic_max_results" yaml:"semantic_max_results"`
	SemanticMinScore    float64 `json:"semantic_min_score" yaml:"semantic_min_score"`
	SemanticMinRawScore float64 `json:"semantic_min_raw_score" yaml:"semantic_min_raw_score"` // raw index score floor, 0 disables it

	// Hybrid ranking
	HybridWeights    HybridWeights `json:"hybrid_weights" yaml:"hybrid_weights"`
	HybridMaxResults int           `json:"hybrid_max_results" yaml:"hybrid_max_results"`

	// Context and answer
	ContextRelationshipTypes []RelationshipType `json:"context_relationship_types,omitempty" yaml:"context_relationship_types"` // nil follows the whole vocabulary
	Relevance                RelevanceWeights   `json:"relevance" yaml:"relevance"`
	ConfidenceFloor          float64            `json:"confidence_floor" yaml:"confidence_floor"`
	VectorSourceRelevance    float64            `json:"vector_source_relevance" yaml:"vector_source_relevance"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() *Config {
	return &Config{
		GraphTimeout:          10 * time.Second,
		VectorTimeout:         5 * time.Second,
		CacheTTL:              5 * time.Minute,
		CacheCapacity:         1000,
		TraversalDepth:        DefaultTraversalDepth,
		TraversalMaxResults:   DefaultTraversalMaxResults,
		SemanticMaxResults:    DefaultSemanticMaxResults,
		SemanticMinScore:      DefaultSemanticMinScore,
		HybridWeights:         DefaultHybridWeights(),
		HybridMaxResults:      10,
		Relevance:             RelevanceWeights{Node: 0.2, Relationship: 0.3, Path: 0.1},
		ConfidenceFloor:       0.5,
		VectorSourceRelevance: 0.8,
	}
}

// Validate rejects configurations the engines cannot work with.
func (c *Config) Validate() error {
	if c.GraphTimeout <= 0 || c.VectorTimeout <= 0 {
		return helper.NewValidationError("timeouts", "must be positive")
	}
	if c.CacheTTL <= 0 {
		return helper.NewValidationError("cache_ttl", "must be positive")
	}
	if c.CacheCapacity < 0 {
		return helper.NewValidationError("cache_capacity", "must not be negative")
	}
	if c.TraversalDepth <= 0 || c.TraversalDepth > MaxTraversalDepth {
		return helper.NewValidationError("traversal_depth", "must be within [1,5]")
	}
	if c.TraversalMaxResults <= 0 || c.SemanticMaxResults <= 0 || c.HybridMaxResults <= 0 {
		return helper.NewValidationError("max_results", "must be positive")
	}
	if c.SemanticMinScore < 0 || c.SemanticMinScore > 1 {
		return helper.NewValidationError("semantic_min_score", "must be within [0,1]")
	}
	if c.SemanticMinRawScore < 0 {
		return helper.NewValidationError("semantic_min_raw_score", "must not be negative")
	}
	for _, w := range []float64{c.HybridWeights.Graph, c.HybridWeights.Vector, c.HybridWeights.Text} {
		if w < 0 || w > 1 {
			return helper.NewValidationError("hybrid_weights", "must be within [0,1]")
		}
	}
	for _, w := range []float64{c.Relevance.Node, c.Relevance.Relationship, c.Relevance.Path} {
		if w < 0 {
			return helper.NewValidationError("relevance", "weights must not be negative")
		}
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return helper.NewValidationError("confidence_floor", "must be within [0,1]")
	}
	for _, t := range c.ContextRelationshipTypes {
		if !t.IsValid() {
			return helper.NewValidationError("context_relationship_types", "contains unknown type "+string(t))
		}
	}
	return nil
}
