package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultConfig()

		assert.Equal(t, 0.6, config.HybridWeights.Graph, "Default graph weight should be 0.6")
		assert.Equal(t, 0.3, config.HybridWeights.Vector, "Default vector weight should be 0.3")
		assert.Equal(t, 0.1, config.HybridWeights.Text, "Reserved weight should be 0.1")
		assert.Equal(t, 3, config.TraversalDepth, "Default traversal depth should be 3")
		assert.Equal(t, 0.5, config.SemanticMinScore, "Default min score should be 0.5")
		assert.Equal(t, 0.0, config.SemanticMinRawScore, "Raw score floor should be disabled by default")
		assert.Equal(t, 0.5, config.ConfidenceFloor, "Default confidence floor should be 0.5")
		assert.Equal(t, RelevanceWeights{Node: 0.2, Relationship: 0.3, Path: 0.1}, config.Relevance, "Default relevance weights")
		assert.NoError(t, config.Validate(), "Default configuration should be valid")
	})

	t.Run("Default hybrid weights sum to 1.0", func(t *testing.T) {
		w := DefaultConfig().HybridWeights
		assert.InDelta(t, 1.0, w.Graph+w.Vector+w.Text, 0.001, "Default weights should sum to 1.0")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"Zero graph timeout", func(c *Config) { c.GraphTimeout = 0 }},
		{"Negative cache capacity", func(c *Config) { c.CacheCapacity = -1 }},
		{"Depth above hard cap", func(c *Config) { c.TraversalDepth = 6 }},
		{"Min score above one", func(c *Config) { c.SemanticMinScore = 1.5 }},
		{"Negative raw score floor", func(c *Config) { c.SemanticMinRawScore = -1 }},
		{"Negative hybrid weight", func(c *Config) { c.HybridWeights.Vector = -0.1 }},
		{"Unknown context relationship", func(c *Config) { c.ContextRelationshipTypes = []RelationshipType{"LIKES"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			require.Error(t, config.Validate(), "Expected configuration to be rejected")
		})
	}
}
