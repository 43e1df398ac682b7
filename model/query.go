package model

import (
	"strings"

	"github.com/siherrmann/graphrag/helper"
)

const (
	DefaultTraversalDepth      = 3
	MaxTraversalDepth          = 5
	DefaultTraversalMaxResults = 50
	DefaultSemanticMaxResults  = 10
	DefaultSemanticMinScore    = 0.5
	DefaultContextDepth        = 2
	ContextSeedCandidates      = 5
)

// TraversalFilters restricts the nodes a traversal may visit.
type TraversalFilters struct {
	NodeLabels []NodeLabel `json:"nodeLabels,omitempty"`
}

// TraversalOptions describes one traversal request. Zero values select the
// defaults; MaxDepth is capped at MaxTraversalDepth.
type TraversalOptions struct {
	StartNodeID       string             `json:"startNodeId"`
	RelationshipTypes []RelationshipType `json:"relationshipTypes,omitempty"`
	Direction         Direction          `json:"direction,omitempty"`
	MaxDepth          int                `json:"maxDepth,omitempty"`
	MaxResults        int                `json:"maxResults,omitempty"`
	Filters           TraversalFilters   `json:"filters,omitempty"`
}

func (o TraversalOptions) Validate() error {
	if strings.TrimSpace(o.StartNodeID) == "" {
		return helper.NewValidationError("startNodeId", "is required")
	}
	if o.Direction != "" && !o.Direction.IsValid() {
		return helper.NewValidationError("direction", "must be INCOMING, OUTGOING or BOTH")
	}
	if o.MaxDepth < 0 {
		return helper.NewValidationError("maxDepth", "must not be negative")
	}
	if o.MaxResults < 0 {
		return helper.NewValidationError("maxResults", "must not be negative")
	}
	for _, t := range o.RelationshipTypes {
		if !t.IsValid() {
			return helper.NewValidationError("relationshipTypes", "contains unknown type "+string(t))
		}
	}
	return nil
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (o TraversalOptions) WithDefaults(defaultDepth int, defaultMaxResults int) TraversalOptions {
	if o.Direction == "" {
		o.Direction = DirectionBoth
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = defaultDepth
	}
	if o.MaxDepth > MaxTraversalDepth {
		o.MaxDepth = MaxTraversalDepth
	}
	if o.MaxResults == 0 {
		o.MaxResults = defaultMaxResults
	}
	return o
}

// SemanticQuery is a concept lookup against the entity full-text index.
type SemanticQuery struct {
	Concept           string             `json:"concept"`
	Context           string             `json:"context,omitempty"`
	RelationshipTypes []RelationshipType `json:"relationshipTypes,omitempty"`
	MaxResults        int                `json:"maxResults,omitempty"`
	MinScore          *float64           `json:"minScore,omitempty"` // nil selects the configured default, 0 keeps every hit
}

// Float64 returns a pointer to v, for optional numeric fields.
func Float64(v float64) *float64 {
	return &v
}

func (q SemanticQuery) Validate() error {
	if strings.TrimSpace(q.Concept) == "" {
		return helper.NewValidationError("concept", "is required")
	}
	if q.MaxResults < 0 {
		return helper.NewValidationError("maxResults", "must not be negative")
	}
	if q.MinScore != nil && (*q.MinScore < 0 || *q.MinScore > 1) {
		return helper.NewValidationError("minScore", "must be within [0,1]")
	}
	for _, t := range q.RelationshipTypes {
		if !t.IsValid() {
			return helper.NewValidationError("relationshipTypes", "contains unknown type "+string(t))
		}
	}
	return nil
}

// SearchTerm is the concept with the context appended.
func (q SemanticQuery) SearchTerm() string {
	if q.Context == "" {
		return q.Concept
	}
	return q.Concept + " " + q.Context
}

// HybridWeights are the per-source multipliers of the hybrid ranking.
// Text is reserved for plain keyword scoring and currently unused.
type HybridWeights struct {
	Graph  float64 `json:"graph"`
	Vector float64 `json:"vector"`
	Text   float64 `json:"text"`
}

// DefaultHybridWeights returns graph 0.6, vector 0.3 and 0.1 reserved.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{Graph: 0.6, Vector: 0.3, Text: 0.1}
}

// HybridQuery fans one question out to the graph and the vector store.
type HybridQuery struct {
	Query         string         `json:"query"`
	IncludeGraph  bool           `json:"includeGraph"`
	IncludeVector bool           `json:"includeVector"`
	GraphContext  string         `json:"graphContext,omitempty"`
	Category      string         `json:"category,omitempty"`
	MaxResults    int            `json:"maxResults,omitempty"`
	Weights       *HybridWeights `json:"weights,omitempty"`
}

// NewHybridQuery returns a query with both branches enabled.
func NewHybridQuery(query string) HybridQuery {
	return HybridQuery{Query: query, IncludeGraph: true, IncludeVector: true}
}

// ContextOptions controls context assembly.
type ContextOptions struct {
	MaxDepth               int                `json:"maxDepth,omitempty"`
	IncludeRelatedEntities bool               `json:"includeRelatedEntities"`
	IncludeInsights        bool               `json:"includeInsights"`
	RelationshipTypes      []RelationshipType `json:"relationshipTypes,omitempty"`
}

func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		MaxDepth:               DefaultContextDepth,
		IncludeRelatedEntities: true,
		IncludeInsights:        true,
	}
}

// QueryOptions are the options of the inbound question contract.
type QueryOptions struct {
	IncludeVector     bool `json:"includeVector"`
	MaxDepth          int  `json:"maxDepth,omitempty"`
	GenerateReasoning bool `json:"generateReasoning"`
}

func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		IncludeVector:     true,
		MaxDepth:          DefaultContextDepth,
		GenerateReasoning: true,
	}
}
