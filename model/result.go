package model

import "time"

// Statement is one parameterized graph statement.
type Statement struct {
	Query  string                 `json:"query"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// QuerySummary holds the write counters reported by the graph store.
type QuerySummary struct {
	NodesCreated         int `json:"nodesCreated"`
	NodesDeleted         int `json:"nodesDeleted"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	RelationshipsDeleted int `json:"relationshipsDeleted"`
	PropertiesSet        int `json:"propertiesSet"`
}

// QueryResult is the outcome of one graph statement. Failures are reported
// through Success and Error.
type QueryResult struct {
	Success bool          `json:"success"`
	Records []Record      `json:"rows"`
	Columns []string      `json:"columns,omitempty"`
	Summary QuerySummary  `json:"summary"`
	Timing  time.Duration `json:"timing"`
	Error   string        `json:"error,omitempty"`
}

// ConnectionStatus is the health probe result of a backing store.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GraphStats describes the size and schema of the graph.
type GraphStats struct {
	NodeCount         int64    `json:"nodeCount"`
	RelationshipCount int64    `json:"relationshipCount"`
	Labels            []string `json:"labels"`
	RelationshipTypes []string `json:"relationshipTypes"`
}

// TraversalResult holds the paths of one traversal, shortest first, and the
// deduplicated nodes and relationships they touch.
type TraversalResult struct {
	Paths         []*GraphPath         `json:"paths"`
	Nodes         []*GraphNode         `json:"nodes"`
	Relationships []*GraphRelationship `json:"relationships"`
	TotalPaths    int                  `json:"totalPaths"`
}

// SemanticSearchResult holds entity hits ordered by descending score.
type SemanticSearchResult struct {
	Items        []ScoredNode `json:"items"`
	TotalResults int          `json:"totalResults"`
}

// VectorItem is one snippet from the vector/text store.
type VectorItem struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
	Score    float64  `json:"score"`
}

// VectorSearchResult is the outcome of a vector/text store query.
type VectorSearchResult struct {
	Success bool         `json:"success"`
	Items   []VectorItem `json:"items"`
	Error   string       `json:"error,omitempty"`
}

// GraphBranchResult is the outcome of the graph side of a hybrid search.
type GraphBranchResult struct {
	Success bool         `json:"success"`
	Items   []ScoredNode `json:"items"`
	Error   string       `json:"error,omitempty"`
}

// SourceType names where a piece of evidence came from.
type SourceType string

const (
	SourceGraph  SourceType = "graph"
	SourceVector SourceType = "vector"
)

// RankedItem is one entry of the blended hybrid ranking.
type RankedItem struct {
	Source        SourceType `json:"source"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Score         float64    `json:"score"`
	Weight        float64    `json:"weight"`
	CombinedScore float64    `json:"combinedScore"`
	Node          *GraphNode `json:"node,omitempty"`
}

// HybridSearchResult holds both branches plus the blended ranking.
type HybridSearchResult struct {
	GraphResults  GraphBranchResult  `json:"graphResults"`
	VectorResults VectorSearchResult `json:"vectorResults"`
	Ranked        []RankedItem       `json:"ranked"`
	CombinedScore float64            `json:"combinedScore"`
	Explanation   string             `json:"explanation"`
}

// TopGraphNode returns the best graph hit, nil if the graph branch is empty.
func (r *HybridSearchResult) TopGraphNode() *GraphNode {
	if r == nil || len(r.GraphResults.Items) == 0 {
		return nil
	}
	return r.GraphResults.Items[0].Node
}

// BulkResult reports a bulk load that tolerates per-item failures.
type BulkResult struct {
	Success              bool     `json:"success"`
	Created              int      `json:"created"`
	Updated              int      `json:"updated"`
	RelationshipsCreated int      `json:"relationshipsCreated"`
	Errors               []string `json:"errors,omitempty"`
}

// Source is one attributable piece of evidence behind an answer.
type Source struct {
	Type          SourceType           `json:"type"`
	Nodes         []*GraphNode         `json:"nodes,omitempty"`
	Relationships []*GraphRelationship `json:"relationships,omitempty"`
	Items         []VectorItem         `json:"items,omitempty"`
	Relevance     float64              `json:"relevance"`
}

// QueryResponse is the result of one question.
type QueryResponse struct {
	Success       bool             `json:"success"`
	Answer        string           `json:"answer"`
	Context       *GraphRAGContext `json:"context"`
	Sources       []Source         `json:"sources"`
	Reasoning     []string         `json:"reasoning"`
	Confidence    float64          `json:"confidence"`
	ExecutionTime time.Duration    `json:"executionTime"`
	Error         string           `json:"error,omitempty"`
}

// HealthStatus is the connectivity of both backing stores. Vector is nil
// when no vector store is configured.
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Graph   *ConnectionStatus `json:"graph"`
	Vector  *ConnectionStatus `json:"vector,omitempty"`
}
