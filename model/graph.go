package model

// GraphNode is an immutable snapshot of a node taken at query time.
type GraphNode struct {
	ID         string      `json:"id"`
	Labels     []NodeLabel `json:"labels"`
	Properties Metadata    `json:"properties"`
}

// Name returns the natural key of the node, empty if unset.
func (n *GraphNode) Name() string {
	return n.Properties.GetString("name")
}

func (n *GraphNode) HasLabel(label NodeLabel) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HasAnyLabel reports whether the node carries one of labels. An empty filter matches everything.
func (n *GraphNode) HasAnyLabel(labels []NodeLabel) bool {
	if len(labels) == 0 {
		return true
	}
	for _, l := range labels {
		if n.HasLabel(l) {
			return true
		}
	}
	return false
}

// GraphRelationship is a directed, typed edge between two nodes.
type GraphRelationship struct {
	ID          string           `json:"id"`
	Type        RelationshipType `json:"type"`
	Properties  Metadata         `json:"properties"`
	StartNodeID string           `json:"startNodeId"`
	EndNodeID   string           `json:"endNodeId"`
}

// Strength returns the relationship weight in [0,1], zero if unset.
func (r *GraphRelationship) Strength() float64 {
	return r.Properties.GetFloat("strength")
}

// Other returns the endpoint that is not nodeID.
func (r *GraphRelationship) Other(nodeID string) string {
	if r.StartNodeID == nodeID {
		return r.EndNodeID
	}
	return r.StartNodeID
}

// GraphPath is one connected walk. Length is the number of relationships.
type GraphPath struct {
	Nodes         []*GraphNode         `json:"nodes"`
	Relationships []*GraphRelationship `json:"relationships"`
	Length        int                  `json:"length"`
}

// NewGraphPath builds a path and derives its length. Nodes are deduplicated
// by id keeping the first occurrence.
func NewGraphPath(nodes []*GraphNode, relationships []*GraphRelationship) *GraphPath {
	seen := make(map[string]bool, len(nodes))
	unique := make([]*GraphNode, 0, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		unique = append(unique, n)
	}
	return &GraphPath{
		Nodes:         unique,
		Relationships: relationships,
		Length:        len(relationships),
	}
}

// End returns the last node of the path.
func (p *GraphPath) End() *GraphNode {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[len(p.Nodes)-1]
}

// Contains reports whether the node id is already on the path.
func (p *GraphPath) Contains(nodeID string) bool {
	for _, n := range p.Nodes {
		if n.ID == nodeID {
			return true
		}
	}
	return false
}

// Extend returns a copy of the path with one more hop.
func (p *GraphPath) Extend(rel *GraphRelationship, node *GraphNode) *GraphPath {
	nodes := make([]*GraphNode, len(p.Nodes), len(p.Nodes)+1)
	copy(nodes, p.Nodes)
	rels := make([]*GraphRelationship, len(p.Relationships), len(p.Relationships)+1)
	copy(rels, p.Relationships)

	return &GraphPath{
		Nodes:         append(nodes, node),
		Relationships: append(rels, rel),
		Length:        len(rels) + 1,
	}
}

// Neighbor is a relationship together with the node on its far side.
type Neighbor struct {
	Relationship *GraphRelationship
	Node         *GraphNode
}

// ScoredNode is a node returned from full-text search.
type ScoredNode struct {
	Node  *GraphNode `json:"node"`
	Score float64    `json:"score"`
}
