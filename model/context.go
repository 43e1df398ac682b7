package model

// GraphRAGContext is the evidence bundle assembled for one question. It is
// owned by the request that built it and never persisted.
type GraphRAGContext struct {
	Nodes          []*GraphNode         `json:"nodes"`
	Relationships  []*GraphRelationship `json:"relationships"`
	Paths          []*GraphPath         `json:"paths"`
	Insights       []string             `json:"insights"`
	RelevanceScore float64              `json:"relevanceScore"`
	GraphQuery     string               `json:"graphQuery"`

	nodeIndex map[string]int
	relIndex  map[string]bool
}

func NewGraphRAGContext(query string) *GraphRAGContext {
	return &GraphRAGContext{
		Nodes:         []*GraphNode{},
		Relationships: []*GraphRelationship{},
		Paths:         []*GraphPath{},
		Insights:      []string{},
		GraphQuery:    query,
		nodeIndex:     map[string]int{},
		relIndex:      map[string]bool{},
	}
}

// AddNode appends the node unless a node with the same id is present.
func (c *GraphRAGContext) AddNode(node *GraphNode) {
	if node == nil {
		return
	}
	if c.nodeIndex == nil {
		c.reindex()
	}
	if _, ok := c.nodeIndex[node.ID]; ok {
		return
	}
	c.nodeIndex[node.ID] = len(c.Nodes)
	c.Nodes = append(c.Nodes, node)
}

// AddRelationship appends the relationship unless it is present.
func (c *GraphRAGContext) AddRelationship(rel *GraphRelationship) {
	if rel == nil {
		return
	}
	if c.relIndex == nil {
		c.reindex()
	}
	if c.relIndex[rel.ID] {
		return
	}
	c.relIndex[rel.ID] = true
	c.Relationships = append(c.Relationships, rel)
}

func (c *GraphRAGContext) AddPath(path *GraphPath) {
	if path == nil {
		return
	}
	c.Paths = append(c.Paths, path)
}

// Node returns the context node with the given id.
func (c *GraphRAGContext) Node(id string) *GraphNode {
	if c.nodeIndex == nil {
		c.reindex()
	}
	if i, ok := c.nodeIndex[id]; ok {
		return c.Nodes[i]
	}
	return nil
}

func (c *GraphRAGContext) IsEmpty() bool {
	return len(c.Nodes) == 0
}

func (c *GraphRAGContext) reindex() {
	c.nodeIndex = make(map[string]int, len(c.Nodes))
	for i, n := range c.Nodes {
		c.nodeIndex[n.ID] = i
	}
	c.relIndex = make(map[string]bool, len(c.Relationships))
	for _, r := range c.Relationships {
		c.relIndex[r.ID] = true
	}
}
