package reasoning

import (
	"fmt"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

// NotFoundAnswer is returned for a context without entities.
const NotFoundAnswer = "I couldn't find any information about that in the cultural knowledge graph. Try asking about a specific festival, tradition, place or person."

// Answer renders a context into markdown text. The primary entity is the
// first node of the context.
func Answer(query string, c *model.GraphRAGContext) string {
	if c == nil || c.IsEmpty() {
		return NotFoundAnswer
	}

	var b strings.Builder
	primary := c.Nodes[0]
	entity := model.EntityFromNode(primary)

	fmt.Fprintf(&b, "**%s**", entity.Name)
	if entity.Type != "" {
		fmt.Fprintf(&b, " (%s)", entity.Type)
	}
	if entity.Description != "" {
		fmt.Fprintf(&b, ": %s", entity.Description)
	}
	b.WriteString("\n")
	if entity.Significance != "" {
		fmt.Fprintf(&b, "\nSignificance: %s\n", entity.Significance)
	}
	if entity.Region != "" {
		fmt.Fprintf(&b, "\nRegion: %s\n", entity.Region)
	}

	if groups, order := groupRelationships(c.Relationships); len(order) > 0 {
		b.WriteString("\n**Connections:**\n")
		for _, t := range order {
			names := make([]string, 0, len(groups[t]))
			for _, rel := range groups[t] {
				names = append(names, fmt.Sprintf("%s -> %s", nodeName(c, rel.StartNodeID), nodeName(c, rel.EndNodeID)))
			}
			fmt.Fprintf(&b, "- %s: %s\n", t.Label(), strings.Join(names, "; "))
		}
	}

	if related := relatedNames(c); len(related) > 0 {
		fmt.Fprintf(&b, "\n**Related:** %s\n", strings.Join(related, ", "))
	}

	if len(c.Insights) > 0 {
		b.WriteString("\n**Insights:**\n")
		for _, insight := range c.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// groupRelationships groups by type in order of first appearance.
func groupRelationships(rels []*model.GraphRelationship) (map[model.RelationshipType][]*model.GraphRelationship, []model.RelationshipType) {
	groups := map[model.RelationshipType][]*model.GraphRelationship{}
	order := []model.RelationshipType{}
	for _, rel := range rels {
		if _, ok := groups[rel.Type]; !ok {
			order = append(order, rel.Type)
		}
		groups[rel.Type] = append(groups[rel.Type], rel)
	}
	return groups, order
}

// relatedNames lists the context nodes that no relationship touches.
func relatedNames(c *model.GraphRAGContext) []string {
	connected := map[string]bool{}
	for _, rel := range c.Relationships {
		connected[rel.StartNodeID] = true
		connected[rel.EndNodeID] = true
	}
	names := []string{}
	for _, n := range c.Nodes[1:] {
		if !connected[n.ID] && n.Name() != "" {
			names = append(names, n.Name())
		}
	}
	return names
}

// ReasoningSteps describes how a response was assembled.
func ReasoningSteps(query string, hybrid *model.HybridSearchResult, c *model.GraphRAGContext, includeVector bool) []string {
	steps := []string{fmt.Sprintf("Searched the knowledge graph for %q", query)}

	if hybrid != nil {
		if hybrid.GraphResults.Success {
			steps = append(steps, fmt.Sprintf("Graph search matched %d entities", len(hybrid.GraphResults.Items)))
		} else {
			steps = append(steps, "Graph search failed: "+hybrid.GraphResults.Error)
		}
	}

	if c == nil || c.IsEmpty() {
		steps = append(steps, "No seed entity was found, so no traversal was run")
	} else {
		steps = append(steps, fmt.Sprintf("Expanded from %q to %d entities, %d relationships and %d paths",
			c.Nodes[0].Name(), len(c.Nodes), len(c.Relationships), len(c.Paths)))
		steps = append(steps, fmt.Sprintf("Context relevance is %.2f", c.RelevanceScore))
	}

	switch {
	case !includeVector:
		steps = append(steps, "Vector search was not requested")
	case hybrid != nil && hybrid.VectorResults.Success:
		steps = append(steps, fmt.Sprintf("Vector search contributed %d snippets", len(hybrid.VectorResults.Items)))
	case hybrid != nil:
		steps = append(steps, "Vector search did not contribute: "+hybrid.VectorResults.Error)
	}

	return steps
}
