// Package memstore provides in-memory graph and vector stores with the same
// contracts as the Neo4j and Postgres gateways. They count calls and can be
// told to fail, which makes them suitable for engine tests and local demos.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// ErrUnavailable is returned by every graph call while the store is disconnected.
var ErrUnavailable = fmt.Errorf("graph store unavailable: %w", helper.ErrGraphUnavailable)

// GraphCalls counts the read calls made against a GraphStore.
type GraphCalls struct {
	GetNode      int64
	GetNeighbors int64
	SearchNodes  int64
}

// GraphStore is an in-memory cultural entity graph.
type GraphStore struct {
	mu        sync.RWMutex
	nodes     map[string]*model.GraphNode
	order     []string
	byName    map[string]string
	rels      []*model.GraphRelationship
	relByKey  map[string]*model.GraphRelationship
	seq       int64
	connected bool
	failures  map[string]error

	getNodeCalls      atomic.Int64
	getNeighborsCalls atomic.Int64
	searchCalls       atomic.Int64
}

// NewGraphStore returns an empty, connected store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:     map[string]*model.GraphNode{},
		byName:    map[string]string{},
		relByKey:  map[string]*model.GraphRelationship{},
		connected: true,
		failures:  map[string]error{},
	}
}

// SetConnected toggles availability. A disconnected store fails every call.
func (s *GraphStore) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// FailEntity makes every upsert of the named entity return err.
func (s *GraphStore) FailEntity(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = err
}

// Calls returns the read call counters.
func (s *GraphStore) Calls() GraphCalls {
	return GraphCalls{
		GetNode:      s.getNodeCalls.Load(),
		GetNeighbors: s.getNeighborsCalls.Load(),
		SearchNodes:  s.searchCalls.Load(),
	}
}

// NodeID returns the id of the named entity, empty if it does not exist.
func (s *GraphStore) NodeID(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

func (s *GraphStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

// CheckConnection reports the simulated availability.
func (s *GraphStore) CheckConnection(ctx context.Context) *model.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return &model.ConnectionStatus{Connected: false, Error: ErrUnavailable.Error()}
	}
	return &model.ConnectionStatus{Connected: true, Version: "memstore"}
}

// Stats returns node and relationship counts.
func (s *GraphStore) Stats(ctx context.Context) (*model.GraphStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrUnavailable
	}

	labels := map[string]bool{}
	for _, n := range s.nodes {
		for _, l := range n.Labels {
			labels[string(l)] = true
		}
	}
	types := map[string]bool{}
	for _, r := range s.rels {
		types[string(r.Type)] = true
	}

	return &model.GraphStats{
		NodeCount:         int64(len(s.nodes)),
		RelationshipCount: int64(len(s.rels)),
		Labels:            sortedKeys(labels),
		RelationshipTypes: sortedKeys(types),
	}, nil
}

// UpsertEntity creates or updates the entity with the same name.
func (s *GraphStore) UpsertEntity(ctx context.Context, entity *model.CulturalEntity) (bool, error) {
	if err := entity.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return false, ErrUnavailable
	}
	if err := s.failures[entity.Name]; err != nil {
		return false, helper.NewError(fmt.Sprintf("upsert entity %q", entity.Name), err)
	}

	now := time.Now()
	labels := entity.Labels()

	if id, ok := s.byName[entity.Name]; ok {
		props := cloneProperties(s.nodes[id].Properties)
		for k, v := range entity.Properties() {
			props[k] = v
		}
		props["lastUpdated"] = now
		s.nodes[id] = &model.GraphNode{ID: id, Labels: labels, Properties: props}
		return false, nil
	}

	props := entity.Properties()
	props["dateAdded"] = now
	props["lastUpdated"] = now
	node := &model.GraphNode{
		ID:         s.nextID("n"),
		Labels:     labels,
		Properties: props,
	}
	s.nodes[node.ID] = node
	s.order = append(s.order, node.ID)
	s.byName[entity.Name] = node.ID
	return true, nil
}

// UpsertRelationship merges a relationship between two named entities.
func (s *GraphStore) UpsertRelationship(ctx context.Context, relationship *model.CulturalRelationship) (bool, error) {
	if err := relationship.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return false, ErrUnavailable
	}

	op := fmt.Sprintf("upsert relationship %s -[%s]-> %s", relationship.From, relationship.Type, relationship.To)
	from, okFrom := s.byName[relationship.From]
	to, okTo := s.byName[relationship.To]
	if !okFrom || !okTo {
		return false, helper.NewError(op, fmt.Errorf("endpoint entity not found"))
	}

	key := from + "|" + string(relationship.Type) + "|" + to
	if rel, ok := s.relByKey[key]; ok {
		props := cloneProperties(rel.Properties)
		for k, v := range relationship.Properties() {
			props[k] = v
		}
		updated := &model.GraphRelationship{
			ID:          rel.ID,
			Type:        rel.Type,
			Properties:  props,
			StartNodeID: rel.StartNodeID,
			EndNodeID:   rel.EndNodeID,
		}
		for i, r := range s.rels {
			if r.ID == rel.ID {
				s.rels[i] = updated
			}
		}
		s.relByKey[key] = updated
		return false, nil
	}

	rel := &model.GraphRelationship{
		ID:          s.nextID("r"),
		Type:        relationship.Type,
		Properties:  relationship.Properties(),
		StartNodeID: from,
		EndNodeID:   to,
	}
	s.rels = append(s.rels, rel)
	s.relByKey[key] = rel
	return true, nil
}

// SelectEntityByName returns the entity node, nil if it does not exist.
func (s *GraphStore) SelectEntityByName(ctx context.Context, name string) (*model.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrUnavailable
	}
	id, ok := s.byName[name]
	if !ok {
		return nil, nil
	}
	return s.nodes[id], nil
}

// ClearGraph deletes everything when confirm is true.
func (s *GraphStore) ClearGraph(ctx context.Context, confirm bool) (int64, error) {
	if !confirm {
		return 0, helper.NewError("clear graph", helper.ErrNotConfirmed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0, ErrUnavailable
	}

	deleted := int64(len(s.nodes))
	s.nodes = map[string]*model.GraphNode{}
	s.order = nil
	s.byName = map[string]string{}
	s.rels = nil
	s.relByKey = map[string]*model.GraphRelationship{}
	return deleted, nil
}

// Stored nodes and relationships are replaced on every write and never
// modified, so values handed to callers stay snapshots.
func cloneProperties(props model.Metadata) model.Metadata {
	out := make(model.Metadata, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// GetNode returns the node with the given id, nil if it does not exist.
func (s *GraphStore) GetNode(ctx context.Context, id string) (*model.GraphNode, error) {
	s.getNodeCalls.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrUnavailable
	}
	return s.nodes[id], nil
}

// GetNeighbors returns the relationships touching nodeID in creation order.
func (s *GraphStore) GetNeighbors(ctx context.Context, nodeID string, types []model.RelationshipType, direction model.Direction) ([]model.Neighbor, error) {
	s.getNeighborsCalls.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrUnavailable
	}

	neighbors := []model.Neighbor{}
	for _, rel := range s.rels {
		if !allowed(rel.Type, types) {
			continue
		}
		var other string
		switch {
		case rel.StartNodeID == nodeID && direction != model.DirectionIncoming:
			other = rel.EndNodeID
		case rel.EndNodeID == nodeID && direction != model.DirectionOutgoing:
			other = rel.StartNodeID
		default:
			continue
		}
		neighbors = append(neighbors, model.Neighbor{Relationship: rel, Node: s.nodes[other]})
	}
	return neighbors, nil
}

// SearchNodes scores entities by term overlap. A term found in the name
// counts 2, in the description or significance 1. Terms shorter than three
// characters and common stopwords are ignored.
func (s *GraphStore) SearchNodes(ctx context.Context, term string, types []model.RelationshipType, limit int) ([]model.ScoredNode, error) {
	s.searchCalls.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrUnavailable
	}

	tokens := Tokenize(term)
	hits := []model.ScoredNode{}
	if len(tokens) == 0 {
		return hits, nil
	}

	for _, id := range s.order {
		node := s.nodes[id]
		if len(types) > 0 && !s.hasRelationship(id, types) {
			continue
		}

		name := strings.ToLower(node.Name())
		text := strings.ToLower(node.Properties.GetString("description") + " " + node.Properties.GetString("significance"))
		score := 0.0
		for _, token := range tokens {
			if strings.Contains(name, token) {
				score += 2
			} else if strings.Contains(text, token) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, model.ScoredNode{Node: node, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *GraphStore) hasRelationship(nodeID string, types []model.RelationshipType) bool {
	for _, rel := range s.rels {
		if (rel.StartNodeID == nodeID || rel.EndNodeID == nodeID) && allowed(rel.Type, types) {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"the": true, "and": true, "are": true, "for": true, "with": true, "what": true,
	"who": true, "how": true, "why": true, "about": true, "tell": true, "does": true,
	"which": true, "from": true, "that": true, "this": true, "its": true, "into": true,
	"was": true, "were": true,
}

// Tokenize lower-cases text and splits it into search terms.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	seen := map[string]bool{}
	for _, w := range words {
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

func allowed(t model.RelationshipType, types []model.RelationshipType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
