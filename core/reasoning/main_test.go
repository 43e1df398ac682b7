package reasoning

import (
	"context"
	"testing"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/database/memstore"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/require"
)

// newFestivalStore builds Diwali -WORSHIPS-> Lakshmi, Diya -ASSOCIATED_WITH-> Diwali
// and the isolated Holi.
func newFestivalStore(t *testing.T) *memstore.GraphStore {
	store := memstore.NewGraphStore()
	ctx := context.Background()
	for _, e := range []*model.CulturalEntity{
		{Name: "Diwali", Type: model.EntityTypeFestival, Description: "Festival of lights", Region: "North India", Category: "religious", Significance: "Victory of light over darkness"},
		{Name: "Lakshmi", Type: model.EntityTypeDeity, Description: "Goddess of wealth and prosperity", Category: "hindu"},
		{Name: "Diya", Type: model.EntityTypeCustom, Description: "Clay lamp lit in every home", Region: "South India", Category: "ritual"},
		{Name: "Holi", Type: model.EntityTypeFestival, Description: "Festival of colours", Region: "North India", Category: "religious"},
	} {
		_, err := store.UpsertEntity(ctx, e)
		require.NoError(t, err)
	}
	for _, r := range []*model.CulturalRelationship{
		{From: "Diwali", To: "Lakshmi", Type: model.RelWorships, Strength: 0.9},
		{From: "Diya", To: "Diwali", Type: model.RelAssociatedWith, Strength: 0.7},
	} {
		_, err := store.UpsertRelationship(ctx, r)
		require.NoError(t, err)
	}
	return store
}

func newTestAssembler(t *testing.T, store *memstore.GraphStore, config *model.Config) *Assembler {
	if config == nil {
		config = model.DefaultConfig()
	}
	searcher := retrieval.NewSemanticSearcher(store, nil, config, nil)
	engine := graph.NewEngine(store, nil, config, nil)
	return NewAssembler(searcher, engine, config, nil)
}

func nodeNames(nodes []*model.GraphNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
