package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/graphrag/core/cache"
	"github.com/siherrmann/graphrag/database/memstore"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/require"
)

func newCulturalStore(t *testing.T) *memstore.GraphStore {
	store := memstore.NewGraphStore()
	ctx := context.Background()
	for _, e := range []*model.CulturalEntity{
		{Name: "Diwali", Type: model.EntityTypeFestival, Description: "Festival of lights", Region: "North India", Category: "religious"},
		{Name: "Lakshmi", Type: model.EntityTypeDeity, Description: "Goddess of wealth worshipped on Diwali", Category: "hindu"},
		{Name: "Diwali Sweets", Type: model.EntityTypeFood, Description: "Sweets shared during the festival", Region: "All India"},
		{Name: "Kathak", Type: model.EntityTypeArt, Description: "Classical dance from North India", Region: "North India"},
	} {
		_, err := store.UpsertEntity(ctx, e)
		require.NoError(t, err)
	}
	_, err := store.UpsertRelationship(ctx, &model.CulturalRelationship{From: "Diwali", To: "Lakshmi", Type: model.RelWorships, Strength: 0.9})
	require.NoError(t, err)
	return store
}

func newTestCache(t *testing.T) *cache.QueryCache {
	c, err := cache.NewQueryCache(100, time.Minute, nil)
	require.NoError(t, err)
	return c
}
