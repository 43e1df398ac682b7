//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitiesNewEntitiesDBHandler(t *testing.T) {
	t.Run("Invalid call NewEntitiesDBHandler with nil graph", func(t *testing.T) {
		_, err := NewEntitiesDBHandler(context.Background(), nil, false)
		assert.Error(t, err, "Expected error when creating EntitiesDBHandler with nil graph")
		assert.Contains(t, err.Error(), "graph connection is nil")
	})
}

func TestEntitiesUpsert(t *testing.T) {
	entities := initEntities(t)
	ctx := context.Background()

	t.Run("Upsert is idempotent by name", func(t *testing.T) {
		created, err := entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "Holi", Type: model.EntityTypeFestival, Description: "first"})
		require.NoError(t, err)
		assert.True(t, created, "Expected first upsert to create")

		created, err = entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "Holi", Type: model.EntityTypeFestival, Description: "second"})
		require.NoError(t, err)
		assert.False(t, created, "Expected second upsert to update")

		count := entities.graph.ExecuteRead(ctx, `MATCH (e:CulturalEntity {name: 'Holi'}) RETURN count(e) AS c`, nil)
		require.True(t, count.Success)
		assert.Equal(t, int64(1), count.Records[0].Int("c"), "Expected exactly one node")

		node, err := entities.SelectEntityByName(ctx, "Holi")
		require.NoError(t, err)
		assert.Equal(t, "second", node.Properties.GetString("description"), "Expected last write to win")
		assert.True(t, node.HasLabel(model.EntityTypeFestival.Label()))
	})

	t.Run("Upsert replaces the type label", func(t *testing.T) {
		_, err := entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "Bhangra", Type: model.EntityTypeTradition})
		require.NoError(t, err)
		_, err = entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "Bhangra", Type: model.EntityTypeArt})
		require.NoError(t, err)

		node, err := entities.SelectEntityByName(ctx, "Bhangra")
		require.NoError(t, err)
		assert.True(t, node.HasLabel(model.EntityTypeArt.Label()))
		assert.False(t, node.HasLabel(model.EntityTypeTradition.Label()), "Expected old type label to be removed")
	})

	t.Run("Invalid entity is rejected before the store", func(t *testing.T) {
		_, err := entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "", Type: model.EntityTypeFestival})
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestEntitiesUpsertRelationship(t *testing.T) {
	entities := initEntities(t)
	ctx := context.Background()

	for _, name := range []string{"Pongal", "Tamil Nadu"} {
		_, err := entities.UpsertEntity(ctx, &model.CulturalEntity{Name: name, Type: model.EntityTypeFestival})
		require.NoError(t, err)
	}

	t.Run("Merges a relationship once", func(t *testing.T) {
		rel := &model.CulturalRelationship{From: "Pongal", To: "Tamil Nadu", Type: model.RelCelebratedIn, Strength: 0.8}
		created, err := entities.UpsertRelationship(ctx, rel)
		require.NoError(t, err)
		assert.True(t, created)

		rel.Strength = 0.7
		created, err = entities.UpsertRelationship(ctx, rel)
		require.NoError(t, err)
		assert.False(t, created, "Expected second upsert to update")

		result := entities.graph.ExecuteRead(ctx, `MATCH ()-[r:CELEBRATED_IN]->() RETURN count(r) AS c, max(r.strength) AS s`, nil)
		require.True(t, result.Success)
		assert.Equal(t, int64(1), result.Records[0].Int("c"))
		assert.InDelta(t, 0.7, result.Records[0].Float("s"), 1e-9)
	})

	t.Run("Missing endpoint fails", func(t *testing.T) {
		_, err := entities.UpsertRelationship(ctx, &model.CulturalRelationship{From: "Pongal", To: "Nowhere", Type: model.RelCelebratedIn, Strength: 0.5})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "endpoint entity not found")
	})

	t.Run("Strength out of range is rejected", func(t *testing.T) {
		_, err := entities.UpsertRelationship(ctx, &model.CulturalRelationship{From: "Pongal", To: "Tamil Nadu", Type: model.RelCelebratedIn, Strength: 1.5})
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestEntitiesClearGraph(t *testing.T) {
	entities := initEntities(t)
	ctx := context.Background()

	_, err := entities.UpsertEntity(ctx, &model.CulturalEntity{Name: "Onam", Type: model.EntityTypeFestival})
	require.NoError(t, err)

	t.Run("Refuses without confirmation", func(t *testing.T) {
		_, err := entities.ClearGraph(ctx, false)
		assert.ErrorIs(t, err, helper.ErrNotConfirmed)

		node, err := entities.SelectEntityByName(ctx, "Onam")
		require.NoError(t, err)
		assert.NotNil(t, node, "Expected graph to be untouched")
	})

	t.Run("Deletes with confirmation", func(t *testing.T) {
		deleted, err := entities.ClearGraph(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
