//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorNewVectorDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewVectorDBHandler", func(t *testing.T) {
		vector, err := NewVectorDBHandler(database, testEmbeddingDim, fakeEmbed, true)
		assert.NoError(t, err, "Expected NewVectorDBHandler to not return an error")
		require.NotNil(t, vector)
		assert.NotNil(t, vector.Knowledge)
		assert.NotNil(t, vector.Documents)
		assert.NotNil(t, vector.Chunks)
		assert.True(t, vector.CheckConnection(context.Background()).Connected)
	})

	t.Run("Invalid call NewVectorDBHandler with nil database", func(t *testing.T) {
		_, err := NewVectorDBHandler(nil, testEmbeddingDim, nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestKnowledgeSearch(t *testing.T) {
	database := initDB(t)
	vector, err := NewVectorDBHandler(database, testEmbeddingDim, fakeEmbed, true)
	require.NoError(t, err)
	ctx := context.Background()

	knowledge := []*model.Knowledge{
		{Content: "Diwali is celebrated with oil lamps and sweets", Category: "festival"},
		{Content: "Kathak is a classical dance from North India", Category: "dance"},
	}
	for _, k := range knowledge {
		require.NoError(t, vector.Knowledge.InsertKnowledge(ctx, k))
		assert.NotEmpty(t, k.RID, "Expected RID to be set")
		assert.Len(t, k.Embedding, testEmbeddingDim, "Expected embedding to be generated")
		assert.WithinDuration(t, time.Now(), k.CreatedAt, 5*time.Second)
	}
	t.Cleanup(func() {
		for _, k := range knowledge {
			_ = vector.Knowledge.DeleteKnowledge(ctx, k.RID)
		}
	})

	t.Run("Embedding search returns scored items", func(t *testing.T) {
		result := vector.SearchKnowledge(ctx, "oil lamps", "", 5)
		require.True(t, result.Success, "Expected search to succeed: %s", result.Error)
		require.Len(t, result.Items, 2)
		assert.GreaterOrEqual(t, result.Items[0].Score, result.Items[1].Score, "Expected descending scores")
		assert.NotEmpty(t, result.Items[0].Metadata.GetString("category"))
	})

	t.Run("Category restricts the search", func(t *testing.T) {
		result := vector.SearchKnowledge(ctx, "dance", "dance", 5)
		require.True(t, result.Success)
		require.Len(t, result.Items, 1)
		assert.Contains(t, result.Items[0].Content, "Kathak")
	})

	t.Run("Full-text fallback without embedder", func(t *testing.T) {
		textOnly := &KnowledgeDBHandler{db: database}
		result := textOnly.SearchKnowledge(ctx, "classical dance", "", 5)
		require.True(t, result.Success, "Expected search to succeed: %s", result.Error)
		require.Len(t, result.Items, 1)
		assert.Contains(t, result.Items[0].Content, "Kathak")
		assert.Greater(t, result.Items[0].Score, 0.0)
	})

	t.Run("Empty content is rejected", func(t *testing.T) {
		err := vector.Knowledge.InsertKnowledge(ctx, &model.Knowledge{})
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestDocumentsAndChunks(t *testing.T) {
	database := initDB(t)
	vector, err := NewVectorDBHandler(database, testEmbeddingDim, fakeEmbed, true)
	require.NoError(t, err)
	ctx := context.Background()

	doc := &model.Document{Title: "Festivals of India", Source: "festivals.txt", Metadata: model.Metadata{"lang": "en"}}
	chunks := []*model.Chunk{
		{Content: "Holi is the festival of colours", Path: "festivals.0", ChunkIndex: 0},
		{Content: "Onam is a harvest festival in Kerala", Path: "festivals.1", ChunkIndex: 1},
	}
	for _, c := range chunks {
		c.Embedding, _ = fakeEmbed(c.Content)
	}

	require.NoError(t, vector.AddDocument(ctx, doc, chunks))
	t.Cleanup(func() {
		_ = vector.Documents.DeleteDocument(ctx, doc.RID)
	})

	t.Run("Document can be selected", func(t *testing.T) {
		selected, err := vector.Documents.SelectDocument(ctx, doc.RID)
		require.NoError(t, err)
		assert.Equal(t, "Festivals of India", selected.Title)
		assert.Equal(t, "festivals.txt", selected.Source)
		assert.Equal(t, "en", selected.Metadata.GetString("lang"))
	})

	t.Run("Chunks carry their document", func(t *testing.T) {
		for _, c := range chunks {
			assert.Equal(t, doc.ID, c.DocumentID)
			assert.NotEmpty(t, c.RID)
		}

		result := vector.SearchDocuments(ctx, "harvest", 5)
		require.True(t, result.Success, "Expected search to succeed: %s", result.Error)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "Festivals of India", result.Items[0].Metadata.GetString("document_title"))
	})

	t.Run("Deleting the document cascades", func(t *testing.T) {
		require.NoError(t, vector.Documents.DeleteDocument(ctx, doc.RID))
		result := vector.SearchDocuments(ctx, "harvest", 5)
		require.True(t, result.Success)
		assert.Empty(t, result.Items)
	})

	t.Run("Failed chunk insert leaves no document", func(t *testing.T) {
		failed := &model.Document{Title: "Monsoon Festivals", Source: "monsoon.txt"}
		bad := []*model.Chunk{
			{Content: "Teej welcomes the monsoon", Path: "monsoon.0", ChunkIndex: 0},
			{Content: "Nag Panchami honours serpents in the monsoon", Path: "monsoon.1", ChunkIndex: 1, Embedding: []float32{1, 2, 3, 4, 5}},
		}
		bad[0].Embedding, _ = fakeEmbed(bad[0].Content)

		err := vector.AddDocument(ctx, failed, bad)
		require.Error(t, err, "Expected the wrong embedding dimension to fail")
		assert.Contains(t, err.Error(), "insert chunk 1")

		_, err = vector.Documents.SelectDocument(ctx, failed.RID)
		assert.Error(t, err, "Expected the document insert to be rolled back")

		result := vector.SearchDocuments(ctx, "monsoon", 5)
		require.True(t, result.Success)
		assert.Empty(t, result.Items, "Expected no chunk of the failed document to remain")
	})
}
