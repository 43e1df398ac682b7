package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDefaultEmbedder loads the ONNX model, which is downloaded on first use.
func newDefaultEmbedder(t *testing.T) *Embedder {
	if testing.Short() {
		t.Skip("Skipping embedder test in short mode (requires model download)")
	}

	embedder, err := DefaultEmbedder()
	require.NoError(t, err, "Expected DefaultEmbedder to load the model")
	t.Cleanup(func() {
		_ = embedder.Close()
	})
	return embedder
}

func TestEmbedder(t *testing.T) {
	embedder := newDefaultEmbedder(t)

	t.Run("Embedding has the model dimension", func(t *testing.T) {
		for _, text := range []string{
			"Diwali",
			"Diwali is the festival of lights.",
			"Special chars: @#$%^&*()! दीपावली 🎉",
		} {
			embedding, err := embedder.Embed(text)
			require.NoError(t, err, "Failed for text: %s", text)
			assert.Len(t, embedding, DefaultEmbeddingDim, "Failed for text: %s", text)
		}
	})

	t.Run("Embedding is deterministic", func(t *testing.T) {
		first, err := embedder.Embed("Onam is celebrated in Kerala")
		require.NoError(t, err)
		second, err := embedder.Embed("Onam is celebrated in Kerala")
		require.NoError(t, err)
		assert.InDeltaSlice(t, first, second, 1e-5)
	})

	t.Run("Related texts are closer than unrelated ones", func(t *testing.T) {
		lights, err := embedder.Embed("Diwali is the festival of lights")
		require.NoError(t, err)
		lamps, err := embedder.Embed("People light oil lamps during Deepavali")
		require.NoError(t, err)
		football, err := embedder.Embed("The football match ended in a draw")
		require.NoError(t, err)

		assert.Greater(t, cosineSimilarity(lights, lamps), cosineSimilarity(lights, football))
	})

	t.Run("Batch matches single embeddings", func(t *testing.T) {
		texts := []string{"Holi is the festival of colours", "Pongal is a harvest festival"}
		batch, err := embedder.EmbedBatch(texts)
		require.NoError(t, err)
		require.Len(t, batch, len(texts))

		single, err := embedder.Embed(texts[1])
		require.NoError(t, err)
		assert.InDeltaSlice(t, single, batch[1], 1e-4)
	})

	t.Run("Func adapts the embedder", func(t *testing.T) {
		embedding, err := embedder.Func()("Lakshmi")
		require.NoError(t, err)
		assert.Len(t, embedding, DefaultEmbeddingDim)
	})
}

func TestNewEmbedderUnknownModel(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping embedder test in short mode (requires network)")
	}

	_, err := NewEmbedder("does-not-exist/no-such-model")
	assert.Error(t, err)
}
