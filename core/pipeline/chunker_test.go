package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const festivalText = "Diwali is the festival of lights. Homes are lit with diyas! Lakshmi is worshipped at night. Why do people light lamps? To welcome prosperity."

func TestSentenceChunker(t *testing.T) {
	t.Run("Groups sentences", func(t *testing.T) {
		chunks, err := SentenceChunker(2)(festivalText, "diwali")
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "Diwali is the festival of lights. Homes are lit with diyas!", chunks[0].Content)
		assert.Equal(t, "To welcome prosperity.", chunks[2].Content)
		assert.Equal(t, "diwali.chunk1", chunks[1].Path)
		assert.Equal(t, 1, chunks[1].ChunkIndex)
		assert.Equal(t, 1, chunks[2].Metadata["num_sentences"])
	})

	t.Run("Empty text yields no chunks", func(t *testing.T) {
		chunks, err := SentenceChunker(2)("   ", "doc")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Non-positive size is rejected", func(t *testing.T) {
		_, err := SentenceChunker(0)(festivalText, "doc")
		assert.Error(t, err)
	})
}

func TestParagraphChunker(t *testing.T) {
	text := "Holi marks spring.\n\n\n\nOnam is celebrated in Kerala.\n\n  "
	chunks, err := ParagraphChunker()(text, "festivals")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Onam is celebrated in Kerala.", chunks[1].Content)
	assert.Equal(t, "festivals.chunk1", chunks[1].Path)
	assert.Equal(t, "paragraph", chunks[0].Metadata["chunking_method"])
}

// topicEmbed maps sentences about lights and lamps onto one axis and
// everything else onto another.
func topicEmbed(text string) ([]float32, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "light") || strings.Contains(lower, "lamp") || strings.Contains(lower, "diya") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func TestSemanticChunker(t *testing.T) {
	t.Run("Breaks on topic change", func(t *testing.T) {
		text := "Diwali is the festival of lights. Homes are lit with diyas. Pongal is a harvest festival. Rice is boiled in milk."
		chunks, err := SemanticChunker(topicEmbed, 1000, 0.5)(text, "doc")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Diwali is the festival of lights. Homes are lit with diyas.", chunks[0].Content)
		assert.Equal(t, 2, chunks[1].Metadata["num_sentences"])
		assert.Equal(t, "semantic", chunks[1].Metadata["chunking_method"])
	})

	t.Run("Breaks on size", func(t *testing.T) {
		chunks, err := SemanticChunker(topicEmbed, 40, 0.0)(festivalText, "doc")
		require.NoError(t, err)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c.Content), 40+len(" "), "Expected chunk %q to respect the size limit", c.Content)
		}
	})

	t.Run("Embedding errors are returned", func(t *testing.T) {
		failing := func(string) ([]float32, error) { return nil, errors.New("model not loaded") }
		_, err := SemanticChunker(failing, 100, 0.5)(festivalText, "doc")
		assert.ErrorContains(t, err, "model not loaded")
	})

	t.Run("Nil embedder is rejected", func(t *testing.T) {
		_, err := SemanticChunker(nil, 100, 0.5)(festivalText, "doc")
		assert.Error(t, err)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 2}), "Expected mismatched lengths to score 0")
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 1}), "Expected zero vectors to score 0")
}
