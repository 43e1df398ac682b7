package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// splitSentences splits on sentence-ending punctuation followed by a space.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")
	text = strings.ReplaceAll(text, "\n", "|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// newChunk builds the chunk at index with a path below basePath.
func newChunk(content string, basePath string, index int, metadata map[string]interface{}) ChunkWithPath {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return ChunkWithPath{
		Content:    content,
		Path:       fmt.Sprintf("%s.chunk%d", basePath, index),
		ChunkIndex: index,
		Metadata:   metadata,
	}
}

// SentenceChunker creates a chunker that groups maxSentencesPerChunk sentences.
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string, basePath string) ([]ChunkWithPath, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		sentences := splitSentences(text)
		chunks := []ChunkWithPath{}
		for start := 0; start < len(sentences); start += maxSentencesPerChunk {
			end := start + maxSentencesPerChunk
			if end > len(sentences) {
				end = len(sentences)
			}
			chunks = append(chunks, newChunk(strings.Join(sentences[start:end], " "), basePath, len(chunks), map[string]interface{}{
				"num_sentences":   end - start,
				"chunking_method": "sentence",
			}))
		}
		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits on blank lines.
func ParagraphChunker() ChunkFunc {
	return func(text string, basePath string) ([]ChunkWithPath, error) {
		chunks := []ChunkWithPath{}
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, newChunk(para, basePath, len(chunks), map[string]interface{}{
				"chunking_method": "paragraph",
			}))
		}
		return chunks, nil
	}
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// SemanticChunker groups consecutive sentences while they stay similar to
// the running chunk. A chunk is closed when the similarity of the next
// sentence to the chunk centroid drops below similarityThreshold or the
// chunk would grow beyond maxChunkSize characters.
func SemanticChunker(embed EmbedFunc, maxChunkSize int, similarityThreshold float32) ChunkFunc {
	return func(text string, basePath string) ([]ChunkWithPath, error) {
		if embed == nil {
			return nil, fmt.Errorf("semantic chunker requires an embedder")
		}

		sentences := splitSentences(text)
		chunks := []ChunkWithPath{}
		var current []string
		var centroid []float32
		length := 0

		flush := func() {
			if len(current) == 0 {
				return
			}
			chunks = append(chunks, newChunk(strings.Join(current, " "), basePath, len(chunks), map[string]interface{}{
				"num_sentences":   len(current),
				"chunking_method": "semantic",
			}))
			current = nil
			centroid = nil
			length = 0
		}

		for _, sentence := range sentences {
			embedding, err := embed(sentence)
			if err != nil {
				return nil, fmt.Errorf("failed to embed sentence: %w", err)
			}

			if len(current) > 0 {
				if cosineSimilarity(centroid, embedding) < similarityThreshold || length+len(sentence) > maxChunkSize {
					flush()
				}
			}

			n := float32(len(current))
			if centroid == nil {
				centroid = make([]float32, len(embedding))
			}
			for i := range centroid {
				if i < len(embedding) {
					centroid[i] = (centroid[i]*n + embedding[i]) / (n + 1)
				}
			}
			current = append(current, sentence)
			length += len(sentence)
		}
		flush()

		return chunks, nil
	}
}
