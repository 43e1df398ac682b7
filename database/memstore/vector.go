package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/model"
)

// VectorStore is an in-memory knowledge and document store. Items are
// ranked by the share of query terms they contain.
type VectorStore struct {
	mu        sync.RWMutex
	knowledge []*model.Knowledge
	chunks    []*model.Chunk
	documents map[uuid.UUID]*model.Document
	err       error
	latency   time.Duration

	searchCalls atomic.Int64
}

// NewVectorStore returns an empty store.
func NewVectorStore() *VectorStore {
	return &VectorStore{documents: map[uuid.UUID]*model.Document{}}
}

// SetError makes every search fail with err. Nil restores normal operation.
func (s *VectorStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetLatency delays every search by d or until the context is done.
func (s *VectorStore) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SearchCalls returns how many searches were made.
func (s *VectorStore) SearchCalls() int64 {
	return s.searchCalls.Load()
}

// InsertKnowledge stores a snippet.
func (s *VectorStore) InsertKnowledge(ctx context.Context, knowledge *model.Knowledge) error {
	if knowledge.Content == "" {
		return fmt.Errorf("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	knowledge.ID = int64(len(s.knowledge) + 1)
	knowledge.RID = uuid.New()
	knowledge.CreatedAt = time.Now()
	s.knowledge = append(s.knowledge, knowledge)
	return nil
}

// AddDocument stores a document and its chunks.
func (s *VectorStore) AddDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = int64(len(s.documents) + 1)
	doc.RID = uuid.New()
	doc.CreatedAt = time.Now()
	s.documents[doc.RID] = doc

	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.DocumentRID = doc.RID
		chunk.RID = uuid.New()
		chunk.CreatedAt = doc.CreatedAt
		s.chunks = append(s.chunks, chunk)
	}
	return nil
}

// SearchKnowledge ranks snippets against the query. An empty category searches all.
func (s *VectorStore) SearchKnowledge(ctx context.Context, query string, category string, limit int) *model.VectorSearchResult {
	if err := s.wait(ctx); err != nil {
		return failed(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []model.VectorItem{}
	for _, k := range s.knowledge {
		if category != "" && k.Category != category {
			continue
		}
		score := overlap(query, k.Content)
		if score == 0 {
			continue
		}
		metadata := model.Metadata{}
		for key, v := range k.Metadata {
			metadata[key] = v
		}
		if k.Category != "" {
			metadata["category"] = k.Category
		}
		items = append(items, model.VectorItem{ID: k.RID.String(), Content: k.Content, Metadata: metadata, Score: score})
	}
	return ranked(items, limit)
}

// SearchDocuments ranks document chunks against the query.
func (s *VectorStore) SearchDocuments(ctx context.Context, query string, limit int) *model.VectorSearchResult {
	if err := s.wait(ctx); err != nil {
		return failed(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []model.VectorItem{}
	for _, c := range s.chunks {
		score := overlap(query, c.Content)
		if score == 0 {
			continue
		}
		doc := s.documents[c.DocumentRID]
		metadata := model.Metadata{
			"document_rid": c.DocumentRID.String(),
			"chunk_index":  c.ChunkIndex,
		}
		if doc != nil {
			metadata["document_title"] = doc.Title
		}
		items = append(items, model.VectorItem{ID: c.RID.String(), Content: c.Content, Metadata: metadata, Score: score})
	}
	return ranked(items, limit)
}

// CheckConnection reports an error while one is injected.
func (s *VectorStore) CheckConnection(ctx context.Context) *model.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return &model.ConnectionStatus{Connected: false, Error: s.err.Error()}
	}
	return &model.ConnectionStatus{Connected: true, Version: "memstore"}
}

func (s *VectorStore) wait(ctx context.Context) error {
	s.searchCalls.Add(1)

	s.mu.RLock()
	latency, err := s.latency, s.err
	s.mu.RUnlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func overlap(query string, content string) float64 {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return 0
	}
	text := strings.ToLower(content)
	found := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

func ranked(items []model.VectorItem, limit int) *model.VectorSearchResult {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return &model.VectorSearchResult{Success: true, Items: items}
}

func failed(err error) *model.VectorSearchResult {
	return &model.VectorSearchResult{Success: false, Items: []model.VectorItem{}, Error: err.Error()}
}
