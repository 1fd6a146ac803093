// Package memory implements the chunk index and the parent store in
// process memory. Intended for tests and small corpora; nothing
// survives a restart.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/wei292224644/regdoc"
)

// Store keeps everything in maps guarded by one RWMutex. Similarity
// search is brute-force cosine over all stored chunks.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]regdoc.Document
	chunks  map[string]regdoc.Chunk
	parents map[string]regdoc.ParentChunk
}

var _ regdoc.VectorIndex = (*Store)(nil)
var _ regdoc.ParentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		docs:    map[string]regdoc.Document{},
		chunks:  map[string]regdoc.Chunk{},
		parents: map[string]regdoc.ParentChunk{},
	}
}

func (s *Store) Init(context.Context) error { return nil }

func (s *Store) UpsertDocument(_ context.Context, doc regdoc.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *Store) GetDocument(_ context.Context, docID string) (regdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return regdoc.Document{}, regdoc.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Store) ListDocuments(_ context.Context) ([]regdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]regdoc.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt != docs[j].CreatedAt {
			return docs[i].CreatedAt > docs[j].CreatedAt
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *Store) UpsertChunks(_ context.Context, chunks []regdoc.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *Store) SearchChunks(_ context.Context, embedding []float32, topK int) ([]regdoc.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []regdoc.ScoredChunk
	for _, c := range s.chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		results = append(results, regdoc.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocID != results[j].DocID {
			return results[i].DocID < results[j].DocID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) GetChunksByDocument(_ context.Context, docID string) ([]regdoc.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []regdoc.Chunk
	for _, c := range s.chunks {
		if c.DocID == docID {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

func (s *Store) UpsertParents(_ context.Context, parents []regdoc.ParentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range parents {
		s.parents[p.ID] = p
	}
	return nil
}

func (s *Store) GetParent(_ context.Context, parentID string) (regdoc.ParentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parents[parentID]
	if !ok {
		return regdoc.ParentChunk{}, regdoc.ErrParentNotFound
	}
	return p, nil
}

func (s *Store) ListParentsByDocument(_ context.Context, docID string) ([]regdoc.ParentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var parents []regdoc.ParentChunk
	for _, p := range s.parents {
		if p.DocID == docID {
			parents = append(parents, p)
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].ID < parents[j].ID })
	return parents, nil
}

func (s *Store) DeleteDocument(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docID)
	for id, c := range s.chunks {
		if c.DocID == docID {
			delete(s.chunks, id)
		}
	}
	for id, p := range s.parents {
		if p.DocID == docID {
			delete(s.parents, id)
		}
	}
	return nil
}

// DeleteParent removes a single parent chunk, leaving any children
// that reference it in place.
func (s *Store) DeleteParent(_ context.Context, parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parents, parentID)
	return nil
}

func (s *Store) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
