// Package chromem implements the chunk index on chromem-go, an
// embedded vector database with optional on-disk persistence. It
// covers only the vector side; pair it with another backend for
// parent chunks.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/wei292224644/regdoc"
)

const collectionName = "chunks"

// StoreOption configures a chromem Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store keeps chunk embeddings in a chromem-go collection. Document
// records and the per-document chunk id lists live in a JSON sidecar
// next to the collection, since chromem itself only stores vectors.
type Store struct {
	db     *chromem.DB
	col    *chromem.Collection
	logger *slog.Logger

	// statePath is empty for a purely in-memory store.
	statePath string

	mu    sync.RWMutex
	state storeState
}

type storeState struct {
	Docs      map[string]regdoc.Document `json:"docs"`
	DocChunks map[string][]string        `json:"doc_chunks"`
}

var _ regdoc.VectorIndex = (*Store)(nil)

// New creates a Store. An empty path keeps everything in memory;
// otherwise the collection persists under path and document records
// in a sidecar file next to it.
func New(path string, opts ...StoreOption) (*Store, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("chromem: open db: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: open collection: %w", err)
	}

	s := &Store{
		db:     db,
		col:    col,
		logger: slog.New(discardHandler{}),
		state: storeState{
			Docs:      map[string]regdoc.Document{},
			DocChunks: map[string][]string{},
		},
	}
	if path != "" {
		s.statePath = path + ".docs.json"
		if err := s.loadState(); err != nil {
			return nil, err
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Init is a no-op; New opens everything.
func (s *Store) Init(context.Context) error { return nil }

func (s *Store) loadState() error {
	data, err := os.ReadFile(s.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("chromem: read state: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return fmt.Errorf("chromem: parse state: %w", err)
	}
	if s.state.Docs == nil {
		s.state.Docs = map[string]regdoc.Document{}
	}
	if s.state.DocChunks == nil {
		s.state.DocChunks = map[string][]string{}
	}
	return nil
}

// saveState writes the sidecar. Callers hold the write lock.
func (s *Store) saveState() error {
	if s.statePath == "" {
		return nil
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("chromem: marshal state: %w", err)
	}
	if err := os.WriteFile(s.statePath, data, 0o644); err != nil {
		return fmt.Errorf("chromem: write state: %w", err)
	}
	return nil
}

func (s *Store) UpsertDocument(_ context.Context, doc regdoc.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Docs[doc.ID] = doc
	return s.saveState()
}

func (s *Store) GetDocument(_ context.Context, docID string) (regdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.state.Docs[docID]
	if !ok {
		return regdoc.Document{}, regdoc.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Store) ListDocuments(_ context.Context) ([]regdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]regdoc.Document, 0, len(s.state.Docs))
	for _, d := range s.state.Docs {
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Store) UpsertChunks(ctx context.Context, chunks []regdoc.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Metadata:  chunkMetadata(c),
			Embedding: c.Embedding,
			Content:   c.Content,
		})
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem: add documents: %w", err)
	}
	s.logger.Debug("chromem: chunks added", "count", len(docs))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.state.DocChunks[c.DocID] = append(s.state.DocChunks[c.DocID], c.ID)
	}
	return s.saveState()
}

func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]regdoc.ScoredChunk, error) {
	n := topK
	if count := s.col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	hits, err := s.col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}

	results := make([]regdoc.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c := chunkFromMetadata(h.ID, h.Content, h.Metadata)
		results = append(results, regdoc.ScoredChunk{Chunk: c, Score: h.Similarity})
	}
	return results, nil
}

func (s *Store) GetChunksByDocument(ctx context.Context, docID string) ([]regdoc.Chunk, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.state.DocChunks[docID]...)
	s.mu.RUnlock()

	chunks := make([]regdoc.Chunk, 0, len(ids))
	for _, id := range ids {
		d, err := s.col.GetByID(ctx, id)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunkFromMetadata(d.ID, d.Content, d.Metadata))
	}
	return chunks, nil
}

func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	known := len(s.state.DocChunks[docID]) > 0
	s.mu.Unlock()

	if known {
		if err := s.col.Delete(ctx, map[string]string{"doc_id": docID}, nil); err != nil {
			return fmt.Errorf("chromem: delete: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Docs, docID)
	delete(s.state.DocChunks, docID)
	s.logger.Debug("chromem: document deleted", "doc_id", docID)
	return s.saveState()
}

func (s *Store) Close() error { return nil }

// chunkMetadata flattens the chunk's fields into chromem's string map.
func chunkMetadata(c regdoc.Chunk) map[string]string {
	m := map[string]string{
		"doc_id":      c.DocID,
		"chunk_index": strconv.Itoa(c.ChunkIndex),
	}
	if c.DocTitle != "" {
		m["doc_title"] = c.DocTitle
	}
	if c.ContentType != "" {
		m["content_type"] = string(c.ContentType)
	}
	if len(c.SectionPath) > 0 {
		data, _ := json.Marshal(c.SectionPath)
		m["section_path"] = string(data)
	}
	if c.Meta != nil {
		data, _ := json.Marshal(c.Meta)
		m["meta"] = string(data)
	}
	return m
}

func chunkFromMetadata(id, content string, m map[string]string) regdoc.Chunk {
	c := regdoc.Chunk{
		ID:          id,
		DocID:       m["doc_id"],
		DocTitle:    m["doc_title"],
		ContentType: regdoc.ContentType(m["content_type"]),
		Content:     content,
	}
	if v := m["chunk_index"]; v != "" {
		c.ChunkIndex, _ = strconv.Atoi(v)
	}
	if v := m["section_path"]; v != "" {
		_ = json.Unmarshal([]byte(v), &c.SectionPath)
	}
	if v := m["meta"]; v != "" {
		c.Meta = &regdoc.ChunkMeta{}
		_ = json.Unmarshal([]byte(v), c.Meta)
	}
	return c
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
