// Package postgres implements the chunk index and the parent store
// using PostgreSQL with pgvector for native vector similarity search.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wei292224644/regdoc"
)

// Store holds documents, chunks, and parent chunks in PostgreSQL.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default:
// pgvector's 40. Applied via SET during Init().
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

var _ regdoc.VectorIndex = (*Store)(nil)
var _ regdoc.ParentStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, all required tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			format TEXT NOT NULL,
			raw_size INTEGER NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			doc_title TEXT NOT NULL DEFAULT '',
			section_path JSONB,
			content_type TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			meta JSONB,
			chunk_index INTEGER NOT NULL,
			embedding %s
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),

		`CREATE TABLE IF NOT EXISTS parent_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			section_path JSONB,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS parent_chunks_document_idx ON parent_chunks(document_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}

	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`SET hnsw.ef_search = %d`, s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}
	return nil
}

// UpsertDocument inserts or replaces a document row.
func (s *Store) UpsertDocument(ctx context.Context, doc regdoc.Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, title, format, raw_size, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   format = EXCLUDED.format,
		   raw_size = EXCLUDED.raw_size,
		   created_at = EXCLUDED.created_at`,
		doc.ID, doc.Title, string(doc.Format), doc.RawSize, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert document: %w", err)
	}
	return nil
}

// GetDocument returns one document by id.
func (s *Store) GetDocument(ctx context.Context, docID string) (regdoc.Document, error) {
	var d regdoc.Document
	var format string
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, format, raw_size, created_at FROM documents WHERE id = $1`, docID,
	).Scan(&d.ID, &d.Title, &format, &d.RawSize, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return regdoc.Document{}, regdoc.ErrDocumentNotFound
	}
	if err != nil {
		return regdoc.Document{}, fmt.Errorf("postgres: get document: %w", err)
	}
	d.Format = regdoc.Format(format)
	return d, nil
}

// ListDocuments returns all documents ordered by creation time (newest first).
func (s *Store) ListDocuments(ctx context.Context) ([]regdoc.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, format, raw_size, created_at FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []regdoc.Document
	for rows.Next() {
		var d regdoc.Document
		var format string
		if err := rows.Scan(&d.ID, &d.Title, &format, &d.RawSize, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		d.Format = regdoc.Format(format)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpsertChunks writes the chunks in a single transaction.
func (s *Store) UpsertChunks(ctx context.Context, chunks []regdoc.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, chunk := range chunks {
		var embStr *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embStr = &v
		}
		var metaJSON *string
		if chunk.Meta != nil {
			data, _ := json.Marshal(chunk.Meta)
			v := string(data)
			metaJSON = &v
		}
		var pathJSON *string
		if len(chunk.SectionPath) > 0 {
			data, _ := json.Marshal(chunk.SectionPath)
			v := string(data)
			pathJSON = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, doc_title, section_path, content_type, content, meta, chunk_index, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
			 ON CONFLICT (id) DO UPDATE SET
			   document_id = EXCLUDED.document_id,
			   doc_title = EXCLUDED.doc_title,
			   section_path = EXCLUDED.section_path,
			   content_type = EXCLUDED.content_type,
			   content = EXCLUDED.content,
			   meta = EXCLUDED.meta,
			   chunk_index = EXCLUDED.chunk_index,
			   embedding = EXCLUDED.embedding`,
			chunk.ID, chunk.DocID, chunk.DocTitle, pathJSON, string(chunk.ContentType), chunk.Content, metaJSON, chunk.ChunkIndex, embStr)
		if err != nil {
			return fmt.Errorf("postgres: upsert chunk: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// SearchChunks performs vector similarity search over chunks using
// pgvector's cosine distance operator with the HNSW index.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]regdoc.ScoredChunk, error) {
	embStr := serializeEmbedding(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.document_id, c.doc_title, c.section_path, c.content_type, c.content, c.meta, c.chunk_index,
		        1 - (c.embedding <=> $1::vector) AS score
		 FROM chunks c
		 WHERE c.embedding IS NOT NULL
		 ORDER BY c.embedding <=> $1::vector
		 LIMIT $2`,
		embStr, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []regdoc.ScoredChunk
	for rows.Next() {
		var sc regdoc.ScoredChunk
		var pathJSON, metaJSON []byte
		var contentType string
		if err := rows.Scan(&sc.ID, &sc.DocID, &sc.DocTitle, &pathJSON, &contentType, &sc.Content, &metaJSON, &sc.ChunkIndex, &sc.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		sc.ContentType = regdoc.ContentType(contentType)
		if len(pathJSON) > 0 {
			_ = json.Unmarshal(pathJSON, &sc.SectionPath)
		}
		if len(metaJSON) > 0 {
			sc.Meta = &regdoc.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, sc.Meta)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// GetChunksByDocument returns the document's chunks in original order.
func (s *Store) GetChunksByDocument(ctx context.Context, docID string) ([]regdoc.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, doc_title, section_path, content_type, content, meta, chunk_index
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []regdoc.Chunk
	for rows.Next() {
		var c regdoc.Chunk
		var pathJSON, metaJSON []byte
		var contentType string
		if err := rows.Scan(&c.ID, &c.DocID, &c.DocTitle, &pathJSON, &contentType, &c.Content, &metaJSON, &c.ChunkIndex); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		c.ContentType = regdoc.ContentType(contentType)
		if len(pathJSON) > 0 {
			_ = json.Unmarshal(pathJSON, &c.SectionPath)
		}
		if len(metaJSON) > 0 {
			c.Meta = &regdoc.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, c.Meta)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// UpsertParents writes the parent chunks in a single transaction.
func (s *Store) UpsertParents(ctx context.Context, parents []regdoc.ParentChunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, p := range parents {
		var pathJSON *string
		if len(p.SectionPath) > 0 {
			data, _ := json.Marshal(p.SectionPath)
			v := string(data)
			pathJSON = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO parent_chunks (id, document_id, section_path, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			   document_id = EXCLUDED.document_id,
			   section_path = EXCLUDED.section_path,
			   content = EXCLUDED.content,
			   created_at = EXCLUDED.created_at`,
			p.ID, p.DocID, pathJSON, p.Content, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("postgres: upsert parent: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// GetParent returns one parent chunk by id.
func (s *Store) GetParent(ctx context.Context, parentID string) (regdoc.ParentChunk, error) {
	var p regdoc.ParentChunk
	var pathJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, section_path, content, created_at FROM parent_chunks WHERE id = $1`, parentID,
	).Scan(&p.ID, &p.DocID, &pathJSON, &p.Content, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return regdoc.ParentChunk{}, regdoc.ErrParentNotFound
	}
	if err != nil {
		return regdoc.ParentChunk{}, fmt.Errorf("postgres: get parent: %w", err)
	}
	if len(pathJSON) > 0 {
		_ = json.Unmarshal(pathJSON, &p.SectionPath)
	}
	return p, nil
}

// ListParentsByDocument returns the document's parents in creation order.
func (s *Store) ListParentsByDocument(ctx context.Context, docID string) ([]regdoc.ParentChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, section_path, content, created_at FROM parent_chunks
		 WHERE document_id = $1 ORDER BY created_at, id`, docID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list parents: %w", err)
	}
	defer rows.Close()

	var parents []regdoc.ParentChunk
	for rows.Next() {
		var p regdoc.ParentChunk
		var pathJSON []byte
		if err := rows.Scan(&p.ID, &p.DocID, &pathJSON, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan parent: %w", err)
		}
		if len(pathJSON) > 0 {
			_ = json.Unmarshal(pathJSON, &p.SectionPath)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// DeleteDocument removes the document, its chunks, and its parent
// chunks in one transaction. Deleting an unknown id is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("postgres: delete chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM parent_chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("postgres: delete parents: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID); err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// serializeEmbedding renders a pgvector literal like [0.1,0.2,...].
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
