// Package sqlite implements the chunk index and the parent store on
// pure-Go SQLite with in-process brute-force vector search. Zero CGO
// required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/wei292224644/regdoc"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store holds documents, chunks, and parent chunks in a local SQLite
// file. Embeddings are stored as JSON text and similarity search is
// done in-process using brute-force cosine similarity. One Store
// serves as both the vector index and the parent store; the two roles
// only share a connection, not referential integrity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ regdoc.VectorIndex = (*Store)(nil)
var _ regdoc.ParentStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			format TEXT NOT NULL,
			raw_size INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			doc_title TEXT,
			section_path TEXT,
			content_type TEXT,
			content TEXT NOT NULL,
			meta TEXT,
			chunk_index INTEGER NOT NULL,
			embedding TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS parent_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			section_path TEXT,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			s.logger.Error("sqlite: init failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parent_chunks_document ON parent_chunks(document_id)`,
	} {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// UpsertDocument inserts or replaces a document row.
func (s *Store) UpsertDocument(ctx context.Context, doc regdoc.Document) error {
	start := time.Now()
	s.logger.Debug("sqlite: upsert document", "id", doc.ID, "title", doc.Title, "format", doc.Format)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, format, raw_size, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, string(doc.Format), doc.RawSize, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: upsert document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("upsert document: %w", err)
	}
	s.logger.Debug("sqlite: upsert document ok", "id", doc.ID, "duration", time.Since(start))
	return nil
}

// GetDocument returns one document by id.
func (s *Store) GetDocument(ctx context.Context, docID string) (regdoc.Document, error) {
	var d regdoc.Document
	var format string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, format, raw_size, created_at FROM documents WHERE id = ?`, docID,
	).Scan(&d.ID, &d.Title, &format, &d.RawSize, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return regdoc.Document{}, regdoc.ErrDocumentNotFound
	}
	if err != nil {
		return regdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	d.Format = regdoc.Format(format)
	return d, nil
}

// ListDocuments returns all documents ordered by creation time (newest first).
func (s *Store) ListDocuments(ctx context.Context) ([]regdoc.Document, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, format, raw_size, created_at FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		s.logger.Error("sqlite: list documents failed", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []regdoc.Document
	for rows.Next() {
		var d regdoc.Document
		var format string
		if err := rows.Scan(&d.ID, &d.Title, &format, &d.RawSize, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Format = regdoc.Format(format)
		docs = append(docs, d)
	}
	s.logger.Debug("sqlite: list documents ok", "count", len(docs), "duration", time.Since(start))
	return docs, rows.Err()
}

// UpsertChunks writes the chunks in one transaction.
func (s *Store) UpsertChunks(ctx context.Context, chunks []regdoc.Chunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: upsert chunks", "count", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
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
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, document_id, doc_title, section_path, content_type, content, meta, chunk_index, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocID, chunk.DocTitle, pathJSON, string(chunk.ContentType), chunk.Content, metaJSON, chunk.ChunkIndex, embJSON,
		)
		if err != nil {
			s.logger.Error("sqlite: upsert chunk failed", "chunk_id", chunk.ID, "doc_id", chunk.DocID, "error", err)
			return fmt.Errorf("upsert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: upsert chunks commit failed", "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: upsert chunks ok", "count", len(chunks), "duration", time.Since(start))
	return nil
}

// SearchChunks returns the topK chunks most similar to the query
// embedding, scored by cosine similarity, best first.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]regdoc.ScoredChunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search chunks", "top_k", topK, "embedding_dim", len(embedding))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, doc_title, section_path, content_type, content, meta, chunk_index, embedding
		 FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		s.logger.Error("sqlite: search chunks failed", "error", err)
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []regdoc.ScoredChunk
	for rows.Next() {
		c, embJSON, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil || len(stored) == 0 {
			continue
		}
		results = append(results, regdoc.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Score descending, ties broken by document order so repeated
	// queries return the same ranking.
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
	s.logger.Debug("sqlite: search chunks ok", "count", len(results), "duration", time.Since(start))
	return results, nil
}

// GetChunksByDocument returns the document's chunks in original order.
func (s *Store) GetChunksByDocument(ctx context.Context, docID string) ([]regdoc.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, doc_title, section_path, content_type, content, meta, chunk_index, embedding
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []regdoc.Chunk
	for rows.Next() {
		c, embJSON, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if embJSON != "" {
			c.Embedding, _ = deserializeEmbedding(embJSON)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// UpsertParents writes the parent chunks in one transaction.
func (s *Store) UpsertParents(ctx context.Context, parents []regdoc.ParentChunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: upsert parents", "count", len(parents))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range parents {
		var pathJSON *string
		if len(p.SectionPath) > 0 {
			data, _ := json.Marshal(p.SectionPath)
			v := string(data)
			pathJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO parent_chunks (id, document_id, section_path, content, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.DocID, pathJSON, p.Content, p.CreatedAt,
		)
		if err != nil {
			s.logger.Error("sqlite: upsert parent failed", "parent_id", p.ID, "doc_id", p.DocID, "error", err)
			return fmt.Errorf("upsert parent: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: upsert parents ok", "count", len(parents), "duration", time.Since(start))
	return nil
}

// GetParent returns one parent chunk by id.
func (s *Store) GetParent(ctx context.Context, parentID string) (regdoc.ParentChunk, error) {
	var p regdoc.ParentChunk
	var pathJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, section_path, content, created_at FROM parent_chunks WHERE id = ?`, parentID,
	).Scan(&p.ID, &p.DocID, &pathJSON, &p.Content, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return regdoc.ParentChunk{}, regdoc.ErrParentNotFound
	}
	if err != nil {
		return regdoc.ParentChunk{}, fmt.Errorf("get parent: %w", err)
	}
	if pathJSON.Valid {
		_ = json.Unmarshal([]byte(pathJSON.String), &p.SectionPath)
	}
	return p, nil
}

// ListParentsByDocument returns the document's parents in creation order.
func (s *Store) ListParentsByDocument(ctx context.Context, docID string) ([]regdoc.ParentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, section_path, content, created_at FROM parent_chunks WHERE document_id = ? ORDER BY created_at, id`, docID)
	if err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	defer rows.Close()

	var parents []regdoc.ParentChunk
	for rows.Next() {
		var p regdoc.ParentChunk
		var pathJSON sql.NullString
		if err := rows.Scan(&p.ID, &p.DocID, &pathJSON, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		if pathJSON.Valid {
			_ = json.Unmarshal([]byte(pathJSON.String), &p.SectionPath)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// DeleteDocument removes the document, its chunks, and its parent
// chunks. Deleting an unknown id is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete document", "id", docID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parent_chunks WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("delete parents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete document commit failed", "id", docID, "error", err)
		return err
	}
	s.logger.Debug("sqlite: delete document ok", "id", docID, "duration", time.Since(start))
	return nil
}

// DB exposes the underlying connection for callers needing raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type chunkScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row chunkScanner) (regdoc.Chunk, string, error) {
	var c regdoc.Chunk
	var pathJSON, contentType, metaJSON, embJSON sql.NullString
	var docTitle sql.NullString
	if err := row.Scan(&c.ID, &c.DocID, &docTitle, &pathJSON, &contentType, &c.Content, &metaJSON, &c.ChunkIndex, &embJSON); err != nil {
		return regdoc.Chunk{}, "", fmt.Errorf("scan chunk: %w", err)
	}
	c.DocTitle = docTitle.String
	c.ContentType = regdoc.ContentType(contentType.String)
	if pathJSON.Valid {
		_ = json.Unmarshal([]byte(pathJSON.String), &c.SectionPath)
	}
	if metaJSON.Valid {
		c.Meta = &regdoc.ChunkMeta{}
		_ = json.Unmarshal([]byte(metaJSON.String), c.Meta)
	}
	return c, embJSON.String, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
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

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
