package regdoc

import "context"

// VectorIndex is the store supporting nearest-neighbor similarity
// search over chunk embeddings. It holds only retrieval-sized chunks:
// child chunks when the parent_child strategy is active, otherwise all
// chunks. Parent chunks are never placed here.
type VectorIndex interface {
	Init(ctx context.Context) error

	UpsertDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, docID string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)

	UpsertChunks(ctx context.Context, chunks []Chunk) error
	SearchChunks(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error)
	GetChunksByDocument(ctx context.Context, docID string) ([]Chunk, error)

	// DeleteDocument removes the document and all of its chunks.
	// Idempotent: deleting a missing document is a no-op.
	DeleteDocument(ctx context.Context, docID string) error

	Close() error
}

// ParentStore is the keyed store holding parent-chunk bodies,
// referenced by id from child chunk metadata. It is independent of the
// vector index: there is no foreign-key enforcement between the two,
// and readers must tolerate a missing parent (ErrParentNotFound).
type ParentStore interface {
	Init(ctx context.Context) error

	UpsertParents(ctx context.Context, parents []ParentChunk) error
	GetParent(ctx context.Context, parentID string) (ParentChunk, error)
	ListParentsByDocument(ctx context.Context, docID string) ([]ParentChunk, error)

	// DeleteDocument removes all parents owned by the document.
	// Idempotent.
	DeleteDocument(ctx context.Context, docID string) error

	Close() error
}
