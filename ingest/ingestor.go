package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wei292224644/regdoc"
)

const (
	// DefaultEmbedTimeout bounds one embedding batch call.
	DefaultEmbedTimeout = 30 * time.Second

	// DefaultEmbedBatchSize is the number of chunk bodies sent to the
	// embedder per call.
	DefaultEmbedBatchSize = 16

	// rollbackTimeout bounds cleanup of a partially written document.
	rollbackTimeout = 30 * time.Second
)

// IngestRequest describes one document to ingest. Content is the raw
// document bytes; DocID is optional and defaults to a content hash so
// ingesting identical bytes twice replaces rather than duplicates.
type IngestRequest struct {
	DocID    string
	Title    string
	Format   regdoc.Format
	Strategy string
	Content  []byte
}

// IngestResult reports what one ingestion pass produced.
type IngestResult struct {
	Document regdoc.Document
	Chunks   int
	Parents  int

	// Dropped lists chunk ids whose embedding failed. Their content is
	// not persisted.
	Dropped []string

	// OCRPages counts pages whose text came from the OCR fallback.
	OCRPages int
}

// Ingestor runs the full pipeline: extraction, classification,
// chunking, embedding, and dual-store persistence.
type Ingestor struct {
	index      regdoc.VectorIndex
	parents    regdoc.ParentStore
	embedder   regdoc.Embedder
	classifier Classifier

	cfg            StrategyConfig
	embedTimeout   time.Duration
	embedBatchSize int

	structure        regdoc.StructureGenerator
	structureTimeout time.Duration
	recognizer       regdoc.TextRecognizer
	ocrMinLength     int
	ocrTimeout       time.Duration

	logger *slog.Logger
}

type Option func(*Ingestor)

// WithStrategyConfig overrides the chunk size knobs.
func WithStrategyConfig(cfg StrategyConfig) Option {
	return func(i *Ingestor) { i.cfg = cfg }
}

// WithEmbedTimeout bounds each embedding batch call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(i *Ingestor) {
		if d > 0 {
			i.embedTimeout = d
		}
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per call.
func WithEmbedBatchSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.embedBatchSize = n
		}
	}
}

// WithStructure enables Markdown structure inference for PDF input.
func WithStructure(g regdoc.StructureGenerator, timeout time.Duration) Option {
	return func(i *Ingestor) {
		i.structure = g
		if timeout > 0 {
			i.structureTimeout = timeout
		}
	}
}

// WithRecognizer enables the OCR fallback for sparse PDF pages.
func WithRecognizer(r regdoc.TextRecognizer) Option {
	return func(i *Ingestor) { i.recognizer = r }
}

// WithOCRConfig sets the extracted-text length below which a page is
// sent to OCR and the per-page recognition timeout. The knobs take
// effect once a recognizer is configured.
func WithOCRConfig(minLength int, timeout time.Duration) Option {
	return func(i *Ingestor) {
		if minLength > 0 {
			i.ocrMinLength = minLength
		}
		if timeout > 0 {
			i.ocrTimeout = timeout
		}
	}
}

// WithLogger sets the ingestor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func NewIngestor(index regdoc.VectorIndex, parents regdoc.ParentStore, embedder regdoc.Embedder, opts ...Option) *Ingestor {
	i := &Ingestor{
		index:            index,
		parents:          parents,
		embedder:         embedder,
		cfg:              StrategyConfig{}.withDefaults(),
		embedTimeout:     DefaultEmbedTimeout,
		embedBatchSize:   DefaultEmbedBatchSize,
		structureTimeout: DefaultStructureTimeout,
		ocrMinLength:     DefaultOCRMinTextLength,
		ocrTimeout:       DefaultOCRTimeout,
		logger:           nopLogger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DocIDForContent derives the default document id from the raw bytes.
// Identical bytes always map to the same id.
func DocIDForContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// Ingest runs the pipeline for one document. Validation happens before
// anything is written: a bad format or an unsupported strategy leaves
// both stores untouched. Re-ingesting an existing document id replaces
// its chunk set.
func (ing *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	docID := req.DocID
	if docID == "" {
		docID = DocIDForContent(req.Content)
	}

	if !req.Format.Valid() {
		return nil, &regdoc.FormatError{DocID: docID, Format: req.Format, Reason: "unknown format"}
	}
	if len(req.Content) == 0 {
		return nil, &regdoc.FormatError{DocID: docID, Format: req.Format, Reason: "empty document"}
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = StrategyText
	}
	strategy, err := StrategyByName(strategyName, ing.cfg)
	if err != nil {
		return nil, err
	}
	if !strategySupportsFormat(strategyName, req.Format) {
		return nil, &regdoc.StrategyUnsupportedError{DocID: docID, Strategy: strategyName, Format: req.Format}
	}

	doc := regdoc.Document{
		ID:        docID,
		Title:     req.Title,
		Format:    req.Format,
		RawSize:   len(req.Content),
		CreatedAt: regdoc.NowUnix(),
	}

	units, err := ing.extractorFor(req.Format).Extract(ctx, doc, req.Content)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, &regdoc.FormatError{DocID: docID, Format: req.Format, Reason: "no extractable content"}
	}

	ocrPages := map[int]bool{}
	for i := range units {
		units[i].ContentType = ing.classifier.Classify(units[i])
		if units[i].OCR {
			ocrPages[units[i].Page] = true
		}
	}

	chunks, parents, err := strategy.Split(doc, units)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].ChunkIndex = i
	}

	chunks, dropped, err := ing.embedChunks(ctx, doc, chunks)
	if err != nil {
		return nil, err
	}

	if err := ing.persist(ctx, doc, chunks, parents); err != nil {
		return nil, err
	}

	ing.logger.Info("document ingested",
		"doc_id", doc.ID,
		"strategy", strategyName,
		"chunks", len(chunks),
		"parents", len(parents),
		"dropped", len(dropped))

	return &IngestResult{
		Document: doc,
		Chunks:   len(chunks),
		Parents:  len(parents),
		Dropped:  dropped,
		OCRPages: len(ocrPages),
	}, nil
}

// Reingest removes any existing content for the request's document id
// and ingests fresh.
func (ing *Ingestor) Reingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	docID := req.DocID
	if docID == "" {
		docID = DocIDForContent(req.Content)
	}
	if err := ing.DeleteDocument(ctx, docID); err != nil {
		return nil, err
	}
	req.DocID = docID
	return ing.Ingest(ctx, req)
}

// DeleteDocument removes the document's chunks from both stores.
// Deleting an unknown id is a no-op.
func (ing *Ingestor) DeleteDocument(ctx context.Context, docID string) error {
	if err := ing.index.DeleteDocument(ctx, docID); err != nil {
		return &regdoc.PersistenceError{DocID: docID, Op: "delete chunks", Err: err}
	}
	if err := ing.parents.DeleteDocument(ctx, docID); err != nil {
		return &regdoc.PersistenceError{DocID: docID, Op: "delete parents", Err: err}
	}
	return nil
}

func (ing *Ingestor) extractorFor(format regdoc.Format) Extractor {
	switch format {
	case regdoc.FormatMarkdown:
		return NewMarkdownExtractor()
	case regdoc.FormatJSON:
		return JSONExtractor{}
	case regdoc.FormatPDF:
		opts := []PDFOption{WithPDFLogger(ing.logger)}
		if ing.structure != nil {
			opts = append(opts,
				WithStructureGenerator(ing.structure),
				WithStructureTimeout(ing.structureTimeout))
		}
		if ing.recognizer != nil {
			opts = append(opts, WithOCRFallback(
				NewOCRFallback(ing.recognizer, ing.ocrMinLength, ing.ocrTimeout, ing.logger)))
		}
		return NewPDFExtractor(opts...)
	default:
		return TextExtractor{}
	}
}

// embedChunks embeds chunk bodies in batches. A failed batch drops
// only its own chunks; their ids are reported back so the caller knows
// what is missing. Embedding every chunk away is an error, since there
// would be nothing to persist.
func (ing *Ingestor) embedChunks(ctx context.Context, doc regdoc.Document, chunks []regdoc.Chunk) ([]regdoc.Chunk, []string, error) {
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("strategy produced no chunks (doc %s)", doc.ID)
	}

	kept := make([]regdoc.Chunk, 0, len(chunks))
	var dropped []string

	for start := 0; start < len(chunks); start += ing.embedBatchSize {
		end := min(start+ing.embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		ectx, cancel := context.WithTimeout(ctx, ing.embedTimeout)
		vectors, err := ing.embedder.Embed(ectx, texts)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				err = &regdoc.CapabilityTimeoutError{
					Capability: "embedding",
					DocID:      doc.ID,
					ChunkID:    batch[0].ID,
					Err:        err,
				}
			}
			ing.logger.Warn("embedding batch failed, dropping chunks",
				"doc_id", doc.ID,
				"batch_size", len(batch),
				"error", err)
			for _, c := range batch {
				dropped = append(dropped, c.ID)
			}
			continue
		}
		if len(vectors) != len(batch) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d texts (doc %s)", len(vectors), len(batch), doc.ID)
		}

		for i := range batch {
			batch[i].Embedding = vectors[i]
			kept = append(kept, batch[i])
		}
	}

	if len(kept) == 0 {
		return nil, nil, fmt.Errorf("embedding failed for every chunk (doc %s)", doc.ID)
	}
	return kept, dropped, nil
}

// persist writes the document atomically from the reader's
// perspective: any previous chunk set is removed, parents land before
// the children that reference them, and a failure midway rolls the
// document back out of both stores.
func (ing *Ingestor) persist(ctx context.Context, doc regdoc.Document, chunks []regdoc.Chunk, parents []regdoc.ParentChunk) error {
	if err := ing.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	if err := ing.index.UpsertDocument(ctx, doc); err != nil {
		return &regdoc.PersistenceError{DocID: doc.ID, Op: "upsert document", Err: err}
	}

	if len(parents) > 0 {
		if err := ing.parents.UpsertParents(ctx, parents); err != nil {
			ing.rollback(ctx, doc.ID)
			return &regdoc.PersistenceError{DocID: doc.ID, Op: "upsert parents", Err: err}
		}
	}

	if err := ing.index.UpsertChunks(ctx, chunks); err != nil {
		committed := ing.committedChunkIDs(ctx, doc.ID)
		ing.rollback(ctx, doc.ID)
		return &regdoc.PersistenceError{DocID: doc.ID, Op: "upsert chunks", Committed: committed, Err: err}
	}
	return nil
}

// committedChunkIDs reads back which chunk ids survived a partial
// write, for error reporting. Best effort. The write may have failed
// because the surrounding context was cancelled, so the read-back gets
// its own deadline.
func (ing *Ingestor) committedChunkIDs(ctx context.Context, docID string) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	chunks, err := ing.index.GetChunksByDocument(ctx, docID)
	if err != nil {
		return nil
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

// rollback removes a partially written document. Errors are logged,
// not returned; the original failure is what the caller needs.
// Cleanup must still run when the ingest context was cancelled, so it
// gets its own deadline detached from the caller's cancellation.
func (ing *Ingestor) rollback(ctx context.Context, docID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := ing.index.DeleteDocument(ctx, docID); err != nil {
		ing.logger.Warn("rollback of chunk index failed", "doc_id", docID, "error", err)
	}
	if err := ing.parents.DeleteDocument(ctx, docID); err != nil {
		ing.logger.Warn("rollback of parent store failed", "doc_id", docID, "error", err)
	}
}
