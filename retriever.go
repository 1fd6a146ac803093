package regdoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// RetrievalResult is one ranked hit from a query. Chunk is the precise
// match and is always present; Parent is supplementary context,
// attached when the hit carries a parent reference that resolves.
type RetrievalResult struct {
	Chunk  Chunk        `json:"chunk"`
	Score  float32      `json:"score"`
	Parent *ParentChunk `json:"parent,omitempty"`
}

// Reranker re-scores ranked hits for improved precision. The returned
// slice must be sorted by Score descending and trimmed to topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []RetrievalResult, topK int) ([]RetrievalResult, error)
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrieverLogger sets a structured logger. The default discards
// all output.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithReranker sets an optional re-ranking stage that runs after the
// vector search and before parent expansion. The search over-fetches
// candidates so the reranker has more than topK hits to choose from.
func WithReranker(rr Reranker) RetrieverOption {
	return func(r *Retriever) { r.reranker = rr }
}

// Retriever embeds a query, performs nearest-neighbor search against
// the vector index, and optionally expands each hit to its parent
// chunk. Queries are read-only and safe to run concurrently with each
// other and with ingestion.
type Retriever struct {
	index    VectorIndex
	parents  ParentStore
	embedder Embedder
	reranker Reranker
	logger   *slog.Logger
}

// rerankOverfetch is the candidate multiplier applied to topK when a
// reranker is configured.
const rerankOverfetch = 3

// NewRetriever creates a Retriever over the given dual stores.
func NewRetriever(index VectorIndex, parents ParentStore, embedder Embedder, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:    index,
		parents:  parents,
		embedder: embedder,
		logger:   slog.New(discardHandler{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Query returns up to topK chunks ranked by descending similarity.
// Ties are broken by original document order, so repeated queries over
// a fixed index return the same ordering. When expandParent is set,
// hits carrying a parent reference get the parent content attached; a
// missing parent is tolerated and the child is returned alone.
func (r *Retriever) Query(ctx context.Context, text string, topK int, expandParent bool) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}

	embs, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}

	fetchK := topK
	if r.reranker != nil {
		fetchK = topK * rerankOverfetch
	}
	hits, err := r.index.SearchChunks(ctx, embs[0], fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Stable, deterministic ranking: score descending, ties broken by
	// document order.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocID != hits[j].DocID {
			return hits[i].DocID < hits[j].DocID
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})
	if len(hits) > fetchK {
		hits = hits[:fetchK]
	}

	results := make([]RetrievalResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, RetrievalResult{Chunk: h.Chunk, Score: h.Score})
	}

	if r.reranker != nil {
		results, err = r.reranker.Rerank(ctx, text, results, topK)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
	}
	if len(results) > topK {
		results = results[:topK]
	}

	if expandParent {
		for i := range results {
			pid := results[i].Chunk.ParentID()
			if pid == "" {
				continue
			}
			parent, err := r.parents.GetParent(ctx, pid)
			switch {
			case err == nil:
				results[i].Parent = &parent
			case errors.Is(err, ErrParentNotFound):
				// Orphaned reference; the child stands alone.
				r.logger.Debug("regdoc: parent missing on expand", "parent_id", pid, "chunk_id", results[i].Chunk.ID, "doc_id", results[i].Chunk.DocID)
			default:
				r.logger.Warn("regdoc: parent fetch failed", "parent_id", pid, "chunk_id", results[i].Chunk.ID, "error", err)
			}
		}
	}
	return results, nil
}

// ScoreReranker drops hits below a minimum score and re-sorts by score
// descending. It makes no external calls, so it serves as the baseline
// re-ranking stage when no model-backed reranker is available.
type ScoreReranker struct {
	minScore float32
}

var _ Reranker = (*ScoreReranker)(nil)

// NewScoreReranker creates a ScoreReranker that drops results scoring
// below minScore.
func NewScoreReranker(minScore float32) *ScoreReranker {
	return &ScoreReranker{minScore: minScore}
}

func (r *ScoreReranker) Rerank(_ context.Context, _ string, results []RetrievalResult, topK int) ([]RetrievalResult, error) {
	filtered := make([]RetrievalResult, 0, len(results))
	for _, res := range results {
		if res.Score >= r.minScore {
			filtered = append(filtered, res)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

// discardHandler is a slog.Handler that drops all records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
