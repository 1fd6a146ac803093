package regdoc

import (
	"context"
	"errors"
	"testing"
)

// fakeIndex returns a canned hit list regardless of the query vector.
type fakeIndex struct {
	VectorIndex
	hits []ScoredChunk
	err  error
}

func (f *fakeIndex) SearchChunks(_ context.Context, _ []float32, topK int) ([]ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

type fakeParents struct {
	ParentStore
	parents map[string]ParentChunk
	err     error
}

func (f *fakeParents) GetParent(_ context.Context, parentID string) (ParentChunk, error) {
	if f.err != nil {
		return ParentChunk{}, f.err
	}
	p, ok := f.parents[parentID]
	if !ok {
		return ParentChunk{}, ErrParentNotFound
	}
	return p, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f *fakeEmbedder) Name() string    { return "fake" }

func scored(id, docID string, index int, score float32, parentID string) ScoredChunk {
	c := Chunk{ID: id, DocID: docID, Content: "body " + id, ChunkIndex: index}
	if parentID != "" {
		c.Meta = &ChunkMeta{ParentID: parentID}
	}
	return ScoredChunk{Chunk: c, Score: score}
}

func TestQueryRankingDeterministic(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("c1", "docB", 4, 0.5, ""),
		scored("c2", "docA", 9, 0.9, ""),
		scored("c3", "docA", 2, 0.5, ""),
		scored("c4", "docA", 7, 0.5, ""),
	}}
	r := NewRetriever(index, &fakeParents{}, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Query(context.Background(), "query", 10, false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	wantOrder := []string{"c2", "c3", "c4", "c1"}
	if len(results) != len(wantOrder) {
		t.Fatalf("got %d results, want %d", len(results), len(wantOrder))
	}
	for i, want := range wantOrder {
		if results[i].Chunk.ID != want {
			t.Errorf("result %d = %s, want %s", i, results[i].Chunk.ID, want)
		}
	}
}

func TestQueryDefaultTopK(t *testing.T) {
	var hits []ScoredChunk
	for i := 0; i < 8; i++ {
		hits = append(hits, scored("c"+string(rune('a'+i)), "d1", i, float32(8-i), ""))
	}
	r := NewRetriever(&fakeIndex{hits: hits}, &fakeParents{}, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Query(context.Background(), "query", 0, false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 5 {
		t.Errorf("got %d results with topK 0, want the default of 5", len(results))
	}
}

func TestQueryExpandsParent(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("c1", "d1", 0, 0.9, "p1"),
		scored("c2", "d1", 1, 0.8, ""),
	}}
	parents := &fakeParents{parents: map[string]ParentChunk{
		"p1": {ID: "p1", DocID: "d1", Content: "wider parent context"},
	}}
	r := NewRetriever(index, parents, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Query(context.Background(), "query", 5, true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if results[0].Parent == nil || results[0].Parent.Content != "wider parent context" {
		t.Errorf("result 0 parent = %+v", results[0].Parent)
	}
	if results[1].Parent != nil {
		t.Error("result without parent reference got a parent attached")
	}
}

func TestQueryToleratesOrphanedParent(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("c1", "d1", 0, 0.9, "gone"),
	}}
	r := NewRetriever(index, &fakeParents{}, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Query(context.Background(), "query", 5, true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Parent != nil {
		t.Error("orphaned reference produced a parent")
	}
	if results[0].Chunk.ID != "c1" {
		t.Errorf("chunk id = %s", results[0].Chunk.ID)
	}
}

func TestQueryParentStoreErrorKeepsChild(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("c1", "d1", 0, 0.9, "p1"),
	}}
	parents := &fakeParents{err: errors.New("store offline")}
	r := NewRetriever(index, parents, &fakeEmbedder{vec: []float32{1}})

	results, err := r.Query(context.Background(), "query", 5, true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if results[0].Parent != nil {
		t.Error("failed parent fetch still attached a parent")
	}
}

func TestQueryEmbedError(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeParents{}, &fakeEmbedder{err: errors.New("backend down")})
	if _, err := r.Query(context.Background(), "query", 5, false); err == nil {
		t.Error("Query() succeeded despite embed failure")
	}
}

func TestQuerySearchError(t *testing.T) {
	r := NewRetriever(&fakeIndex{err: errors.New("index offline")}, &fakeParents{}, &fakeEmbedder{vec: []float32{1}})
	if _, err := r.Query(context.Background(), "query", 5, false); err == nil {
		t.Error("Query() succeeded despite search failure")
	}
}

// reversingReranker inverts the incoming order, proving the stage ran.
type reversingReranker struct{ err error }

func (r *reversingReranker) Rerank(_ context.Context, _ string, results []RetrievalResult, topK int) ([]RetrievalResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]RetrievalResult, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		out = append(out, results[i])
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func TestQueryRerankerRuns(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("c1", "docA", 0, 0.9, ""),
		scored("c2", "docA", 1, 0.8, ""),
		scored("c3", "docA", 2, 0.7, ""),
	}}
	r := NewRetriever(index, &fakeParents{}, &fakeEmbedder{vec: []float32{1}},
		WithReranker(&reversingReranker{}))

	results, err := r.Query(context.Background(), "query", 3, false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got := make([]string, len(results))
	for i, res := range results {
		got[i] = res.Chunk.ID
	}
	want := []string{"c3", "c2", "c1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestQueryRerankerErrorPropagates(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{scored("c1", "docA", 0, 0.9, "")}}
	r := NewRetriever(index, &fakeParents{}, &fakeEmbedder{vec: []float32{1}},
		WithReranker(&reversingReranker{err: errors.New("rerank backend down")}))

	if _, err := r.Query(context.Background(), "query", 3, false); err == nil {
		t.Fatal("Query() error = nil, want rerank error")
	}
}

func TestScoreRerankerFiltersAndTrims(t *testing.T) {
	in := []RetrievalResult{
		{Chunk: Chunk{ID: "low"}, Score: 0.2},
		{Chunk: Chunk{ID: "top"}, Score: 0.9},
		{Chunk: Chunk{ID: "mid"}, Score: 0.6},
		{Chunk: Chunk{ID: "high"}, Score: 0.8},
	}
	out, err := NewScoreReranker(0.5).Rerank(context.Background(), "q", in, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].Chunk.ID != "top" || out[1].Chunk.ID != "high" {
		t.Errorf("order = %s, %s, want top, high", out[0].Chunk.ID, out[1].Chunk.ID)
	}
}

func TestQueryScoreRerankerDropsWeakHits(t *testing.T) {
	index := &fakeIndex{hits: []ScoredChunk{
		scored("strong", "docA", 0, 0.9, ""),
		scored("weak", "docA", 1, 0.1, ""),
	}}
	r := NewRetriever(index, &fakeParents{}, &fakeEmbedder{vec: []float32{1}},
		WithReranker(NewScoreReranker(0.5)))

	results, err := r.Query(context.Background(), "query", 5, false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "strong" {
		t.Fatalf("results = %v, want only the strong hit", results)
	}
}
