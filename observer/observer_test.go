package observer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewInstruments(t *testing.T) {
	inst, err := NewInstruments()
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}
	if inst == nil {
		t.Fatal("NewInstruments() returned nil")
	}

	// Recording against the default no-op providers must not panic.
	ctx := context.Background()
	inst.RecordIngest(ctx, "d1", "markdown", "text", 10, 2, 0, 1, 50*time.Millisecond, nil)
	inst.RecordIngest(ctx, "d2", "pdf", "parent_child", 0, 0, 3, 0, time.Second, errors.New("boom"))
	inst.RecordQuery(ctx, 5, 3, true, 10*time.Millisecond, nil)
	inst.RecordQuery(ctx, 0, 0, false, time.Millisecond, errors.New("offline"))
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (staticEmbedder) Dimensions() int { return 2 }
func (staticEmbedder) Name() string    { return "static" }

func TestWrapEmbedderDelegates(t *testing.T) {
	inst, err := NewInstruments()
	if err != nil {
		t.Fatal(err)
	}
	emb := WrapEmbedder(staticEmbedder{}, inst)

	if emb.Name() != "static" {
		t.Errorf("Name() = %q", emb.Name())
	}
	if emb.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d", emb.Dimensions())
	}
	vecs, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
}
