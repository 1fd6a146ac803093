package regdoc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitNoLimitsPassesThrough(t *testing.T) {
	inner := &countingEmbedder{}
	emb := WithEmbedderRateLimit(inner)

	for i := 0; i < 10; i++ {
		if _, err := emb.Embed(context.Background(), []string{"t"}); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if inner.calls != 10 {
		t.Errorf("inner called %d times, want 10", inner.calls)
	}
}

func TestRateLimitBlocksAtRPM(t *testing.T) {
	inner := &countingEmbedder{}
	emb := WithEmbedderRateLimit(inner, RPM(2))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := emb.Embed(ctx, []string{"t"}); err != nil {
			t.Fatalf("Embed() %d error = %v", i, err)
		}
	}

	// The third call must block until the window slides; cancel instead
	// of waiting a minute.
	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := emb.Embed(cctx, []string{"t"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestRateLimitItemBudgetSoftLimit(t *testing.T) {
	inner := &countingEmbedder{}
	emb := WithEmbedderRateLimit(inner, IPM(3))

	ctx := context.Background()
	// First request exceeds the budget but completes.
	if _, err := emb.Embed(ctx, []string{"a", "b", "c", "d"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := emb.Embed(cctx, []string{"e"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want the next request to block", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestPruneWindows(t *testing.T) {
	now := time.Now()
	cutoff := now.Add(-time.Minute)

	times := []time.Time{now.Add(-2 * time.Minute), now.Add(-90 * time.Second), now.Add(-time.Second)}
	if got := pruneTime(times, cutoff); len(got) != 1 {
		t.Errorf("pruneTime kept %d entries, want 1", len(got))
	}

	entries := []ipmEntry{
		{at: now.Add(-2 * time.Minute), items: 5},
		{at: now, items: 3},
	}
	if got := pruneItems(entries, cutoff); len(got) != 1 || got[0].items != 3 {
		t.Errorf("pruneItems = %+v", got)
	}
}

func TestRateLimitDelegates(t *testing.T) {
	inner := &countingEmbedder{}
	emb := WithEmbedderRateLimit(inner, RPM(100))
	if emb.Name() != "counting" {
		t.Errorf("Name() = %q", emb.Name())
	}
	if emb.Dimensions() != 1 {
		t.Errorf("Dimensions() = %d", emb.Dimensions())
	}
}
