package ingest

import (
	"strings"
	"testing"

	"github.com/wei292224644/regdoc"
)

func sentenceUnits(texts ...string) []regdoc.StructuralUnit {
	units := make([]regdoc.StructuralUnit, len(texts))
	for i, txt := range texts {
		units[i] = regdoc.StructuralUnit{Kind: regdoc.UnitSentence, Text: txt}
	}
	return units
}

func TestTextStrategySmallInputSingleChunk(t *testing.T) {
	strat, err := StrategyByName(StrategyText, StrategyConfig{ChunkSize: 1000, ChunkOverlap: 200})
	if err != nil {
		t.Fatal(err)
	}
	units := sentenceUnits("First sentence.", "Second sentence.", "Third sentence.")

	chunks, parents, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if parents != nil {
		t.Errorf("text strategy produced parents")
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	want := "First sentence.\nSecond sentence.\nThird sentence."
	if chunks[0].Content != want {
		t.Errorf("content = %q, want %q", chunks[0].Content, want)
	}
}

func TestTextStrategyNeverSplitsUnit(t *testing.T) {
	strat, err := StrategyByName(StrategyText, StrategyConfig{ChunkSize: 20, ChunkOverlap: 5})
	if err != nil {
		t.Fatal(err)
	}
	big := strings.Repeat("x", 50)
	units := sentenceUnits("short one", big, "short two")

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, big) {
			found = true
		}
	}
	if !found {
		t.Error("oversized unit was split across chunks")
	}
}

func TestTextStrategyOverlapIsExactTail(t *testing.T) {
	const overlap = 12
	strat, err := StrategyByName(StrategyText, StrategyConfig{ChunkSize: 40, ChunkOverlap: overlap})
	if err != nil {
		t.Fatal(err)
	}

	var texts []string
	for i := 0; i < 12; i++ {
		texts = append(texts, "the residue must not exceed the limit value")
	}
	units := sentenceUnits(texts...)

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}

	// Reconstruct each previous chunk's body by stripping the overlap
	// prefix it contributed to its successor.
	prevBody := chunks[0].Content
	for i := 1; i < len(chunks); i++ {
		tail := overlapTail(prevBody, overlap)
		prefix := tail + "\n"
		if !strings.HasPrefix(chunks[i].Content, prefix) {
			t.Fatalf("chunk %d does not start with previous tail: %q", i, chunks[i].Content)
		}
		prevBody = strings.TrimPrefix(chunks[i].Content, prefix)
	}
}

func TestTextStrategyBreaksOnSectionChange(t *testing.T) {
	strat, err := StrategyByName(StrategyText, StrategyConfig{ChunkSize: 1000})
	if err != nil {
		t.Fatal(err)
	}
	units := []regdoc.StructuralUnit{
		{Kind: regdoc.UnitParagraph, Text: "in section a", SectionPath: []string{"A"}},
		{Kind: regdoc.UnitParagraph, Text: "in section b", SectionPath: []string{"B"}},
	}

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].SectionPath[0] != "A" || chunks[1].SectionPath[0] != "B" {
		t.Errorf("section paths = %v, %v", chunks[0].SectionPath, chunks[1].SectionPath)
	}
}

func TestStrategyByNameUnknown(t *testing.T) {
	if _, err := StrategyByName("bogus", StrategyConfig{}); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}

func TestTextStrategyOverlapClampedToShortChunk(t *testing.T) {
	strat, err := StrategyByName(StrategyText, StrategyConfig{ChunkSize: 30, ChunkOverlap: 12})
	if err != nil {
		t.Fatal(err)
	}
	units := sentenceUnits("this sentence fills chunk one", "tiny")

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	// The trailing chunk holds only 4 runes, so the carried tail is
	// clamped to 4 runes rather than the configured 12.
	want := " one\ntiny"
	if chunks[1].Content != want {
		t.Errorf("content = %q, want %q", chunks[1].Content, want)
	}
}
