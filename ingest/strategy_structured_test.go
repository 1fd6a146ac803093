package ingest

import (
	"testing"

	"github.com/wei292224644/regdoc"
)

func TestStructuredStrategySectionBoundaries(t *testing.T) {
	strat, err := StrategyByName(StrategyStructured, StrategyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	units := []regdoc.StructuralUnit{
		{Kind: regdoc.UnitParagraph, Text: "short a", SectionPath: []string{"A"}},
		{Kind: regdoc.UnitParagraph, Text: "short b", SectionPath: []string{"B"}},
	}

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	// Sections never merge, however small.
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
}

func TestStructuredStrategyLiftsTables(t *testing.T) {
	strat, err := StrategyByName(StrategyStructured, StrategyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	path := []string{"技术要求"}
	units := []regdoc.StructuralUnit{
		{Kind: regdoc.UnitParagraph, Text: "理化指标见下表。", SectionPath: path},
		{Kind: regdoc.UnitTableRow, Text: "项目: 铅，指标: ≤ 2", SectionPath: path, TableHeader: []string{"项目", "指标"}},
		{Kind: regdoc.UnitTableRow, Text: "项目: 砷，指标: ≤ 1", SectionPath: path, TableHeader: []string{"项目", "指标"}},
		{Kind: regdoc.UnitParagraph, Text: "其余按附录执行。", SectionPath: path},
	}

	chunks, _, err := strat.Split(regdoc.Document{ID: "d1"}, units)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want prose, table, prose", len(chunks))
	}
	if chunks[0].Content != "理化指标见下表。" {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	if chunks[1].Content != "项目: 铅，指标: ≤ 2\n项目: 砷，指标: ≤ 1" {
		t.Errorf("chunk 1 = %q", chunks[1].Content)
	}
	if chunks[2].Content != "其余按附录执行。" {
		t.Errorf("chunk 2 = %q", chunks[2].Content)
	}
}

func TestStructuredStrategyFormatSupport(t *testing.T) {
	tests := []struct {
		format regdoc.Format
		want   bool
	}{
		{regdoc.FormatMarkdown, true},
		{regdoc.FormatPDF, true},
		{regdoc.FormatText, false},
		{regdoc.FormatJSON, false},
	}
	for _, tt := range tests {
		if got := strategySupportsFormat(StrategyStructured, tt.format); got != tt.want {
			t.Errorf("strategySupportsFormat(structured, %v) = %v, want %v", tt.format, got, tt.want)
		}
	}
	for _, name := range []string{StrategyText, StrategyTable, StrategyHeading, StrategyParentChild} {
		if !strategySupportsFormat(name, regdoc.FormatText) {
			t.Errorf("strategySupportsFormat(%s, text) = false, want true", name)
		}
	}
}
