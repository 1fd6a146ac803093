package ingest

import (
	"context"
	"testing"

	"github.com/wei292224644/regdoc"
)

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want regdoc.Format
	}{
		{"md", regdoc.FormatMarkdown},
		{"markdown", regdoc.FormatMarkdown},
		{"MD", regdoc.FormatMarkdown},
		{"json", regdoc.FormatJSON},
		{"pdf", regdoc.FormatPDF},
		{"txt", regdoc.FormatText},
		{"", regdoc.FormatText},
	}
	for _, tt := range tests {
		if got := FormatFromExtension(tt.ext); got != tt.want {
			t.Errorf("FormatFromExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestTextExtractorParagraphs(t *testing.T) {
	content := "First paragraph without boundary\n\nSecond paragraph also plain"

	units, err := TextExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(content))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	for i, u := range units {
		if u.Kind != regdoc.UnitParagraph {
			t.Errorf("unit %d kind = %v, want paragraph", i, u.Kind)
		}
	}
	if units[0].Text != "First paragraph without boundary" {
		t.Errorf("unit 0 text = %q", units[0].Text)
	}
}

func TestTextExtractorSentences(t *testing.T) {
	content := "The sample dissolves in water. The residue must not exceed the limit. Record the result."

	units, err := TextExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(content))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	for i, u := range units {
		if u.Kind != regdoc.UnitSentence {
			t.Errorf("unit %d kind = %v, want sentence", i, u.Kind)
		}
	}
}

func TestTextExtractorNotes(t *testing.T) {
	content := "本品为白色结晶性粉末\n\n注：本标准自发布之日起实施"

	units, err := TextExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(content))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[1].Kind != regdoc.UnitNote {
		t.Errorf("unit 1 kind = %v, want note", units[1].Kind)
	}
}

func TestTextExtractorEmpty(t *testing.T) {
	units, err := TextExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte("  \n\n  \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 0 {
		t.Errorf("got %d units, want 0", len(units))
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"trims line whitespace", "  a  \n  b  ", "a\nb"},
		{"folds fullwidth ascii", "ＡＢＣ１２３", "ABC123"},
		{"empty", "\n  \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.in); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
