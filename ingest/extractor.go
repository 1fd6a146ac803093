// Package ingest implements the document ingestion pipeline: structure
// extraction, OCR fallback, content-type classification, the chunking
// strategy engine, and dual-store persistence.
package ingest

import (
	"context"
	"strings"

	"golang.org/x/text/width"

	"github.com/wei292224644/regdoc"
)

// Extractor converts raw document bytes into an ordered sequence of
// structural units.
type Extractor interface {
	Extract(ctx context.Context, doc regdoc.Document, content []byte) ([]regdoc.StructuralUnit, error)
}

// FormatFromExtension maps a file extension (without the dot) to a
// source format. Unknown extensions fall back to plain text.
func FormatFromExtension(ext string) regdoc.Format {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return regdoc.FormatMarkdown
	case "json":
		return regdoc.FormatJSON
	case "pdf":
		return regdoc.FormatPDF
	default:
		return regdoc.FormatText
	}
}

// noteMarkers are line prefixes that mark a note unit.
var noteMarkers = []string{"注：", "注:", "Note:", "NOTE:"}

func isNoteLine(s string) bool {
	for _, m := range noteMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

// TextExtractor parses plain text deterministically: blank-line
// delimited blocks become paragraphs, blocks with several sentences are
// split into sentence units, and recognized note markers become note
// units.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

func (TextExtractor) Extract(_ context.Context, _ regdoc.Document, content []byte) ([]regdoc.StructuralUnit, error) {
	return textUnits(string(content), 0, false), nil
}

// textUnits parses normalized plain text into structural units. page
// and ocr annotate the units' provenance.
func textUnits(text string, page int, ocr bool) []regdoc.StructuralUnit {
	text = normalizeText(text)
	if text == "" {
		return nil
	}

	var units []regdoc.StructuralUnit
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if isNoteLine(block) {
			units = append(units, regdoc.StructuralUnit{
				Kind: regdoc.UnitNote,
				Text: block,
				Page: page,
				OCR:  ocr,
			})
			continue
		}

		sentences := splitSentences(block)
		if len(sentences) <= 1 {
			units = append(units, regdoc.StructuralUnit{
				Kind: regdoc.UnitParagraph,
				Text: block,
				Page: page,
				OCR:  ocr,
			})
			continue
		}
		for _, s := range sentences {
			units = append(units, regdoc.StructuralUnit{
				Kind: regdoc.UnitSentence,
				Text: s,
				Page: page,
				OCR:  ocr,
			})
		}
	}
	return units
}

// normalizeText folds full-width ASCII variants to their narrow forms
// and collapses runs of blank lines, preserving paragraph boundaries.
func normalizeText(text string) string {
	text = width.Fold.String(text)

	var result strings.Builder
	emptyCount := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if result.Len() > 0 {
				emptyCount++
			}
			continue
		}
		if emptyCount > 0 {
			result.WriteString("\n\n")
		} else if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(trimmed)
		emptyCount = 0
	}
	return strings.TrimSpace(result.String())
}
