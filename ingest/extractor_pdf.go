package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/wei292224644/regdoc"
)

// DefaultStructureTimeout bounds a structure inference call over the
// whole document text.
const DefaultStructureTimeout = 120 * time.Second

// pdfPage is one extracted page and its provenance.
type pdfPage struct {
	Number int
	Text   string
	OCR    bool
}

// PDFExtractor extracts text page by page, runs the OCR fallback on
// pages whose extracted text is too sparse, and optionally hands the
// combined text to a structure generator that rewrites it as Markdown.
// When structure inference is unavailable or fails the extractor falls
// back to deterministic per-page text parsing.
type PDFExtractor struct {
	structure        regdoc.StructureGenerator
	structureTimeout time.Duration
	ocr              *OCRFallback
	markdown         *MarkdownExtractor
	logger           *slog.Logger
}

var _ Extractor = (*PDFExtractor)(nil)

type PDFOption func(*PDFExtractor)

// WithStructureGenerator enables Markdown structure inference over the
// extracted text.
func WithStructureGenerator(g regdoc.StructureGenerator) PDFOption {
	return func(e *PDFExtractor) { e.structure = g }
}

// WithStructureTimeout bounds the structure inference call.
func WithStructureTimeout(d time.Duration) PDFOption {
	return func(e *PDFExtractor) {
		if d > 0 {
			e.structureTimeout = d
		}
	}
}

// WithOCRFallback enables per-page text recognition for scanned pages.
func WithOCRFallback(o *OCRFallback) PDFOption {
	return func(e *PDFExtractor) { e.ocr = o }
}

// WithPDFLogger sets the extractor's logger.
func WithPDFLogger(logger *slog.Logger) PDFOption {
	return func(e *PDFExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewPDFExtractor(opts ...PDFOption) *PDFExtractor {
	e := &PDFExtractor{
		structureTimeout: DefaultStructureTimeout,
		markdown:         NewMarkdownExtractor(),
		logger:           nopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PDFExtractor) Extract(ctx context.Context, doc regdoc.Document, content []byte) ([]regdoc.StructuralUnit, error) {
	pages, err := extractPages(content)
	if err != nil {
		return nil, &regdoc.FormatError{DocID: doc.ID, Format: regdoc.FormatPDF, Reason: err.Error()}
	}
	if len(pages) == 0 {
		return nil, &regdoc.FormatError{DocID: doc.ID, Format: regdoc.FormatPDF, Reason: "no pages"}
	}

	pages = e.recognizeSparsePages(ctx, doc, content, pages)

	if e.structure != nil {
		units, err := e.structuredUnits(ctx, doc, pages)
		if err == nil {
			return units, nil
		}
		e.logger.Warn("structure inference failed, falling back to text parsing",
			"doc_id", doc.ID,
			"error", err)
	}

	return unitsFromPages(pages), nil
}

// recognizeSparsePages runs the OCR fallback concurrently over every
// page whose extracted text is below the scanned-page threshold. Page
// order is preserved; pages that cannot be recognized keep their
// extracted text.
func (e *PDFExtractor) recognizeSparsePages(ctx context.Context, doc regdoc.Document, content []byte, pages []pdfPage) []pdfPage {
	if e.ocr == nil {
		return pages
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range pages {
		if !e.ocr.Needed(pages[i].Text) {
			continue
		}
		g.Go(func() error {
			text, ok := e.ocr.Recognize(gctx, regdoc.PageImage{
				DocID: doc.ID,
				Page:  pages[i].Number,
				Data:  content,
			})
			if ok {
				pages[i].Text = text
				pages[i].OCR = true
			}
			return nil
		})
	}
	_ = g.Wait()
	return pages
}

// structuredUnits asks the structure generator for a Markdown
// rendition of the whole document and parses that. Page attribution is
// lost in the rewrite, so units carry page 0 and the OCR flag is set
// for the whole document when any page was recognized.
func (e *PDFExtractor) structuredUnits(ctx context.Context, doc regdoc.Document, pages []pdfPage) ([]regdoc.StructuralUnit, error) {
	var sb strings.Builder
	anyOCR := false
	for _, p := range pages {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Text)
		anyOCR = anyOCR || p.OCR
	}

	sctx, cancel := context.WithTimeout(ctx, e.structureTimeout)
	defer cancel()

	md, err := e.structure.GenerateStructure(sctx, sb.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &regdoc.CapabilityTimeoutError{
				Capability: "structure",
				DocID:      doc.ID,
				Err:        err,
			}
		}
		return nil, err
	}
	if strings.TrimSpace(md) == "" {
		return nil, fmt.Errorf("structure inference returned empty output")
	}
	return markdownUnits(e.markdown.md, []byte(md), 0, anyOCR)
}

// unitsFromPages parses each page's text deterministically, keeping
// page numbers and OCR provenance on the resulting units.
func unitsFromPages(pages []pdfPage) []regdoc.StructuralUnit {
	var units []regdoc.StructuralUnit
	for _, p := range pages {
		units = append(units, textUnits(p.Text, p.Number, p.OCR)...)
	}
	return units
}

// extractPages pulls per-page plain text out of the raw PDF bytes.
func extractPages(content []byte) ([]pdfPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []pdfPage
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			text = ""
		}
		pages = append(pages, pdfPage{Number: i, Text: text})
	}
	return pages, nil
}
