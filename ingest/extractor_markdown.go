package ingest

import (
	"context"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/wei292224644/regdoc"
)

// annotationRe matches an inline content-type annotation, e.g.
// 【content_type: specification_text】.
var annotationRe = regexp.MustCompile(`【content_type:\s*([a-z_]+)】`)

// MarkdownExtractor parses Markdown into structural units using the
// document AST: headings build the section path, paragraphs and notes
// become prose units, GFM tables become one table_row unit per data
// row, and fenced code blocks whose info string names a taxonomy tag
// carry that tag as an explicit annotation.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

var _ Extractor = (*MarkdownExtractor)(nil)

func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

func (e *MarkdownExtractor) Extract(_ context.Context, doc regdoc.Document, content []byte) ([]regdoc.StructuralUnit, error) {
	units, err := markdownUnits(e.md, content, 0, false)
	if err != nil {
		return nil, &regdoc.FormatError{DocID: doc.ID, Format: regdoc.FormatMarkdown, Reason: err.Error()}
	}
	return units, nil
}

// markdownUnits walks the top level of the Markdown AST and emits
// structural units in document order. page and ocr annotate provenance
// when the Markdown came out of a recognized PDF page.
func markdownUnits(md goldmark.Markdown, src []byte, page int, ocr bool) ([]regdoc.StructuralUnit, error) {
	root := md.Parser().Parse(text.NewReader(src))

	var units []regdoc.StructuralUnit
	var sections []string
	levels := make([]int, 0, 6)

	// An annotation that stands alone as its own block tags the next
	// block instead of producing an empty unit.
	var pending regdoc.ContentType

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(nodeText(n, src))
			if title == "" {
				continue
			}
			// Pop headings at the same or deeper level.
			for len(levels) > 0 && levels[len(levels)-1] >= n.Level {
				levels = levels[:len(levels)-1]
				sections = sections[:len(sections)-1]
			}
			levels = append(levels, n.Level)
			sections = append(sections, title)
			units = append(units, regdoc.StructuralUnit{
				Kind:        regdoc.UnitHeading,
				Text:        title,
				SectionPath: copyPath(sections),
				Page:        page,
				OCR:         ocr,
			})

		case *ast.Paragraph:
			body := strings.TrimSpace(nodeText(n, src))
			if body == "" {
				continue
			}
			body, ct := stripAnnotation(body)
			if body == "" {
				pending = ct
				continue
			}
			if ct == "" {
				ct = pending
			}
			pending = ""
			kind := regdoc.UnitParagraph
			if isNoteLine(body) {
				kind = regdoc.UnitNote
			}
			units = append(units, regdoc.StructuralUnit{
				Kind:        kind,
				Text:        body,
				SectionPath: copyPath(sections),
				Page:        page,
				OCR:         ocr,
				ContentType: ct,
			})

		case *ast.FencedCodeBlock:
			body := strings.TrimSpace(linesText(n, src))
			if body == "" {
				continue
			}
			lang := regdoc.ContentType(n.Language(src))
			if !lang.Valid() {
				lang = ""
			}
			if lang == "" {
				lang = pending
			}
			pending = ""
			units = append(units, regdoc.StructuralUnit{
				Kind:        regdoc.UnitParagraph,
				Text:        body,
				SectionPath: copyPath(sections),
				Page:        page,
				OCR:         ocr,
				ContentType: lang,
			})

		case *east.Table:
			units = append(units, tableUnits(n, src, sections, page, ocr, pending)...)
			pending = ""

		default:
			body := strings.TrimSpace(nodeText(node, src))
			if body == "" {
				continue
			}
			units = append(units, regdoc.StructuralUnit{
				Kind:        regdoc.UnitParagraph,
				Text:        body,
				SectionPath: copyPath(sections),
				Page:        page,
				OCR:         ocr,
				ContentType: pending,
			})
			pending = ""
		}
	}
	return units, nil
}

// tableUnits flattens a GFM table into one table_row unit per data
// row. Each row's text pairs header cells with row cells so the row
// stays meaningful outside its table. An annotation preceding the
// table tags every row.
func tableUnits(table *east.Table, src []byte, sections []string, page int, ocr bool, ct regdoc.ContentType) []regdoc.StructuralUnit {
	var header []string
	var units []regdoc.StructuralUnit

	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(nodeText(cell, src)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			header = cells
			continue
		}

		pairs := make([]string, 0, len(cells))
		for i, c := range cells {
			if i < len(header) && header[i] != "" {
				pairs = append(pairs, header[i]+": "+c)
			} else {
				pairs = append(pairs, c)
			}
		}
		units = append(units, regdoc.StructuralUnit{
			Kind:        regdoc.UnitTableRow,
			Text:        strings.Join(pairs, "，"),
			SectionPath: copyPath(sections),
			Page:        page,
			TableHeader: header,
			Cells:       cells,
			OCR:         ocr,
			ContentType: ct,
		})
	}
	return units
}

// stripAnnotation removes an inline content-type annotation from the
// text and returns the declared tag when it names a valid taxonomy
// member. Unknown tags are stripped and ignored.
func stripAnnotation(s string) (string, regdoc.ContentType) {
	m := annotationRe.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	cleaned := strings.TrimSpace(annotationRe.ReplaceAllString(s, ""))
	ct := regdoc.ContentType(m[1])
	if !ct.Valid() {
		return cleaned, ""
	}
	return cleaned, ct
}

// nodeText collects the plain text of a node and its descendants.
func nodeText(node ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// linesText joins the raw source lines of a block node.
func linesText(node ast.Node, src []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

func copyPath(sections []string) []string {
	if len(sections) == 0 {
		return nil
	}
	out := make([]string, len(sections))
	copy(out, sections)
	return out
}
