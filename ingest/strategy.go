package ingest

import (
	"fmt"

	"github.com/wei292224644/regdoc"
)

// Strategy names accepted by StrategyByName.
const (
	StrategyText        = "text"
	StrategyTable       = "table"
	StrategyHeading     = "heading"
	StrategyStructured  = "structured"
	StrategyParentChild = "parent_child"
)

// Strategy turns an ordered sequence of structural units into chunks,
// and for hierarchical strategies additionally into parent chunks.
// Chunks referencing a parent carry the parent id in their metadata.
type Strategy interface {
	Name() string
	Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error)
}

// StrategyConfig carries the size knobs shared by the strategies.
// Zero fields take the defaults.
type StrategyConfig struct {
	// ChunkSize is the target chunk size in runes for the text
	// strategy.
	ChunkSize int
	// ChunkOverlap is the number of trailing runes repeated at the
	// start of the next chunk.
	ChunkOverlap int
	// MaxSectionSize bounds merged sections in the heading strategy.
	MaxSectionSize int
	// ParentSize is the target parent chunk size in runes.
	ParentSize int
	// ChildSize is the target child chunk size in runes.
	ChildSize int
}

const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultMaxSectionSize = 2000
	DefaultParentSize     = 1024
	DefaultChildSize      = 512
)

func (c StrategyConfig) withDefaults() StrategyConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.MaxSectionSize <= 0 {
		c.MaxSectionSize = DefaultMaxSectionSize
	}
	if c.ParentSize <= 0 {
		c.ParentSize = DefaultParentSize
	}
	if c.ChildSize <= 0 || c.ChildSize > c.ParentSize {
		c.ChildSize = DefaultChildSize
	}
	return c
}

// StrategyByName builds the named strategy.
func StrategyByName(name string, cfg StrategyConfig) (Strategy, error) {
	cfg = cfg.withDefaults()
	switch name {
	case StrategyText:
		return &textStrategy{cfg: cfg}, nil
	case StrategyTable:
		return &tableStrategy{cfg: cfg}, nil
	case StrategyHeading:
		return &headingStrategy{cfg: cfg}, nil
	case StrategyStructured:
		return &structuredStrategy{cfg: cfg}, nil
	case StrategyParentChild:
		return &parentChildStrategy{cfg: cfg}, nil
	}
	return nil, fmt.Errorf("unknown chunking strategy %q", name)
}

// strategySupportsFormat reports whether the strategy can be applied
// to documents of the given source format. Hierarchy-dependent
// strategies need structure-bearing input.
func strategySupportsFormat(name string, format regdoc.Format) bool {
	switch name {
	case StrategyStructured:
		return format == regdoc.FormatMarkdown || format == regdoc.FormatPDF
	}
	return true
}

// newChunk assembles a chunk from a run of units sharing provenance.
// The caller supplies the joined content and the units it came from;
// section path, content type, page and OCR provenance are taken from
// the units.
func newChunk(doc regdoc.Document, content string, units []regdoc.StructuralUnit) regdoc.Chunk {
	c := regdoc.Chunk{
		ID:       regdoc.NewID(),
		DocID:    doc.ID,
		DocTitle: doc.Title,
		Content:  content,
	}
	if len(units) == 0 {
		return c
	}

	first := units[0]
	c.SectionPath = first.SectionPath
	c.ContentType = dominantContentType(units)

	if first.OCR || first.Page > 0 {
		c.Meta = &regdoc.ChunkMeta{
			ExtractedWithOCR: anyOCR(units),
			SourcePage:       first.Page,
		}
	}
	return c
}

// dominantContentType picks the chunk-level tag: a tag shared by every
// tagged unit wins, otherwise the first tagged unit's tag.
func dominantContentType(units []regdoc.StructuralUnit) regdoc.ContentType {
	for _, u := range units {
		if u.ContentType != "" {
			return u.ContentType
		}
	}
	return ""
}

func anyOCR(units []regdoc.StructuralUnit) bool {
	for _, u := range units {
		if u.OCR {
			return true
		}
	}
	return false
}

func runeLen(s string) int { return len([]rune(s)) }

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
