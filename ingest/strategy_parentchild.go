package ingest

import (
	"strings"

	"github.com/wei292224644/regdoc"
)

// parentChildStrategy builds two granularities: large parent chunks
// that stay out of the similarity index and small child chunks that
// get embedded, each carrying its parent's id. Parents break at
// hierarchy boundaries and at the parent size bound; children repack
// each parent's units at the child size bound. Every parent has at
// least one child, and a child never exceeds its parent's content.
type parentChildStrategy struct {
	cfg StrategyConfig
}

func (*parentChildStrategy) Name() string { return StrategyParentChild }

func (s *parentChildStrategy) Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error) {
	var parents []regdoc.ParentChunk
	var chunks []regdoc.Chunk

	var cur []regdoc.StructuralUnit
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parent, children := s.buildParent(doc, cur)
		parents = append(parents, parent)
		chunks = append(chunks, children...)
		cur = nil
		curLen = 0
	}

	for _, u := range units {
		textLen := runeLen(u.Text)
		if len(cur) > 0 {
			pathChanged := !samePath(cur[0].SectionPath, u.SectionPath)
			if pathChanged || curLen+1+textLen > s.cfg.ParentSize {
				flush()
			}
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, u)
		curLen += textLen
	}
	flush()

	return chunks, parents, nil
}

// buildParent assembles one parent chunk and its children from a run
// of units.
func (s *parentChildStrategy) buildParent(doc regdoc.Document, units []regdoc.StructuralUnit) (regdoc.ParentChunk, []regdoc.Chunk) {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Text
	}
	parent := regdoc.ParentChunk{
		ID:          regdoc.NewID(),
		DocID:       doc.ID,
		SectionPath: units[0].SectionPath,
		Content:     strings.Join(parts, "\n"),
		CreatedAt:   regdoc.NowUnix(),
	}

	var children []regdoc.Chunk
	var cur []regdoc.StructuralUnit
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		childParts := make([]string, len(cur))
		for i, u := range cur {
			childParts[i] = u.Text
		}
		child := newChunk(doc, strings.Join(childParts, "\n"), cur)
		if child.Meta == nil {
			child.Meta = &regdoc.ChunkMeta{}
		}
		child.Meta.ParentID = parent.ID
		children = append(children, child)
		cur = nil
		curLen = 0
	}

	for _, u := range units {
		textLen := runeLen(u.Text)
		if len(cur) > 0 && curLen+1+textLen > s.cfg.ChildSize {
			flush()
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, u)
		curLen += textLen
	}
	flush()

	return parent, children
}
