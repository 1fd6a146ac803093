package ingest

import (
	"strings"

	"github.com/wei292224644/regdoc"
)

// textStrategy packs units into fixed-size chunks with a trailing
// character overlap carried into the next chunk. Units are never split
// mid-unit: a unit larger than the chunk size becomes its own
// oversized chunk. Overlap is prepended after packing so every chunk
// body past the first starts with an exact copy of the previous
// chunk's tail, clamped so the carried tail never exceeds either
// neighbor's own content.
type textStrategy struct {
	cfg StrategyConfig
}

func (*textStrategy) Name() string { return StrategyText }

func (s *textStrategy) Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error) {
	type group struct {
		body  string
		units []regdoc.StructuralUnit
	}

	var groups []group
	var cur []regdoc.StructuralUnit
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, len(cur))
		for i, u := range cur {
			parts[i] = u.Text
		}
		groups = append(groups, group{body: strings.Join(parts, "\n"), units: cur})
		cur = nil
		curLen = 0
	}

	for _, u := range units {
		textLen := runeLen(u.Text)
		if len(cur) > 0 {
			pathChanged := !samePath(cur[0].SectionPath, u.SectionPath)
			if pathChanged || curLen+1+textLen > s.cfg.ChunkSize {
				flush()
			}
		}
		if len(cur) > 0 {
			curLen++ // joining newline
		}
		cur = append(cur, u)
		curLen += textLen
	}
	flush()

	chunks := make([]regdoc.Chunk, 0, len(groups))
	for i, g := range groups {
		content := g.body
		if i > 0 && s.cfg.ChunkOverlap > 0 {
			n := min(s.cfg.ChunkOverlap, runeLen(g.body))
			content = overlapTail(groups[i-1].body, n) + "\n" + content
		}
		chunks = append(chunks, newChunk(doc, content, g.units))
	}
	return chunks, nil, nil
}

// overlapTail returns the trailing n runes of s, or all of s when it
// is shorter.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
