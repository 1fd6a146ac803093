package ingest

import (
	"strings"

	"github.com/wei292224644/regdoc"
)

// structuredStrategy chunks strictly along hierarchy boundaries: every
// section becomes its own chunk, never merged with a neighbor, and a
// table inside a section is lifted out as a separate chunk so tabular
// specifications stay intact. Requires structure-bearing input; the
// ingestor rejects it for flat formats before extraction runs.
type structuredStrategy struct {
	cfg StrategyConfig
}

func (*structuredStrategy) Name() string { return StrategyStructured }

func (s *structuredStrategy) Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error) {
	var chunks []regdoc.Chunk
	for _, g := range sectionGroups(units) {
		chunks = append(chunks, sectionChunks(doc, g)...)
	}
	return chunks, nil, nil
}

// sectionChunks emits the chunks for one section in document order:
// contiguous prose joins into one chunk, each contiguous table becomes
// its own chunk.
func sectionChunks(doc regdoc.Document, g sectionGroup) []regdoc.Chunk {
	var chunks []regdoc.Chunk
	var prose, table []regdoc.StructuralUnit

	flush := func(units []regdoc.StructuralUnit) {
		if len(units) == 0 {
			return
		}
		parts := make([]string, len(units))
		for i, u := range units {
			parts[i] = u.Text
		}
		chunks = append(chunks, newChunk(doc, strings.Join(parts, "\n"), units))
	}

	for _, u := range g.units {
		if u.Kind == regdoc.UnitTableRow {
			if len(prose) > 0 {
				flush(prose)
				prose = nil
			}
			table = append(table, u)
			continue
		}
		if len(table) > 0 {
			flush(table)
			table = nil
		}
		prose = append(prose, u)
	}
	flush(table)
	flush(prose)
	return chunks
}
