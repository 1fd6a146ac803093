package ingest

import (
	"github.com/wei292224644/regdoc"
)

// tableStrategy emits one chunk per table row, each carrying its
// header context, so a single specification row is independently
// retrievable. Units outside tables are packed with the text strategy
// so mixed documents lose nothing.
type tableStrategy struct {
	cfg StrategyConfig
}

func (*tableStrategy) Name() string { return StrategyTable }

func (s *tableStrategy) Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error) {
	text := &textStrategy{cfg: s.cfg}

	var chunks []regdoc.Chunk
	var pending []regdoc.StructuralUnit

	flushPending := func() error {
		if len(pending) == 0 {
			return nil
		}
		packed, _, err := text.Split(doc, pending)
		if err != nil {
			return err
		}
		chunks = append(chunks, packed...)
		pending = nil
		return nil
	}

	for _, u := range units {
		if u.Kind != regdoc.UnitTableRow {
			pending = append(pending, u)
			continue
		}
		if err := flushPending(); err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, newChunk(doc, u.Text, []regdoc.StructuralUnit{u}))
	}
	if err := flushPending(); err != nil {
		return nil, nil, err
	}
	return chunks, nil, nil
}
