package ingest

import (
	"strings"

	"github.com/wei292224644/regdoc"
)

// sectionGroup is a run of consecutive units under one section path.
type sectionGroup struct {
	path  []string
	units []regdoc.StructuralUnit
	size  int
}

// sectionGroups splits the unit sequence at section-path changes.
func sectionGroups(units []regdoc.StructuralUnit) []sectionGroup {
	var groups []sectionGroup
	for _, u := range units {
		if n := len(groups); n > 0 && samePath(groups[n-1].path, u.SectionPath) {
			groups[n-1].units = append(groups[n-1].units, u)
			groups[n-1].size += runeLen(u.Text) + 1
			continue
		}
		groups = append(groups, sectionGroup{
			path:  u.SectionPath,
			units: []regdoc.StructuralUnit{u},
			size:  runeLen(u.Text),
		})
	}
	return groups
}

func (g sectionGroup) body() string {
	parts := make([]string, len(g.units))
	for i, u := range g.units {
		parts[i] = u.Text
	}
	return strings.Join(parts, "\n")
}

// headingStrategy chunks along the heading structure: each section
// becomes one chunk, consecutive small sections are merged up to the
// section size bound, and a section larger than the bound is split
// with the size-based packer.
type headingStrategy struct {
	cfg StrategyConfig
}

func (*headingStrategy) Name() string { return StrategyHeading }

func (s *headingStrategy) Split(doc regdoc.Document, units []regdoc.StructuralUnit) ([]regdoc.Chunk, []regdoc.ParentChunk, error) {
	groups := sectionGroups(units)

	var chunks []regdoc.Chunk
	i := 0
	for i < len(groups) {
		g := groups[i]

		if g.size > s.cfg.MaxSectionSize {
			sub := textStrategy{cfg: StrategyConfig{
				ChunkSize:    s.cfg.MaxSectionSize,
				ChunkOverlap: s.cfg.ChunkOverlap,
			}.withDefaults()}
			split, _, err := sub.Split(doc, g.units)
			if err != nil {
				return nil, nil, err
			}
			chunks = append(chunks, split...)
			i++
			continue
		}

		// Merge following small sections while the combined body stays
		// within the bound.
		merged := g.units
		size := g.size
		i++
		for i < len(groups) && size+1+groups[i].size <= s.cfg.MaxSectionSize {
			merged = append(merged, groups[i].units...)
			size += 1 + groups[i].size
			i++
		}

		body := sectionGroup{units: merged}.body()
		chunks = append(chunks, newChunk(doc, body, merged))
	}
	return chunks, nil, nil
}
