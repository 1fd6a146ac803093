package regdoc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format identifies the declared source format of an ingested document.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

// Valid reports whether f is one of the supported source formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatMarkdown, FormatJSON, FormatText:
		return true
	}
	return false
}

// Document is an ingested source file. Immutable once ingested;
// re-ingestion replaces the prior chunk set for the same ID.
type Document struct {
	ID        string `json:"doc_id"`
	Title     string `json:"doc_title"`
	Format    Format `json:"format"`
	RawSize   int    `json:"raw_size"`
	CreatedAt int64  `json:"created_at"`
}

// UnitKind classifies a structural unit.
type UnitKind string

const (
	UnitParagraph UnitKind = "paragraph"
	UnitSentence  UnitKind = "sentence"
	UnitTableRow  UnitKind = "table_row"
	UnitHeading   UnitKind = "heading"
	UnitNote      UnitKind = "note"
)

// StructuralUnit is the transient representation of one piece of
// document structure produced by the extractors. It exists only for
// the duration of a single ingestion pass and is never persisted.
type StructuralUnit struct {
	Kind        UnitKind
	Text        string
	SectionPath []string
	Page        int

	// Table context, set only for table_row units.
	TableHeader []string
	Cells       []string

	// OCR marks units whose text came from the OCR fallback.
	OCR bool

	// ContentType carries an explicit inline annotation. When set it is
	// authoritative and the classifier performs no inference.
	ContentType ContentType
}

// ContentType is one tag from the closed taxonomy describing what kind
// of regulatory or technical information a chunk holds.
type ContentType string

const (
	ContentMetadata             ContentType = "metadata"
	ContentScope                ContentType = "scope"
	ContentDefinition           ContentType = "definition"
	ContentChemicalFormula      ContentType = "chemical_formula"
	ContentChemicalStructure    ContentType = "chemical_structure"
	ContentMolecularWeight      ContentType = "molecular_weight"
	ContentSpecificationTable   ContentType = "specification_table"
	ContentSpecificationText    ContentType = "specification_text"
	ContentTestMethod           ContentType = "test_method"
	ContentIdentificationTest   ContentType = "identification_test"
	ContentChromatographicMethod ContentType = "chromatographic_method"
	ContentInstrument           ContentType = "instrument"
	ContentReagent              ContentType = "reagent"
	ContentCalculationFormula   ContentType = "calculation_formula"
	ContentGeneralRule          ContentType = "general_rule"
	ContentNote                 ContentType = "note"
)

var contentTypes = map[ContentType]bool{
	ContentMetadata:              true,
	ContentScope:                 true,
	ContentDefinition:            true,
	ContentChemicalFormula:       true,
	ContentChemicalStructure:     true,
	ContentMolecularWeight:       true,
	ContentSpecificationTable:    true,
	ContentSpecificationText:     true,
	ContentTestMethod:            true,
	ContentIdentificationTest:    true,
	ContentChromatographicMethod: true,
	ContentInstrument:            true,
	ContentReagent:               true,
	ContentCalculationFormula:    true,
	ContentGeneralRule:           true,
	ContentNote:                  true,
}

// Valid reports whether c is a member of the closed taxonomy.
func (c ContentType) Valid() bool { return contentTypes[c] }

// ChunkMeta is the typed metadata envelope carried by a chunk: a small
// set of well-known fields plus an open map for strategy-specific
// extras.
type ChunkMeta struct {
	ParentID         string            `json:"parent_id,omitempty"`
	ExtractedWithOCR bool              `json:"extracted_with_ocr,omitempty"`
	SourcePage       int               `json:"source_page,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// Chunk is the canonical, persisted, independently retrievable unit of
// document content. Its JSON form is the canonical chunk record shape.
type Chunk struct {
	ID          string      `json:"chunk_id"`
	DocID       string      `json:"doc_id"`
	DocTitle    string      `json:"doc_title,omitempty"`
	SectionPath []string    `json:"section_path,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	Content     string      `json:"content"`
	Meta        *ChunkMeta  `json:"meta,omitempty"`

	// ChunkIndex is the chunk's position in original document order,
	// used for deterministic tie-breaking. Persisted by stores but not
	// part of the canonical record.
	ChunkIndex int `json:"-"`

	// Embedding is populated during ingestion and never serialized in
	// the canonical record.
	Embedding []float32 `json:"-"`
}

// ParentID returns the parent back-reference carried in the chunk's
// metadata, or "" for standalone chunks.
func (c Chunk) ParentID() string {
	if c.Meta == nil {
		return ""
	}
	return c.Meta.ParentID
}

// Record serializes the chunk to the canonical record shape.
func (c Chunk) Record() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// ParseRecord parses a canonical chunk record, validating required
// fields.
func ParseRecord(data []byte) (Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return Chunk{}, fmt.Errorf("parse chunk record: %w", err)
	}
	if err := c.validate(); err != nil {
		return Chunk{}, err
	}
	return c, nil
}

func (c Chunk) validate() error {
	if c.ID == "" {
		return fmt.Errorf("chunk record: missing chunk_id")
	}
	if c.DocID == "" {
		return fmt.Errorf("chunk record %s: missing doc_id", c.ID)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("chunk record %s: empty content", c.ID)
	}
	if c.ContentType != "" && !c.ContentType.Valid() {
		return fmt.Errorf("chunk record %s: unknown content_type %q", c.ID, c.ContentType)
	}
	return nil
}

// ParentChunk is a larger aggregation of contiguous document content
// kept out of the similarity index. It is fetched by ID after one of
// its children is retrieved, giving the reader wider context than the
// embedded unit.
type ParentChunk struct {
	ID          string   `json:"parent_id"`
	DocID       string   `json:"doc_id"`
	SectionPath []string `json:"section_path,omitempty"`
	Content     string   `json:"content"`
	CreatedAt   int64    `json:"created_at"`
}

// ScoredChunk pairs a chunk with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float32
}
