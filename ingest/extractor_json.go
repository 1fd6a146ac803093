package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wei292224644/regdoc"
)

// jsonRecord is the lenient wire shape accepted for pre-structured
// JSON documents. Only content is required; unknown fields are
// ignored.
type jsonRecord struct {
	Content     string   `json:"content"`
	SectionPath []string `json:"section_path"`
	ContentType string   `json:"content_type"`
	Page        int      `json:"page"`
}

// JSONExtractor reads pre-structured documents: either a JSON array of
// records or an object with a "units" array. Each record becomes one
// paragraph unit; a declared content_type is kept when it names a
// taxonomy member and silently dropped otherwise.
type JSONExtractor struct{}

var _ Extractor = (*JSONExtractor)(nil)

func (JSONExtractor) Extract(_ context.Context, doc regdoc.Document, content []byte) ([]regdoc.StructuralUnit, error) {
	records, err := decodeJSONRecords(content)
	if err != nil {
		return nil, &regdoc.FormatError{DocID: doc.ID, Format: regdoc.FormatJSON, Reason: err.Error()}
	}

	var units []regdoc.StructuralUnit
	for i, rec := range records {
		body := strings.TrimSpace(rec.Content)
		if body == "" {
			return nil, &regdoc.FormatError{
				DocID:  doc.ID,
				Format: regdoc.FormatJSON,
				Reason: fmt.Sprintf("record %d: missing content", i),
			}
		}
		ct := regdoc.ContentType(rec.ContentType)
		if !ct.Valid() {
			ct = ""
		}
		kind := regdoc.UnitParagraph
		if isNoteLine(body) {
			kind = regdoc.UnitNote
		}
		units = append(units, regdoc.StructuralUnit{
			Kind:        kind,
			Text:        body,
			SectionPath: rec.SectionPath,
			Page:        rec.Page,
			ContentType: ct,
		})
	}
	return units, nil
}

func decodeJSONRecords(content []byte) ([]jsonRecord, error) {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, fmt.Errorf("empty document")
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []jsonRecord
		if err := json.Unmarshal(content, &records); err != nil {
			return nil, fmt.Errorf("parse record array: %w", err)
		}
		return records, nil
	}

	var wrapper struct {
		Units []jsonRecord `json:"units"`
	}
	if err := json.Unmarshal(content, &wrapper); err != nil {
		return nil, fmt.Errorf("parse document object: %w", err)
	}
	if len(wrapper.Units) > 0 {
		return wrapper.Units, nil
	}

	var single jsonRecord
	if err := json.Unmarshal(content, &single); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return []jsonRecord{single}, nil
}
